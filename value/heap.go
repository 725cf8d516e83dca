package value

// Heap owns every heap object allocated during one compile-and-run cycle:
// the intrusive all-objects list (so an embedder can walk it for teardown
// or, per the design notes, a future mark-sweep pass) and the string
// intern table. A compiler and the VM that runs its output share one Heap
// so that string constants created at compile time and strings allocated
// at run time (concatenation) intern into the same table — this is passed
// explicitly rather than reached through a package-level singleton, so
// nothing prevents embedding multiple independent VMs.
type Heap struct {
	objects Obj
	strings map[string]*StringObj
}

// NewHeap returns an empty Heap.
func NewHeap() *Heap {
	return &Heap{strings: make(map[string]*StringObj)}
}

func (h *Heap) track(o Obj) {
	o.setNext(h.objects)
	h.objects = o
}

// Objects returns the head of the intrusive all-objects list.
func (h *Heap) Objects() Obj { return h.objects }

// InternString returns the canonical StringObj for s, allocating one the
// first time s is seen. Two calls with equal content always return the
// same pointer.
func (h *Heap) InternString(s string) *StringObj {
	if existing, ok := h.strings[s]; ok {
		return existing
	}
	obj := &StringObj{Chars: s, Hash: hashFNV1a(s)}
	h.strings[s] = obj
	h.track(obj)
	return obj
}

// NewFunction allocates a fresh, empty function with its own chunk.
func (h *Heap) NewFunction() *FunctionObj {
	fn := &FunctionObj{Chunk: NewChunk()}
	h.track(fn)
	return fn
}

// NewClosure allocates a closure over fn with upvalue slots pre-sized to
// fn.UpvalueCount; callers populate them immediately after.
func (h *Heap) NewClosure(fn *FunctionObj) *ClosureObj {
	cl := &ClosureObj{Function: fn, Upvalues: make([]*UpvalueObj, fn.UpvalueCount)}
	h.track(cl)
	return cl
}

// NewUpvalue allocates an open upvalue pointing at location.
func (h *Heap) NewUpvalue(location *Value) *UpvalueObj {
	uv := &UpvalueObj{Location: location}
	h.track(uv)
	return uv
}

// NewNative allocates a native-function object.
func (h *Heap) NewNative(name string, fn NativeFn) *NativeObj {
	n := &NativeObj{Name: name, Fn: fn}
	h.track(n)
	return n
}
