package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindStringKnownAndUnknown(t *testing.T) {
	require.Equal(t, "IDENTIFIER", IDENTIFIER.String())
	require.Equal(t, "EOF", EOF.String())
	require.Contains(t, Kind(999).String(), "Kind(999)")
}

func TestKeywordsIsExactlyTheSixteenReservedWords(t *testing.T) {
	want := []string{
		"and", "class", "else", "false", "for", "fun", "if", "nil",
		"or", "print", "return", "super", "this", "true", "var", "while",
	}
	require.Len(t, Keywords, len(want))
	for _, w := range want {
		_, ok := Keywords[w]
		require.Truef(t, ok, "missing reserved word %q", w)
	}
}

func TestNewTokenCarriesLexemeAndLine(t *testing.T) {
	tok := New(NUMBER, "42", 3)
	require.Equal(t, NUMBER, tok.Kind)
	require.Equal(t, "42", tok.Lexeme)
	require.Equal(t, 3, tok.Line)
	require.Equal(t, `NUMBER "42"`, tok.String())
}
