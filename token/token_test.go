package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKnownKeywords(t *testing.T) {
	for word, kind := range keywords {
		assert.Equal(t, kind, LookupIdentifier(word), "keyword %q", word)
		assert.True(t, IsKeyword(word))
	}
}

func TestLookupIdentifierFallsBackToIdent(t *testing.T) {
	for _, word := range []string{"x", "total", "_private", "notakeyword"} {
		assert.Equal(t, IDENT, LookupIdentifier(word))
		assert.False(t, IsKeyword(word))
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "if", IF.String())
	assert.Equal(t, "==", EQ.String())
	assert.Equal(t, "?", Kind(9999).String())
}
