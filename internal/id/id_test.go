package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	const count = 1000

	for range count {
		v, err := Generate(PrefixSession)
		require.NoError(t, err)
		assert.False(t, seen[v], "ID should be unique: %s", v)
		seen[v] = true
	}

	assert.Len(t, seen, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixSession, PrefixBook, PrefixCategory, PrefixToken} {
		t.Run(prefix, func(t *testing.T) {
			v, err := Generate(prefix)
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(v, prefix+"-"))
			nid := strings.TrimPrefix(v, prefix+"-")
			assert.Len(t, nid, 21)

			for _, c := range nid {
				ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
				assert.True(t, ok, "unexpected character %q in %s", c, v)
			}
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		v := MustGenerate(PrefixBook)
		assert.True(t, strings.HasPrefix(v, "book-"))
	})
}
