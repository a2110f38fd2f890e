package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaque(t *testing.T) {
	a, err := Opaque(32)
	require.NoError(t, err)
	b, err := Opaque(32)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("refresh-1"), Fingerprint("refresh-1"))
	assert.NotEqual(t, Fingerprint("refresh-1"), Fingerprint("refresh-2"))
	assert.Len(t, Fingerprint("x"), 43)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
	assert.False(t, Equal("abc", "ab"))
}
