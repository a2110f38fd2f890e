package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	keys, err := GenerateKeys()
	require.NoError(t, err)
	return NewCodec("welive-test", keys)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	raw, exp, err := c.Issue(TypeRefresh, Subject{UserID: "u-1", Role: "ADMIN"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, time.Minute)

	claims, err := c.Verify(raw, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestIssue_UniquePerCall(t *testing.T) {
	c := newTestCodec(t)
	a, _, err := c.Issue(TypeRefresh, Subject{UserID: "u-1"})
	require.NoError(t, err)
	b, _, err := c.Issue(TypeRefresh, Subject{UserID: "u-1"})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerify_RejectsWrongType(t *testing.T) {
	c := newTestCodec(t)
	raw, _, err := c.Issue(TypeAccess, Subject{UserID: "u-1"})
	require.NoError(t, err)

	_, err = c.Verify(raw, TypeRefresh)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestVerify_RejectsExpired(t *testing.T) {
	c := newTestCodec(t)
	past := time.Now().Add(-time.Hour)
	c.WithClock(func() time.Time { return past })
	raw, _, err := c.Issue(TypeAccess, Subject{UserID: "u-1"})
	require.NoError(t, err)

	c.WithClock(time.Now)
	_, err = c.Verify(raw, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsForeignKeyAndGarbage(t *testing.T) {
	a := newTestCodec(t)
	b := newTestCodec(t)
	raw, _, err := a.Issue(TypeAccess, Subject{UserID: "u-1"})
	require.NoError(t, err)

	_, err = b.Verify(raw, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Verify("not-a-jwt", TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Firma alterada.
	parts := strings.Split(raw, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	_, err = a.Verify(strings.Join(parts, "."), TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestKeysFromSeed(t *testing.T) {
	k, err := GenerateKeys()
	require.NoError(t, err)

	again, err := KeysFromSeed(k.EncodeSeed())
	require.NoError(t, err)
	assert.Equal(t, k.KID, again.KID)
	assert.Equal(t, k.Public, again.Public)

	_, err = KeysFromSeed("c2hvcnQ=")
	assert.Error(t, err)
	_, err = KeysFromSeed("%%%")
	assert.Error(t, err)
}
