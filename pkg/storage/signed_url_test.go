package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("exp-1", "weekly/school-1.pdf")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	exportID, relPath, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "exp-1", exportID)
	assert.Equal(t, "weekly/school-1.pdf", relPath)
	assert.Equal(t, expiresAt.Unix(), parsedExpiry.Unix())
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, _, err := signer.Generate("exp-1", "weekly/school-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	require.Error(t, err)

	other := NewSignedURLSigner("other-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := &SignedURLSigner{secret: []byte("secret"), ttl: time.Nanosecond}

	token, _, err := signer.Generate("exp-1", "weekly/school-1.csv")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	_, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "weekly/school-1.csv", relPath)
}
