package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenSignerMintAndCheck(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)
	token, expiresAt, err := signer.Mint("job-1", "students/job-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claim, err := signer.Check(token)
	require.NoError(t, err)
	require.Equal(t, "job-1", claim.JobID)
	require.Equal(t, "students/job-1.csv", claim.File)
	require.WithinDuration(t, expiresAt, claim.ExpiresAt, time.Second)
}

func TestTokenSignerRejectsTampering(t *testing.T) {
	signer := NewTokenSigner("secret", time.Hour)
	token, _, err := signer.Mint("job-1", "students/job-1.csv")
	require.NoError(t, err)

	flipped := strings.Replace(token, token[:1], "x", 1)
	_, err = signer.Check(flipped)
	require.ErrorIs(t, err, ErrTokenInvalid)

	other := NewTokenSigner("different-secret", time.Hour)
	_, err = other.Check(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenSignerRejectsExpired(t *testing.T) {
	signer := NewTokenSigner("secret", time.Millisecond)
	token, _, err := signer.Mint("job-1", "students/job-1.csv")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = signer.Check(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
