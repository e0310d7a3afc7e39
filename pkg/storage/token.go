package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrTokenInvalid covers malformed, tampered, and expired download tokens.
var ErrTokenInvalid = errors.New("download token invalid")

// DownloadClaim is what a valid token resolves to.
type DownloadClaim struct {
	JobID     string
	File      string
	ExpiresAt time.Time
}

// TokenSigner mints and checks HMAC-signed download tokens so export files
// can be fetched without a session.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner builds a signer; ttl bounds how long minted tokens live.
func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenSigner{secret: []byte(secret), ttl: ttl}
}

// Mint returns a token binding the job to its stored file.
func (s *TokenSigner) Mint(jobID, file string) (string, time.Time, error) {
	if jobID == "" || file == "" {
		return "", time.Time{}, fmt.Errorf("jobID and file are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret not configured")
	}
	expiresAt := time.Now().Add(s.ttl).Truncate(time.Second)
	body := strings.Join([]string{
		base64.RawURLEncoding.EncodeToString([]byte(jobID)),
		base64.RawURLEncoding.EncodeToString([]byte(file)),
		strconv.FormatInt(expiresAt.Unix(), 10),
	}, ".")
	return body + "." + s.sign(body), expiresAt, nil
}

// Check validates a token and returns its claim. Expired tokens fail with
// ErrTokenInvalid like tampered ones; callers need not distinguish.
func (s *TokenSigner) Check(token string) (*DownloadClaim, error) {
	idx := strings.LastIndex(token, ".")
	if idx < 0 {
		return nil, ErrTokenInvalid
	}
	body, signature := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(s.sign(body)), []byte(signature)) {
		return nil, ErrTokenInvalid
	}

	parts := strings.Split(body, ".")
	if len(parts) != 3 {
		return nil, ErrTokenInvalid
	}
	jobID, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrTokenInvalid
	}
	file, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	expiresAt := time.Unix(expUnix, 0)
	if time.Now().After(expiresAt) {
		return nil, ErrTokenInvalid
	}
	return &DownloadClaim{JobID: string(jobID), File: string(file), ExpiresAt: expiresAt}, nil
}

func (s *TokenSigner) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
