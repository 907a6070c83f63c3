package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token verification failures.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// TileClaims is the content of a signed tile token.
type TileClaims struct {
	RunID     string
	File      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-SHA256 tokens naming a stored tile of a run.
// Tokens have the form <run>.<unix expiry>.<base64 path>.<hex mac>.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer; ttl defaults to one hour.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for file within run and its expiry.
func (s *SignedURLSigner) Sign(runID, file string) (string, time.Time, error) {
	if runID == "" || file == "" {
		return "", time.Time{}, fmt.Errorf("run id and file required")
	}
	if strings.Contains(runID, ".") {
		return "", time.Time{}, fmt.Errorf("run id %q must not contain '.'", runID)
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	parts := []string{
		runID,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(file)),
	}
	parts = append(parts, s.mac(parts))
	return strings.Join(parts, "."), expiresAt, nil
}

// Verify checks the signature and expiry of token.
func (s *SignedURLSigner) Verify(token string) (TileClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return TileClaims{}, ErrMalformedToken
	}
	if !hmac.Equal([]byte(s.mac(parts[:3])), []byte(parts[3])) {
		return TileClaims{}, ErrBadSignature
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return TileClaims{}, ErrMalformedToken
	}
	file, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return TileClaims{}, ErrMalformedToken
	}
	claims := TileClaims{RunID: parts[0], File: string(file), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(claims.ExpiresAt) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

func (s *SignedURLSigner) mac(parts []string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
