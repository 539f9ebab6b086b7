package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestSessions(t *testing.T, revoker TokenRevoker, opts SessionOptions) *Sessions {
	t.Helper()
	s, err := NewSessions(testSecret, time.Minute, revoker, opts)
	if err != nil {
		t.Fatalf("new sessions: %v", err)
	}
	return s
}

func TestSessionsRoundTrip(t *testing.T) {
	s := newTestSessions(t, nil, SessionOptions{})
	token, expires, err := s.NewSession("admin")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expiry should be in the future: %v", expires)
	}
	op, err := s.Operator(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if op != "admin" {
		t.Fatalf("unexpected operator %q", op)
	}
}

func TestSessionsRejectShortSecret(t *testing.T) {
	if _, err := NewSessions("short", time.Minute, nil, SessionOptions{}); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}

func TestSessionsEnforceAudience(t *testing.T) {
	signing := newTestSessions(t, nil, SessionOptions{Audience: "aud-a"})
	verify := newTestSessions(t, nil, SessionOptions{Audience: "aud-b"})
	token, _, err := signing.NewSession("admin")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := verify.Operator(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected audience mismatch to fail, got %v", err)
	}
}

func TestSessionsRejectOtherSecretAndAlgorithm(t *testing.T) {
	s := newTestSessions(t, nil, SessionOptions{})
	other, err := NewSessions(strings.Repeat("z", 32), time.Minute, nil, SessionOptions{})
	if err != nil {
		t.Fatalf("other sessions: %v", err)
	}
	token, _, _ := other.NewSession("admin")
	if _, err := s.Operator(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature to fail, got %v", err)
	}

	now := time.Now()
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "admin",
		Issuer:    defaultIssuer,
		Audience:  jwt.ClaimStrings{defaultAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        "x",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := s.Operator(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg none to fail, got %v", err)
	}
}

func TestSessionsLogoutRevokesToken(t *testing.T) {
	s := newTestSessions(t, NewMemoryTokenRevoker(), SessionOptions{})
	token, _, err := s.NewSession("admin")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.Operator(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
	if err := s.DeleteSession("garbage"); err != nil {
		t.Fatalf("deleting an invalid token should be a no-op: %v", err)
	}
}

func TestOperatorsAuthenticate(t *testing.T) {
	hash, err := HashPassword("Str0ng#Password!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ops, err := NewOperators([]Operator{{Username: " Admin ", PasswordHash: hash}})
	if err != nil {
		t.Fatalf("new operators: %v", err)
	}
	name, err := ops.Authenticate("ADMIN", "Str0ng#Password!")
	if err != nil || name != "admin" {
		t.Fatalf("authenticate: name=%q err=%v", name, err)
	}
	if _, err := ops.Authenticate("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := ops.Authenticate("nobody", "Str0ng#Password!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
	if _, err := NewOperators([]Operator{{Username: "a", PasswordHash: hash}, {Username: "A", PasswordHash: hash}}); err == nil {
		t.Fatalf("expected duplicate usernames to fail")
	}
}
