package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer   = "rentbook"
	defaultAudience = "rentbook-api"
	minSecretLength = 32
)

var defaultLeeway = 30 * time.Second

// ErrInvalidToken is returned for tokens that fail parsing, signature,
// claim or revocation checks.
var ErrInvalidToken = errors.New("invalid token")

// SessionOptions configures claim validation.
type SessionOptions struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Sessions issues and validates HS256 operator tokens. Logout revokes the
// token id until the token would have expired anyway.
type Sessions struct {
	secret  []byte
	ttl     time.Duration
	revoker TokenRevoker

	issuer   string
	audience string
	leeway   time.Duration
}

// NewSessions builds a session issuer. The secret must be at least 32 bytes.
func NewSessions(secret string, ttl time.Duration, revoker TokenRevoker, opts SessionOptions) (*Sessions, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	opts = normalizeSessionOptions(opts)
	return &Sessions{
		secret:   []byte(secret),
		ttl:      ttl,
		revoker:  revoker,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		leeway:   opts.Leeway,
	}, nil
}

// NewSession signs a token for the operator and returns it with its expiry.
func (s *Sessions) NewSession(operator string) (string, time.Time, error) {
	if strings.TrimSpace(operator) == "" {
		return "", time.Time{}, errors.New("operator required")
	}
	now := time.Now().UTC()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   operator,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        randomHexID(12),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Operator validates a token and returns its subject.
func (s *Sessions) Operator(token string) (string, error) {
	claims, err := s.parseAndVerify(token)
	if err != nil {
		return "", err
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(claims.ID)
		if err != nil {
			return "", err
		}
		if revoked {
			return "", fmt.Errorf("%w: revoked", ErrInvalidToken)
		}
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// DeleteSession revokes the token until it expires. Invalid tokens are
// ignored since they cannot be used anyway.
func (s *Sessions) DeleteSession(token string) error {
	if s.revoker == nil {
		return nil
	}
	claims, err := s.parseAndVerify(token)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(claims.ID, time.Until(claims.ExpiresAt.Time))
}

func (s *Sessions) parseAndVerify(token string) (jwt.RegisteredClaims, error) {
	claims := jwt.RegisteredClaims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		return claims, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return claims, ErrInvalidToken
	}
	if strings.TrimSpace(claims.ID) == "" {
		return claims, fmt.Errorf("%w: jti missing", ErrInvalidToken)
	}
	return claims, nil
}

func randomHexID(nBytes int) string {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}

func normalizeSessionOptions(opts SessionOptions) SessionOptions {
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	opts.Audience = strings.TrimSpace(opts.Audience)
	if opts.Issuer == "" {
		opts.Issuer = defaultIssuer
	}
	if opts.Audience == "" {
		opts.Audience = defaultAudience
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultLeeway
	}
	return opts
}
