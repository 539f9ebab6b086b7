package auth

import (
	"errors"
	"strings"
)

// ErrInvalidCredentials is returned for an unknown operator or a wrong
// password; the two cases are indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOHi5Bq3IE1lBTaCF6lJmpE5MBoWm1bYe"

// Operator is a back-office account allowed to manage rental data.
type Operator struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"passwordHash"`
}

// Operators checks operator credentials against bcrypt hashes.
type Operators struct {
	hashes map[string]string
}

// NewOperators indexes operators by lower-cased username.
func NewOperators(list []Operator) (*Operators, error) {
	hashes := make(map[string]string, len(list))
	for _, op := range list {
		name := normalizeUsername(op.Username)
		if name == "" {
			return nil, errors.New("operator username required")
		}
		if strings.TrimSpace(op.PasswordHash) == "" {
			return nil, errors.New("operator " + name + ": password hash required")
		}
		if _, dup := hashes[name]; dup {
			return nil, errors.New("operator " + name + ": duplicate username")
		}
		hashes[name] = op.PasswordHash
	}
	return &Operators{hashes: hashes}, nil
}

// Authenticate returns the canonical username when the password matches.
func (o *Operators) Authenticate(username, password string) (string, error) {
	name := normalizeUsername(username)
	hash, ok := o.hashes[name]
	if !ok {
		_ = CheckPassword(password, dummyHash)
		return "", ErrInvalidCredentials
	}
	if !CheckPassword(password, hash) {
		return "", ErrInvalidCredentials
	}
	return name, nil
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
