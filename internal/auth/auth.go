package auth

import (
	"context"
	"errors"
	"strings"
)

// Authenticator validates an operator token and returns the operator identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Operator, error)
}

// Operator holds the authenticated operator's identity.
type Operator struct {
	ID    string
	Name  string
	Email string
}

// ErrUnauthenticated is returned when no valid credentials are found.
var ErrUnauthenticated = errors.New("unauthenticated")

// NormalizeToken strips an optional Bearer prefix and checks the ogt_ key shape.
func NormalizeToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	token = strings.TrimPrefix(token, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")
	if !strings.HasPrefix(token, "ogt_") {
		return "", ErrUnauthenticated
	}
	return token, nil
}
