package auth

import (
	"context"
)

// StaticAuthenticator is a development-only authenticator that accepts any ogt_ token.
type StaticAuthenticator struct{}

func NewStaticAuthenticator() *StaticAuthenticator {
	return &StaticAuthenticator{}
}

func (a *StaticAuthenticator) Authenticate(ctx context.Context, raw string) (*Operator, error) {
	token, err := NormalizeToken(raw)
	if err != nil {
		return nil, err
	}
	if len(token) < 12 {
		return nil, ErrUnauthenticated
	}
	return &Operator{
		ID:   "static-" + token[4:12],
		Name: "local operator",
	}, nil
}
