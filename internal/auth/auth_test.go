package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeOperatorStore struct {
	mu      sync.Mutex
	rows    map[string]*operatorRow
	err     error
	lookups int
}

func (s *fakeOperatorStore) LookupByPrefix(ctx context.Context, prefix string) (*operatorRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	row, ok := s.rows[prefix]
	if !ok {
		return nil, errors.New("no rows")
	}
	return row, nil
}

func (s *fakeOperatorStore) lookupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

func newFakeStore(t *testing.T, token string, op *Operator) *fakeOperatorStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return &fakeOperatorStore{
		rows: map[string]*operatorRow{
			token[:12]: {
				OperatorID: op.ID,
				Name:       op.Name,
				Email:      op.Email,
				TokenHash:  string(hash),
			},
		},
	}
}

const testToken = "ogt_abcdef1234567890"

func TestNormalizeToken(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{testToken, testToken, true},
		{"Bearer " + testToken, testToken, true},
		{"bearer " + testToken, testToken, true},
		{"  " + testToken + "  ", testToken, true},
		{"sk_wrongprefix", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeToken(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("NormalizeToken(%q) = %q, %v", tc.raw, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("NormalizeToken(%q) expected ErrUnauthenticated, got %v", tc.raw, err)
		}
	}
}

func TestPostgresAuthenticator_ValidToken(t *testing.T) {
	op := &Operator{ID: "op-1", Name: "alice", Email: "alice@example.com"}
	store := newFakeStore(t, testToken, op)
	a := NewPostgresAuthenticatorWithStore(store, time.Minute, zap.NewNop())

	got, err := a.Authenticate(context.Background(), testToken)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "op-1" || got.Name != "alice" {
		t.Fatalf("unexpected operator: %+v", got)
	}
}

func TestPostgresAuthenticator_WrongToken(t *testing.T) {
	op := &Operator{ID: "op-1", Name: "alice"}
	store := newFakeStore(t, testToken, op)
	a := NewPostgresAuthenticatorWithStore(store, time.Minute, zap.NewNop())

	// Same prefix, different suffix: bcrypt comparison must fail.
	_, err := a.Authenticate(context.Background(), testToken[:12]+"XXXXXXXX")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestPostgresAuthenticator_FailsClosedOnStoreError(t *testing.T) {
	store := &fakeOperatorStore{err: errors.New("db down")}
	a := NewPostgresAuthenticatorWithStore(store, time.Minute, zap.NewNop())

	_, err := a.Authenticate(context.Background(), testToken)
	if err == nil {
		t.Fatal("expected error when the store is unavailable")
	}
}

func TestPostgresAuthenticator_CacheSkipsStore(t *testing.T) {
	op := &Operator{ID: "op-1", Name: "alice"}
	store := newFakeStore(t, testToken, op)
	a := NewPostgresAuthenticatorWithStore(store, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := a.Authenticate(context.Background(), testToken); err != nil {
			t.Fatal(err)
		}
	}
	if n := store.lookupCount(); n != 1 {
		t.Fatalf("expected 1 store lookup, got %d", n)
	}
}

func TestPostgresAuthenticator_ShortToken(t *testing.T) {
	store := &fakeOperatorStore{rows: map[string]*operatorRow{}}
	a := NewPostgresAuthenticatorWithStore(store, time.Minute, zap.NewNop())

	_, err := a.Authenticate(context.Background(), "ogt_tiny")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if n := store.lookupCount(); n != 0 {
		t.Fatalf("store must not be queried for short tokens, got %d lookups", n)
	}
}

func TestAuthCache_StaleEntryTriggersSingleRefresh(t *testing.T) {
	c := NewAuthCache(time.Nanosecond)
	c.Set("k", &Operator{ID: "op-1"})
	time.Sleep(time.Millisecond)

	first := c.Get("k")
	if !first.Hit || !first.NeedsRefresh {
		t.Fatalf("expected stale hit needing refresh, got %+v", first)
	}
	second := c.Get("k")
	if !second.Hit || second.NeedsRefresh {
		t.Fatalf("only one caller should win the refresh, got %+v", second)
	}
}

func TestStaticAuthenticator(t *testing.T) {
	a := NewStaticAuthenticator()

	op, err := a.Authenticate(context.Background(), testToken)
	if err != nil {
		t.Fatal(err)
	}
	if op.ID == "" {
		t.Fatal("expected derived operator id")
	}

	if _, err := a.Authenticate(context.Background(), "not-a-token"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
