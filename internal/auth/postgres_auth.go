package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// OperatorStore abstracts DB queries for testability.
type OperatorStore interface {
	LookupByPrefix(ctx context.Context, prefix string) (*operatorRow, error)
}

type operatorRow struct {
	OperatorID string
	Name       string
	Email      string
	TokenHash  string
}

// sqlOperatorStore is the real implementation using *sql.DB.
type sqlOperatorStore struct {
	db *sql.DB
}

func (s *sqlOperatorStore) LookupByPrefix(ctx context.Context, prefix string) (*operatorRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, token_hash
		FROM operators
		WHERE token_prefix = $1 AND disabled_at IS NULL
	`, prefix)

	var r operatorRow
	if err := row.Scan(&r.OperatorID, &r.Name, &r.Email, &r.TokenHash); err != nil {
		return nil, err
	}
	return &r, nil
}

// PostgresAuthenticator validates operator tokens against the operators table.
// Authentication always fails closed: a DB error means no identity.
type PostgresAuthenticator struct {
	store  OperatorStore
	cache  *AuthCache
	logger *zap.Logger
}

// PostgresAuthConfig configures the PostgresAuthenticator.
type PostgresAuthConfig struct {
	DB       *sql.DB
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// NewPostgresAuthenticator creates a new PostgresAuthenticator.
func NewPostgresAuthenticator(cfg PostgresAuthConfig) *PostgresAuthenticator {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &PostgresAuthenticator{
		store:  &sqlOperatorStore{db: cfg.DB},
		cache:  NewAuthCache(ttl),
		logger: cfg.Logger,
	}
}

// NewPostgresAuthenticatorWithStore creates an authenticator with a custom store (for testing).
func NewPostgresAuthenticatorWithStore(store OperatorStore, cacheTTL time.Duration, logger *zap.Logger) *PostgresAuthenticator {
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Second
	}
	return &PostgresAuthenticator{
		store:  store,
		cache:  NewAuthCache(cacheTTL),
		logger: logger,
	}
}

func (a *PostgresAuthenticator) Authenticate(ctx context.Context, raw string) (*Operator, error) {
	token, err := NormalizeToken(raw)
	if err != nil {
		return nil, err
	}

	// Check cache
	cacheResult := a.cache.Get(token)
	if cacheResult.Hit {
		if cacheResult.NeedsRefresh {
			go a.refreshInBackground(token)
		}
		return cacheResult.Operator, nil
	}

	// Cache miss — authenticate synchronously
	operator, err := a.authenticateFromDB(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("Authenticate: %w", err)
	}

	a.cache.Set(token, operator)
	return operator, nil
}

func (a *PostgresAuthenticator) authenticateFromDB(ctx context.Context, token string) (*Operator, error) {
	if len(token) < 12 {
		return nil, ErrUnauthenticated
	}
	prefix := token[:12]

	row, err := a.store.LookupByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("authenticateFromDB: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.TokenHash), []byte(token)); err != nil {
		return nil, ErrUnauthenticated
	}

	return &Operator{
		ID:    row.OperatorID,
		Name:  row.Name,
		Email: row.Email,
	}, nil
}

func (a *PostgresAuthenticator) refreshInBackground(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	operator, err := a.authenticateFromDB(ctx, token)
	if err != nil {
		a.logger.Warn("background auth refresh failed", zap.Error(err))
		return
	}
	a.cache.Set(token, operator)
}
