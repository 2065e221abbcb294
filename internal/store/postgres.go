package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arjun/nft-marketplace/backend/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("already exists")

// PostgresStore handles account and profile CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the accounts and profiles tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email      VARCHAR(320) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS profiles (
			id             UUID PRIMARY KEY REFERENCES accounts(id),
			username       VARCHAR(30)  UNIQUE NOT NULL,
			email          VARCHAR(320) NOT NULL,
			balance_eth    NUMERIC(30,18) NOT NULL DEFAULT 0 CHECK (balance_eth >= 0),
			wallet_address VARCHAR(64)  NOT NULL DEFAULT '',
			is_admin       BOOLEAN      NOT NULL DEFAULT FALSE,
			bio            TEXT         NOT NULL DEFAULT '',
			website        VARCHAR(255) NOT NULL DEFAULT '',
			avatar_url     VARCHAR(255) NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ  DEFAULT NOW()
		)
	`)
	return err
}

func (s *PostgresStore) CreateAccount(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	var a models.Account
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, password)
		 VALUES ($1, $2)
		 RETURNING id, email, created_at`,
		email, passwordHash,
	).Scan(&a.ID, &a.Email, &a.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password, created_at FROM accounts WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, balance_eth, wallet_address, is_admin,
		        bio, website, avatar_url, created_at
		 FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.Email, &p.BalanceEth, &p.WalletAddress,
		&p.IsAdmin, &p.Bio, &p.Website, &p.AvatarURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// IsAdmin reports the profile flag for id. Missing rows read as false.
func (s *PostgresStore) IsAdmin(ctx context.Context, id string) (bool, error) {
	var isAdmin bool
	err := s.pool.QueryRow(ctx,
		`SELECT is_admin FROM profiles WHERE id = $1`, id,
	).Scan(&isAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isAdmin, nil
}

func (s *PostgresStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE username = $1)`, username,
	).Scan(&taken)
	return taken, err
}

// UpsertProfile creates the profile row for the given account, or refreshes
// its email if the row already exists. Idempotent; used both by signup and by
// the self-healing load path, so there is a single creation capability.
func (s *PostgresStore) UpsertProfile(ctx context.Context, id, email, username string) (*models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, username, email)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, username, email, balance_eth, wallet_address, is_admin,
		           bio, website, avatar_url, created_at`,
		id, username, email,
	).Scan(&p.ID, &p.Username, &p.Email, &p.BalanceEth, &p.WalletAddress,
		&p.IsAdmin, &p.Bio, &p.Website, &p.AvatarURL, &p.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile applies the non-nil fields of upd and returns the fresh row.
func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, upd models.ProfileUpdate) (*models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx,
		`UPDATE profiles SET
			username       = COALESCE($2, username),
			wallet_address = COALESCE($3, wallet_address),
			bio            = COALESCE($4, bio),
			website        = COALESCE($5, website),
			avatar_url     = COALESCE($6, avatar_url)
		 WHERE id = $1
		 RETURNING id, username, email, balance_eth, wallet_address, is_admin,
		           bio, website, avatar_url, created_at`,
		id, upd.Username, upd.WalletAddress, upd.Bio, upd.Website, upd.AvatarURL,
	).Scan(&p.ID, &p.Username, &p.Email, &p.BalanceEth, &p.WalletAddress,
		&p.IsAdmin, &p.Bio, &p.Website, &p.AvatarURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
