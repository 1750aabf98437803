package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// walletRecordKey is the fixed storage key for the single wallet record.
const walletRecordKey = "stellar-wallet"

// ErrNotFound indicates that no wallet record is persisted.
var ErrNotFound = errors.New("wallet record not found")

// WalletRecord is the persisted wallet credential set. The record is always
// written wholesale and replaced as a unit, never partially updated.
type WalletRecord struct {
	PublicKey string
	SecretKey string
	IsPasskey bool
}

// Repository defines persistent storage for the wallet session record.
type Repository interface {
	Load(ctx context.Context) (WalletRecord, error)
	Save(ctx context.Context, record WalletRecord) error
	Delete(ctx context.Context) error
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL wallet session repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Load(ctx context.Context) (WalletRecord, error) {
	var rec WalletRecord
	err := r.pool.QueryRow(ctx,
		`SELECT public_key, secret_key, is_passkey
		 FROM wallet_sessions
		 WHERE storage_key = $1`, walletRecordKey).
		Scan(&rec.PublicKey, &rec.SecretKey, &rec.IsPasskey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WalletRecord{}, ErrNotFound
		}
		return WalletRecord{}, fmt.Errorf("loading wallet record: %w", err)
	}
	return rec, nil
}

func (r *PgRepository) Save(ctx context.Context, record WalletRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wallet_sessions (storage_key, public_key, secret_key, is_passkey)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (storage_key)
		 DO UPDATE SET public_key = $2, secret_key = $3, is_passkey = $4, updated_at = NOW()`,
		walletRecordKey, record.PublicKey, record.SecretKey, record.IsPasskey)
	if err != nil {
		return fmt.Errorf("saving wallet record: %w", err)
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM wallet_sessions WHERE storage_key = $1`, walletRecordKey)
	if err != nil {
		return fmt.Errorf("deleting wallet record: %w", err)
	}
	return nil
}
