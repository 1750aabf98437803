package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// activityLogLimit bounds the per-address activity log. Older entries are
// pruned as new ones arrive.
const activityLogLimit = 50

const (
	ActionDeposit  = "deposit"
	ActionWithdraw = "withdraw"
)

// Activity is one recorded vault movement.
type Activity struct {
	Action    string    `json:"action"`
	Amount    string    `json:"amount"`
	Hash      string    `json:"hash,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Totals are the locally tracked cumulative deposit and withdrawal sums for
// one address. They are bookkeeping, not ground truth; the remote vault
// balance is the value of record when the two disagree.
type Totals struct {
	Deposited string `json:"deposited"`
	Withdrawn string `json:"withdrawn"`
}

// Repository defines persistent storage for vault bookkeeping.
type Repository interface {
	RecordActivity(ctx context.Context, address, action, amount, hash string) error
	Totals(ctx context.Context, address string) (Totals, error)
	Activities(ctx context.Context, address string, limit int) ([]Activity, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL vault bookkeeping repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// RecordActivity appends one movement to the bounded log and folds its amount
// into the cumulative totals. Log, prune and totals update commit together.
func (r *PgRepository) RecordActivity(ctx context.Context, address, action, amount, hash string) error {
	if action != ActionDeposit && action != ActionWithdraw {
		return fmt.Errorf("unknown vault action %q", action)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning activity record: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO vault_activity (address, action, amount, tx_hash)
		 VALUES ($1, $2, $3::numeric, $4)`,
		address, action, amount, hash); err != nil {
		return fmt.Errorf("inserting vault activity: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM vault_activity
		 WHERE address = $1 AND id NOT IN (
			SELECT id FROM vault_activity
			WHERE address = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		 )`, address, activityLogLimit); err != nil {
		return fmt.Errorf("pruning vault activity: %w", err)
	}

	depositDelta, withdrawDelta := amount, "0"
	if action == ActionWithdraw {
		depositDelta, withdrawDelta = "0", amount
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO vault_totals (address, total_deposited, total_withdrawn)
		 VALUES ($1, $2::numeric, $3::numeric)
		 ON CONFLICT (address)
		 DO UPDATE SET
			total_deposited = vault_totals.total_deposited + $2::numeric,
			total_withdrawn = vault_totals.total_withdrawn + $3::numeric,
			updated_at = NOW()`,
		address, depositDelta, withdrawDelta); err != nil {
		return fmt.Errorf("updating vault totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing activity record: %w", err)
	}
	return nil
}

func (r *PgRepository) Totals(ctx context.Context, address string) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx,
		`SELECT total_deposited::text, total_withdrawn::text
		 FROM vault_totals
		 WHERE address = $1`, address).Scan(&t.Deposited, &t.Withdrawn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Totals{Deposited: "0", Withdrawn: "0"}, nil
		}
		return Totals{}, fmt.Errorf("loading vault totals: %w", err)
	}
	return t, nil
}

func (r *PgRepository) Activities(ctx context.Context, address string, limit int) ([]Activity, error) {
	if limit <= 0 || limit > activityLogLimit {
		limit = activityLogLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT action, amount::text, tx_hash, created_at
		 FROM vault_activity
		 WHERE address = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("listing vault activity: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.Action, &a.Amount, &a.Hash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning vault activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vault activity: %w", err)
	}
	return activities, nil
}
