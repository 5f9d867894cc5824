package sessionsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkcm/session-client/internal/serviceerr"
	"github.com/openkcm/session-client/internal/session"
)

// Repository keeps session records in the session_records table. The record
// column holds the JSON document of the state.
type Repository struct {
	db *pgxpool.Pool
}

var _ = session.Repository(&Repository{})

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Load(ctx context.Context, key string) (state session.State, _ error) {
	if err := r.db.QueryRow(ctx, `SELECT record
FROM session_records
WHERE key = $1;`,
		key,
	).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.State{}, serviceerr.ErrNotFound
		}

		return session.State{}, fmt.Errorf("selecting from session_records: %w", err)
	}

	return state, nil
}

func (r *Repository) Save(ctx context.Context, key string, state session.State) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, `INSERT INTO session_records (key, record, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key)
	DO UPDATE SET (record, updated_at) = (EXCLUDED.record, EXCLUDED.updated_at);`,
		key, state,
	); err != nil {
		return fmt.Errorf("upserting into session_records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}

	return nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM session_records WHERE key = $1;`, key); err != nil {
		return fmt.Errorf("deleting from session_records: %w", err)
	}

	return nil
}
