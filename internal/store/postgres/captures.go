package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/snapmatch/snapmatch/internal/store"
)

// CaptureRepository provides PostgreSQL-backed capture-session records. One
// row per browser capture session replaces the old global sentinel files, so
// concurrent sessions cannot clobber each other's state.
type CaptureRepository struct {
	pool *Pool
}

// NewCaptureRepository creates a new PostgreSQL capture repository.
func NewCaptureRepository(pool *Pool) *CaptureRepository {
	return &CaptureRepository{pool: pool}
}

// Get returns the capture record, or nil when the session has none.
func (r *CaptureRepository) Get(ctx context.Context, id string) (*store.Capture, error) {
	query := `
		SELECT id, COALESCE(recipient, ''), email_sent, created_at, updated_at
		FROM captures
		WHERE id = $1
	`

	var c store.Capture
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Recipient,
		&c.EmailSent,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capture: %w", err)
	}
	return &c, nil
}

// Reset upserts the record with a cleared recipient and sent flag. Every new
// capture starts here so a stale sent flag can never block a fresh session.
func (r *CaptureRepository) Reset(ctx context.Context, id string) error {
	query := `
		INSERT INTO captures (id, recipient, email_sent)
		VALUES ($1, NULL, FALSE)
		ON CONFLICT (id) DO UPDATE SET
			recipient = NULL,
			email_sent = FALSE,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("reset capture: %w", err)
	}
	return nil
}

// SetRecipient stores the pending recipient, creating the record if needed.
func (r *CaptureRepository) SetRecipient(ctx context.Context, id, email string) error {
	query := `
		INSERT INTO captures (id, recipient)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			recipient = EXCLUDED.recipient,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, id, email); err != nil {
		return fmt.Errorf("set capture recipient: %w", err)
	}
	return nil
}

// MarkSent sets the sent flag and clears the pending recipient.
func (r *CaptureRepository) MarkSent(ctx context.Context, id string) error {
	query := `
		INSERT INTO captures (id, recipient, email_sent)
		VALUES ($1, NULL, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			recipient = NULL,
			email_sent = TRUE,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark capture sent: %w", err)
	}
	return nil
}

// Delete removes the capture record.
func (r *CaptureRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM captures WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete capture: %w", err)
	}
	return nil
}
