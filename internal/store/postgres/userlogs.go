package postgres

import (
	"context"
	"fmt"

	"github.com/snapmatch/snapmatch/internal/store"
)

// UserLogRepository provides PostgreSQL-backed visitor log storage.
type UserLogRepository struct {
	pool *Pool
}

// NewUserLogRepository creates a new PostgreSQL user log repository.
func NewUserLogRepository(pool *Pool) *UserLogRepository {
	return &UserLogRepository{pool: pool}
}

// Insert appends one visitor record.
func (r *UserLogRepository) Insert(ctx context.Context, email, ip string) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO user_logs (email, ip_address) VALUES ($1, $2)", email, ip)
	if err != nil {
		return fmt.Errorf("insert user log: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (r *UserLogRepository) Recent(ctx context.Context, limit int) ([]store.UserLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, ip_address, created_at
		FROM user_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list user logs: %w", err)
	}
	defer rows.Close()

	var logs []store.UserLog
	for rows.Next() {
		var l store.UserLog
		if err := rows.Scan(&l.ID, &l.Email, &l.IP, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user logs: %w", err)
	}
	return logs, nil
}

// Count returns the total number of visitor records.
func (r *UserLogRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM user_logs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count user logs: %w", err)
	}
	return n, nil
}
