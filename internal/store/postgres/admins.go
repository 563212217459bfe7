package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/snapmatch/snapmatch/internal/apperr"
	"github.com/snapmatch/snapmatch/internal/store"
)

// AdminRepository provides PostgreSQL-backed admin account storage.
type AdminRepository struct {
	pool *Pool
}

// NewAdminRepository creates a new PostgreSQL admin repository.
func NewAdminRepository(pool *Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// GetByUsername returns the admin with the given username, or nil when no
// such admin exists.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*store.Admin, error) {
	query := `
		SELECT id, username, password_hash, email, created_at
		FROM admins
		WHERE username = $1
	`

	var a store.Admin
	err := r.pool.QueryRow(ctx, query, store.NormalizeUsername(username)).Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.Email,
		&a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return &a, nil
}

// Create inserts a new admin. The duplicate-username check happens before
// the insert so the caller gets a conflict, not a constraint violation.
func (r *AdminRepository) Create(ctx context.Context, username, passwordHash, email string) (*store.Admin, error) {
	username = store.NormalizeUsername(username)

	existing, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, "username already exists")
	}

	query := `
		INSERT INTO admins (username, password_hash, email)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, email, created_at
	`

	var a store.Admin
	err = r.pool.QueryRow(ctx, query, username, passwordHash, email).Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.Email,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return &a, nil
}

// Update applies a partial update to an admin by id.
func (r *AdminRepository) Update(ctx context.Context, id int64, upd store.AdminUpdate) error {
	if upd.Username != nil {
		normalized := store.NormalizeUsername(*upd.Username)
		upd.Username = &normalized
	}

	query := `
		UPDATE admins SET
			username = COALESCE($2, username),
			email = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash)
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, upd.Username, upd.Email, upd.PasswordHash)
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.NotFound, "admin not found")
	}
	return nil
}

// Delete removes an admin by id.
func (r *AdminRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM admins WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.NotFound, "admin not found")
	}
	return nil
}

// List returns all admins.
func (r *AdminRepository) List(ctx context.Context) ([]store.Admin, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, password_hash, email, created_at
		FROM admins
	`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []store.Admin
	for rows.Next() {
		var a store.Admin
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admins: %w", err)
	}
	return admins, nil
}
