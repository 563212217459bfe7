// Package store defines the persistent records of the admin surface and the
// capture-session state machine, with interfaces the web layer depends on.
// The postgres subpackage provides the hosted implementation.
package store

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Admin is an administrative account. The password is kept only as a bcrypt
// hash and is never serialized.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdminUpdate is a partial update; nil fields are left untouched.
type AdminUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
}

// UserLog is one append-only visitor record.
type UserLog struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	IP        string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

// Capture is the per-session capture record: the keyed replacement for the
// old sentinel files. Recipient is the pending email address, EmailSent the
// one-shot dispatch flag.
type Capture struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient,omitempty"`
	EmailSent bool      `json:"email_sent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminStore manages admin accounts. Create must check username uniqueness
// explicitly and report a conflict instead of relying on the constraint
// violation.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	Create(ctx context.Context, username, passwordHash, email string) (*Admin, error)
	Update(ctx context.Context, id int64, upd AdminUpdate) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Admin, error)
}

// UserLogStore appends and reads visitor log entries. Entries are never
// updated or deleted.
type UserLogStore interface {
	Insert(ctx context.Context, email, ip string) error
	Recent(ctx context.Context, limit int) ([]UserLog, error)
	Count(ctx context.Context) (int64, error)
}

// CaptureStore manages per-session capture records.
type CaptureStore interface {
	// Get returns the record or nil when the session has no record yet.
	Get(ctx context.Context, id string) (*Capture, error)
	// Reset upserts the record with a cleared recipient and sent flag.
	Reset(ctx context.Context, id string) error
	// SetRecipient stores the pending recipient, creating the record if needed.
	SetRecipient(ctx context.Context, id, email string) error
	// MarkSent sets the sent flag and clears the pending recipient.
	MarkSent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// NormalizeUsername trims and NFC-normalizes a username so that visually
// identical spellings compare equal in uniqueness checks.
func NormalizeUsername(username string) string {
	return norm.NFC.String(strings.TrimSpace(username))
}
