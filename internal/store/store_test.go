package store

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"  alice  ", "alice"},
		{"alice\n", "alice"},
		// NFC folds a combining acute accent into the precomposed rune.
		{"josé", "josé"},
	}
	for _, tc := range tests {
		if got := NormalizeUsername(tc.in); got != tc.want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAdminJSONHidesPasswordHash(t *testing.T) {
	admin := Admin{
		ID:           1,
		Username:     "alice",
		PasswordHash: "$2a$10$secret",
		Email:        "alice@example.com",
	}
	data, err := json.Marshal(admin)
	if err != nil {
		t.Fatalf("marshal admin: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Errorf("password hash leaked: %s", data)
	}
}
