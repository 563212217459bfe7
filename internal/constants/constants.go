// Package constants provides shared constants used across the codebase.
package constants

const (
	// MaxCredentialsUpload caps the credentials artifact upload size in bytes.
	MaxCredentialsUpload = 1 << 20

	// RecentUserLogs is how many visitor log entries the admin surface shows.
	RecentUserLogs = 100

	// ThumbMaxSize is the maximum dimension (width or height) of a generated
	// matched-image thumbnail.
	ThumbMaxSize = 320
)
