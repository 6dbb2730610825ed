// Package backend abstracts where cassette files live: the local
// filesystem for day-to-day recording, or S3 for sharing recorded
// fixtures between machines and CI.
package backend

import "context"

// Backend persists cassette blobs by name.
type Backend interface {
	// Write stores a cassette blob under name, replacing any previous one.
	Write(ctx context.Context, name string, data []byte) error

	// Read retrieves the cassette blob stored under name.
	Read(ctx context.Context, name string) ([]byte, error)

	// Exists reports whether a cassette is stored under name.
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes the cassette stored under name.
	Delete(ctx context.Context, name string) error

	// List returns the names of stored cassettes matching the prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
