// Package storage manages the render work directory and delivers finished
// files to their destination on local disk or S3.
package storage

import (
	"context"
)

// Storage defines where renders are written and how they are delivered.
type Storage interface {
	// WorkPath returns a unique path inside the work directory. The name is
	// kept as a suffix so the extension selects the container format.
	WorkPath(name string) string

	// Cleanup removes the given work files.
	// It continues even if some files fail to delete.
	Cleanup(ctx context.Context, paths []string) error

	// Publish delivers the file at path under key and returns its final
	// location: an absolute path or an object URL.
	Publish(ctx context.Context, key, path string) (location string, err error)

	// Lock takes an exclusive lock for name so that concurrent renders of
	// the same output fail fast. The returned function releases it.
	Lock(name string) (unlock func() error, err error)
}
