package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

var (
	// ErrEmptyKey is returned when a file is published without a destination.
	ErrEmptyKey = errors.New("publish key is empty")
	// ErrLocked is returned when another render holds the lock for a name.
	ErrLocked = errors.New("locked by another render")
)

// LocalStorage keeps work files in a directory and publishes by moving them
// to a destination path.
type LocalStorage struct {
	workDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// If workDir is empty, a reelgraph directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(workDir string) (*LocalStorage, error) {
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "reelgraph")
	}

	if err := os.MkdirAll(workDir, 0750); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	return &LocalStorage{workDir: workDir}, nil
}

// WorkDir returns the work directory path.
func (s *LocalStorage) WorkDir() string {
	return s.workDir
}

// WorkPath returns <workDir>/<uuid>_<name>.
func (s *LocalStorage) WorkPath(name string) string {
	return filepath.Join(s.workDir, uuid.NewString()+"_"+filepath.Base(name))
}

// Lock acquires a lock file in the work directory without blocking. The
// file is named <base>-<hash>.lock, where hash covers the whole cleaned
// name, so outputs sharing a base name in different directories do not
// collide.
func (s *LocalStorage) Lock(name string) (func() error, error) {
	lock := flock.New(filepath.Join(s.workDir, lockName(name)))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, name)
	}
	return lock.Unlock, nil
}

func lockName(name string) string {
	key := filepath.Clean(name)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Base(key) + "-" + hex.EncodeToString(sum[:6]) + ".lock"
}

// Cleanup removes the specified work files, ignoring files that are
// already gone, and returns the first error encountered.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove work file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Publish moves path to key, creating parent directories, and returns the
// absolute destination.
func (s *LocalStorage) Publish(ctx context.Context, key, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}
	if key == "" {
		return "", ErrEmptyKey
	}

	dst, err := filepath.Abs(key)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}
	if src, err := filepath.Abs(path); err == nil && src == dst {
		return dst, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}

	if err := os.Rename(path, dst); err == nil {
		return dst, nil
	}
	// Rename fails across filesystems; fall back to copy and remove.
	if err := copyFile(path, dst); err != nil {
		return "", err
	}
	_ = os.Remove(path)
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - src is a work file created by this package
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600) // #nosec G304 - dst is chosen by the operator
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination file: %w", err)
	}
	return nil
}
