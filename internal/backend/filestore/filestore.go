// Package filestore implements store.Store with one file per key in a
// local directory. Writes are atomic and guarded by a cross-process lock.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600

	// lockRetryDelay is how often a contended lock is retried.
	lockRetryDelay = 20 * time.Millisecond

	// LockTimeout bounds lock acquisition when ctx has no deadline.
	LockTimeout = 5 * time.Second
)

// Store is a directory of JSON value files.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created on first write.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: directory required")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file a key is stored in.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	path := s.Path(key)
	if _, err := os.Stat(s.dir); errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}

	lock, err := s.lock(ctx, path, true)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), true, nil
}

// Set implements store.Store. The value is written to a temporary file and
// renamed into place so readers never observe a partial value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	path := s.Path(key)

	lock, err := s.lock(ctx, path, false)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	return atomicWrite(path, []byte(value))
}

func (s *Store) lock(ctx context.Context, path string, shared bool) (*flock.Flock, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, LockTimeout)
		defer cancel()
	}

	lock := flock.New(path + ".lock")
	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = lock.TryRLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = lock.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("locking %s: timed out", path)
	}
	return lock, nil
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
