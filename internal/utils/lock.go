package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
)

// ArchiveLock serializes scrape runs writing to the same archive file.
type ArchiveLock struct {
	lock *flock.Flock
	path string
}

// NewArchiveLock creates a new lock for the given archive path.
func NewArchiveLock(archivePath string) (*ArchiveLock, error) {
	absPath, err := AbsArchivePath(archivePath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute archive path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &ArchiveLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Path is the lock file location.
func (l *ArchiveLock) Path() string { return l.path }

// Lock acquires the archive lock, waiting if necessary.
// It will print a message if it has to wait.
func (l *ArchiveLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		fmt.Fprintf(os.Stderr, "Another diaryscope process is writing to the archive, waiting for it to finish...\n")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// TryLock acquires the lock only if it is free.
func (l *ArchiveLock) TryLock() (bool, error) {
	return l.lock.TryLock()
}

// Unlock releases the archive lock.
func (l *ArchiveLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "diaryscope"), nil
}

// AbsArchivePath resolves the archive path, defaulting to
// ~/.config/diaryscope/diary.mem.
func AbsArchivePath(path string) (string, error) {
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "diary.mem"), nil
	}
	return filepath.Abs(path)
}

// AbsDBPath resolves the sqlite mirror path, defaulting to
// ~/.config/diaryscope/diaryscope.sqlite.
func AbsDBPath(path string) (string, error) {
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "diaryscope.sqlite"), nil
	}
	return filepath.Abs(path)
}
