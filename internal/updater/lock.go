package updater

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrLocked means another update holds the lock.
var ErrLocked = errors.New("another update is in progress")

const ownerFile = "owner"

// Lock is a held update lock. The lock is a directory: creating it is the
// atomic test-and-set, removing it releases.
type Lock struct {
	dir string
}

// AcquireLock takes the lock at dir. With force, an existing (stale) lock is
// removed first. There is no timeout.
func AcquireLock(dir string, force bool) (*Lock, error) {
	if force {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("remove stale lock %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, err
	}

	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			if owner := readOwner(dir); owner != "" {
				return nil, fmt.Errorf("%s held by %s: %w", dir, owner, ErrLocked)
			}
			return nil, fmt.Errorf("%s: %w", dir, ErrLocked)
		}
		return nil, fmt.Errorf("create lock %s: %w", dir, err)
	}

	owner := fmt.Sprintf("pid %d since %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	// the owner note is informational; the directory alone is the lock
	_ = os.WriteFile(filepath.Join(dir, ownerFile), []byte(owner), 0o644)
	return &Lock{dir: dir}, nil
}

func (l *Lock) Dir() string { return l.dir }

// Release removes the lock. Releasing twice is harmless.
func (l *Lock) Release() error {
	if err := os.RemoveAll(l.dir); err != nil {
		return fmt.Errorf("release lock %s: %w", l.dir, err)
	}
	return nil
}

func readOwner(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, ownerFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
