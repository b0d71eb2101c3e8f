package web

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created in the bot directory while a panel drives it.
const LockFileName = ".botpanel.lock"

// ErrLocked means another panel host already drives the bot.
var ErrLocked = errors.New("bot is in use by another panel")

// Lock is held by the panel host for the bot it drives.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the bot directory's lock without blocking.
func AcquireLock(botDir string) (*Lock, error) {
	fl := flock.New(filepath.Join(botDir, LockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, botDir)
	}
	return &Lock{fl: fl}, nil
}

// Path is the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock. A nil lock is a no-op.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.fl.Unlock()
}
