package ledger

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned by Lock when another process holds the ledger.
var ErrLocked = errors.New("ledger is locked by another process")

// Lock takes an exclusive advisory lock on path+".lock" so that a pruning pass
// never overlaps a checking pass. The kernel drops the lock if the process
// dies. The returned function releases it.
func (l *Ledger) Lock() (func() error, error) {
	lockPath := l.path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		}
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}

	return func() error {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			f.Close()
			return fmt.Errorf("unlock %s: %w", lockPath, err)
		}
		return f.Close()
	}, nil
}
