// Package instance keeps a single running process per data directory.
//
// The first process takes an exclusive lock on a file in the data directory
// and writes its bridge address into it. A later process fails to take the
// lock, reads the address, and asks the running process to focus instead of
// starting a second core.
package instance

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LockFile is the lock file name inside the data directory.
const LockFile = "soundboard.lock"

// ErrAlreadyRunning matches every *RunningError.
var ErrAlreadyRunning = errors.New("another instance is running")

// errLocked is returned by tryLock when another holder owns the lock.
var errLocked = errors.New("locked")

// RunningError reports that another process holds the lock.
type RunningError struct {
	// Addr is the address the running process published, if any.
	Addr string
}

// Error implements the error interface.
func (e *RunningError) Error() string {
	if e.Addr == "" {
		return ErrAlreadyRunning.Error()
	}
	return fmt.Sprintf("%s at %s", ErrAlreadyRunning, e.Addr)
}

// Is reports whether target is ErrAlreadyRunning.
func (e *RunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// Lock is a held single-instance lock.
type Lock struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// Acquire takes the lock for dir. It returns a *RunningError when another
// process holds it.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, LockFile)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := tryLock(f); err != nil {
		addr, _ := readAddr(f)
		_ = f.Close()
		if errors.Is(err, errLocked) {
			return nil, &RunningError{Addr: addr}
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return &Lock{path: path, file: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Publish records addr for later processes.
func (l *Lock) Publish(addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return os.ErrClosed
	}
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if _, err := l.file.WriteAt([]byte(addr+"\n"), 0); err != nil {
		return err
	}
	return l.file.Sync()
}

// Release clears the published address and drops the lock. The file is
// left in place so a concurrent Acquire never locks an unlinked inode.
// Releasing twice is harmless.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	errs := []error{f.Truncate(0), unlock(f), f.Close()}
	return errors.Join(errs...)
}

// ReadAddr returns the address published in dir, or "" when none is.
func ReadAddr(dir string) (string, error) {
	f, err := os.Open(filepath.Join(dir, LockFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()
	return readAddr(f)
}

func readAddr(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(f, 512))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
