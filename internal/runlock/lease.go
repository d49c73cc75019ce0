// Package runlock implements an advisory single-flight lease so two
// reconciliation runs cannot interleave their upserts. The lease is a
// pid-stamped file created with O_EXCL; a lease whose owner process is gone
// is considered stale and taken over.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// HeldError indicates another live run owns the lease.
type HeldError struct {
	Path string
	PID  int
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another run (pid %d) holds the lease at %s", e.PID, e.Path)
}

func IsHeldError(err error) bool {
	var target *HeldError
	return errors.As(err, &target)
}

type Lease struct {
	path string
}

// Acquire takes the lease or fails with HeldError. A stale lease (owner
// process no longer alive) is taken over once.
func Acquire(path string) (*Lease, error) {
	if err := create(path); err == nil {
		return &Lease{path: path}, nil
	} else if !errors.Is(err, os.ErrExist) {
		return nil, err
	}

	// Takeover runs under a flock guard so two contenders can never both
	// judge the same lease stale and the second remove a fresh lease the
	// first just created.
	guard, err := os.OpenFile(path+".guard", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lease guard: %w", err)
	}
	defer guard.Close()
	if err := syscall.Flock(int(guard.Fd()), syscall.LOCK_EX); err != nil {
		return nil, fmt.Errorf("failed to lock lease guard: %w", err)
	}
	defer syscall.Flock(int(guard.Fd()), syscall.LOCK_UN)

	pid, readErr := ownerPID(path)
	if readErr == nil && processAlive(pid) {
		return nil, &HeldError{Path: path, PID: pid}
	}

	zap.S().Named("runlock").Warnw("taking over stale lease", "path", path, "pid", pid)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove stale lease: %w", err)
	}
	if err := create(path); err != nil {
		if errors.Is(err, os.ErrExist) {
			winner, _ := ownerPID(path)
			return nil, &HeldError{Path: path, PID: winner}
		}
		return nil, err
	}
	return &Lease{path: path}, nil
}

// Release removes the lease file.
func (l *Lease) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func create(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	return err
}

func ownerPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive sends signal 0: delivery failure with ESRCH means the owner
// is gone.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return !errors.Is(err, syscall.ESRCH)
}
