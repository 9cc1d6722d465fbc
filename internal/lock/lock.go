// Package lock provides the advisory locks that serialize queue mutations.
package lock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrLocked is returned by TryLock when another holder owns the lock.
	ErrLocked = errors.New("lock held by another process")
	// ErrTimeout is returned by Acquire when the lock stays busy past the deadline.
	ErrTimeout = errors.New("timed out waiting for lock")
)

const DefaultPollInterval = 50 * time.Millisecond

// Release gives a lock back. Calling it twice is safe.
type Release func() error

// Locker guards one queue's load/mutate/save cycle.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// MutexMap hands out in-process mutexes keyed by name. It backs MutexLocker
// for stores that never touch the filesystem.
type MutexMap struct {
	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

func NewMutexMap() *MutexMap {
	return &MutexMap{
		mutexes: make(map[string]*sync.Mutex),
	}
}

func (m *MutexMap) Lock(key string) {
	m.getMutex(key).Lock()
}

func (m *MutexMap) Unlock(key string) {
	m.getMutex(key).Unlock()
}

func (m *MutexMap) getMutex(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mu, ok := m.mutexes[key]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	m.mutexes[key] = mu
	return mu
}

// MutexLocker is a Locker over one key of a MutexMap.
type MutexLocker struct {
	Map *MutexMap
	Key string
}

func (l MutexLocker) Acquire(_ context.Context) (Release, error) {
	l.Map.Lock(l.Key)
	var once sync.Once
	return func() error {
		once.Do(func() { l.Map.Unlock(l.Key) })
		return nil
	}, nil
}

// FileLock is an exclusive flock(2) on a lock file. The lock file itself is
// never removed: unlinking it would let a waiter lock a stale inode.
type FileLock struct {
	path string
	file *os.File
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

func (fl *FileLock) Path() string {
	return fl.path
}

func (fl *FileLock) TryLock() error {
	if fl.file != nil {
		return fmt.Errorf("lock %s already held by this handle", fl.path)
	}
	if err := os.MkdirAll(filepath.Dir(fl.path), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrLocked
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	// Record the holder for diagnostics
	if err := f.Truncate(0); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return fmt.Errorf("write PID to lock file: %w", err)
	}

	fl.file = f
	return nil
}

// Lock blocks until the lock is acquired, ctx is done, or timeout elapses.
// A zero timeout waits for ctx alone.
func (fl *FileLock) Lock(ctx context.Context, timeout, poll time.Duration) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		err := fl.TryLock()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLocked) {
			return err
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w %s (held by pid %s)", ErrTimeout, fl.path, fl.holder())
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (fl *FileLock) holder() string {
	data, err := os.ReadFile(fl.path)
	if err != nil {
		return "unknown"
	}
	pid := string(bytes.TrimSpace(data))
	if pid == "" {
		return "unknown"
	}
	return pid
}

func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := unix.Flock(int(fl.file.Fd()), unix.LOCK_UN); err != nil {
		fl.file.Close()
		fl.file = nil
		return fmt.Errorf("release lock: %w", err)
	}

	err := fl.file.Close()
	fl.file = nil
	if err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	return nil
}

// FileLocker is a Locker that takes a fresh FileLock on every Acquire.
type FileLocker struct {
	Path    string
	Timeout time.Duration
	Poll    time.Duration
}

func (l FileLocker) Acquire(ctx context.Context) (Release, error) {
	fl := NewFileLock(l.Path)
	if err := fl.Lock(ctx, l.Timeout, l.Poll); err != nil {
		return nil, err
	}
	return fl.Unlock, nil
}
