package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMutexMap_LockUnlock(t *testing.T) {
	m := NewMutexMap()

	m.Lock("jobs")
	m.Unlock("jobs")

	m.Lock("jobs")
	m.Unlock("jobs")
}

func TestMutexMap_DifferentKeys(t *testing.T) {
	m := NewMutexMap()

	done := make(chan struct{})

	m.Lock("jobs")
	go func() {
		// groups should not be blocked by jobs
		m.Lock("groups")
		m.Unlock("groups")
		close(done)
	}()

	<-done
	m.Unlock("jobs")
}

func TestMutexLocker_Concurrent(t *testing.T) {
	l := MutexLocker{Map: NewMutexMap(), Key: "jobs"}
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			atomic.AddInt64(&counter, 1)
			release()
			// second release is a no-op
			release()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("expected counter=100, got %d", counter)
	}
}

func TestFileLock_TryLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "locks", "jobs.lock")

	fl := NewFileLock(lockPath)
	if err := fl.TryLock(); err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	defer fl.Unlock()

	data, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock file content: got %q", data)
	}
}

func TestFileLock_DoubleLockRejected(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "jobs.lock")

	fl1 := NewFileLock(lockPath)
	if err := fl1.TryLock(); err != nil {
		t.Fatalf("first TryLock failed: %v", err)
	}
	defer fl1.Unlock()

	fl2 := NewFileLock(lockPath)
	err := fl2.TryLock()
	if err == nil {
		fl2.Unlock()
		t.Fatal("expected second TryLock to fail")
	}
	if !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
}

func TestFileLock_UnlockAllowsRelock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "jobs.lock")

	fl1 := NewFileLock(lockPath)
	if err := fl1.TryLock(); err != nil {
		t.Fatalf("first TryLock failed: %v", err)
	}
	if err := fl1.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	fl2 := NewFileLock(lockPath)
	if err := fl2.TryLock(); err != nil {
		t.Fatalf("re-lock after unlock failed: %v", err)
	}
	fl2.Unlock()
}

func TestFileLock_DoubleUnlockSafe(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "jobs.lock")

	fl := NewFileLock(lockPath)
	fl.TryLock()
	fl.Unlock()
	if err := fl.Unlock(); err != nil {
		t.Fatalf("double unlock should be safe, got: %v", err)
	}
}

func TestFileLock_LockTimesOut(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "jobs.lock")

	holder := NewFileLock(lockPath)
	if err := holder.TryLock(); err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	defer holder.Unlock()

	waiter := NewFileLock(lockPath)
	err := waiter.Lock(context.Background(), 120*time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !strings.Contains(err.Error(), strconv.Itoa(os.Getpid())) {
		t.Errorf("timeout error should name the holder pid: %v", err)
	}
}

func TestFileLock_LockWaitsForRelease(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "jobs.lock")

	holder := NewFileLock(lockPath)
	if err := holder.TryLock(); err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		holder.Unlock()
	}()

	waiter := NewFileLock(lockPath)
	if err := waiter.Lock(context.Background(), 5*time.Second, 10*time.Millisecond); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	waiter.Unlock()
}

func TestFileLock_LockHonoursCancel(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "jobs.lock")

	holder := NewFileLock(lockPath)
	holder.TryLock()
	defer holder.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFileLock(lockPath).Lock(ctx, 0, 10*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFileLocker_Acquire(t *testing.T) {
	dir := t.TempDir()
	l := FileLocker{Path: filepath.Join(dir, "groups.lock"), Timeout: time.Second}

	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	release, err = l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	release()
}
