package sampledata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.lock")

	t.Run("lock and unlock", func(t *testing.T) {
		l, err := newFileLock(path, time.Second)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		if err := l.Lock(context.Background()); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		if err := l.Unlock(); err != nil {
			t.Errorf("Unlock() error = %v", err)
		}
		// Safe to call twice
		if err := l.Unlock(); err != nil {
			t.Errorf("second Unlock() error = %v", err)
		}
	})

	t.Run("second holder times out", func(t *testing.T) {
		first, err := newFileLock(path, time.Second)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		if err := first.Lock(context.Background()); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		defer first.Unlock()

		second, err := newFileLock(path, 50*time.Millisecond)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		defer second.Unlock()

		if err := second.Lock(context.Background()); err == nil {
			t.Error("second Lock() succeeded while the first holder has the lock")
		}
	})

	t.Run("second holder respects context", func(t *testing.T) {
		first, err := newFileLock(path, time.Second)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		if err := first.Lock(context.Background()); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		defer first.Unlock()

		second, err := newFileLock(path, time.Minute)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		defer second.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		if err := second.Lock(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Lock() error = %v, want context.DeadlineExceeded", err)
		}
	})

	t.Run("acquired after release", func(t *testing.T) {
		first, err := newFileLock(path, time.Second)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		if err := first.Lock(context.Background()); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}

		go func() {
			time.Sleep(20 * time.Millisecond)
			first.Unlock()
		}()

		second, err := newFileLock(path, 5*time.Second)
		if err != nil {
			t.Fatalf("newFileLock() error = %v", err)
		}
		defer second.Unlock()
		if err := second.Lock(context.Background()); err != nil {
			t.Errorf("Lock() error = %v", err)
		}
	})
}
