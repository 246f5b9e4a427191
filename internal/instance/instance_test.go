//go:build unix || windows

package instance

import (
	"errors"
	"testing"
)

func TestAcquire_Exclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	if err := first.Publish("127.0.0.1:4567"); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}

	_, err = Acquire(dir)
	var running *RunningError
	if !errors.As(err, &running) {
		t.Fatalf("second Acquire() = %v, want *RunningError", err)
	}
	if running.Addr != "127.0.0.1:4567" {
		t.Errorf("Addr = %q", running.Addr)
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Error("RunningError does not match ErrAlreadyRunning")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release() failed: %v", err)
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() after Release() failed: %v", err)
	}
	defer again.Release()

	addr, err := ReadAddr(dir)
	if err != nil {
		t.Fatal(err)
	}
	if addr != "" {
		t.Errorf("stale address after release: %q", addr)
	}
}

func TestPublish_Overwrites(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	if err := lock.Publish("127.0.0.1:1111111"); err != nil {
		t.Fatal(err)
	}
	if err := lock.Publish("127.0.0.1:2"); err != nil {
		t.Fatal(err)
	}
	addr, err := ReadAddr(dir)
	if err != nil {
		t.Fatal(err)
	}
	if addr != "127.0.0.1:2" {
		t.Errorf("ReadAddr() = %q", addr)
	}
}

func TestReadAddr_NoLockFile(t *testing.T) {
	addr, err := ReadAddr(t.TempDir())
	if err != nil || addr != "" {
		t.Errorf("ReadAddr() = %q, %v", addr, err)
	}
}

func TestPublish_AfterRelease(t *testing.T) {
	lock, err := Acquire(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = lock.Release()
	if err := lock.Publish("x"); err == nil {
		t.Error("Publish() after Release() succeeded")
	}
}
