// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Lock is a PID-file backed exclusive lock guarding a single running
// daemon instance per vault.
type Lock struct {
	path string
	file *os.File
}

// NewLock returns the Lock for vaultPath's daemon.
func NewLock(vaultPath string) *Lock {
	return &Lock{path: filepath.Join(vaultPath, ".soul-agent.lock")}
}

// TryAcquire attempts to take the lock without blocking. It returns false,
// nil if another live process already holds it.
func (l *Lock) TryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write lock file: %w", err)
	}

	l.file = f
	return true, nil
}

// Release drops the lock held by this process, if any.
func (l *Lock) Release() {
	if l.file != nil {
		_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
		_ = l.file.Close()
		l.file = nil
	}
}

// Holder returns the PID and start time recorded in the lock file, if one
// exists.
func (l *Lock) Holder() (pid int, startedAt time.Time, err error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, err
	}

	var ts int64
	if _, err := fmt.Sscanf(string(data), "%d %d", &pid, &ts); err != nil {
		return 0, time.Time{}, fmt.Errorf("parse lock file: %w", err)
	}
	return pid, time.Unix(ts, 0), nil
}

// IsStale reports whether the recorded holder process no longer exists.
func (l *Lock) IsStale() bool {
	pid, _, err := l.Holder()
	if err != nil || pid == 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}
