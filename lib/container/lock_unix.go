// Copyright 2026 The Atelier Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package container

import (
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/atelier-store/atelier/lib/codec"
)

// lockHeader takes a POSIX record lock over the header region of f,
// blocking until it is granted. Record locks are advisory and
// per-process; they serialize header access between cooperating
// processes, not goroutines sharing one descriptor.
func lockHeader(f *os.File, exclusive bool) error {
	lockType := int16(unix.F_RDLCK)
	if exclusive {
		lockType = unix.F_WRLCK
	}
	return unix.FcntlFlock(f.Fd(), unix.F_SETLKW, &unix.Flock_t{
		Type:   lockType,
		Whence: io.SeekStart,
		Start:  0,
		Len:    codec.HeaderReserve,
	})
}

// unlockHeader releases the header record lock.
func unlockHeader(f *os.File) error {
	return unix.FcntlFlock(f.Fd(), unix.F_SETLK, &unix.Flock_t{
		Type:   unix.F_UNLCK,
		Whence: io.SeekStart,
		Start:  0,
		Len:    codec.HeaderReserve,
	})
}
