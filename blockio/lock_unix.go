//go:build linux || darwin

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 11:33:20 2018 mstenber
 * Last modified: Mon Mar 19 12:20:12 2018 mstenber
 * Edit time:     31 min
 *
 */

package blockio

import (
	"os"

	"golang.org/x/sys/unix"
)

// shareLock emulates file share modes with advisory flock: readers
// share, writers are exclusive. The lock belongs to the open file
// description, so two opens within one process contend too.
func shareLock(f *os.File, mode Mode) (inUse bool, err error) {
	how := unix.LOCK_EX
	if mode == ModeRead {
		how = unix.LOCK_SH
	}
	err = unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return true, err
	}
	return false, err
}

func shareUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// fileAccess reports what the descriptor was opened for.
func fileAccess(f *os.File) (readable, writable bool, err error) {
	fl, err := unix.FcntlInt(f.Fd(), unix.F_GETFL, 0)
	if err != nil {
		return
	}
	switch fl & unix.O_ACCMODE {
	case unix.O_RDONLY:
		readable = true
	case unix.O_WRONLY:
		writable = true
	case unix.O_RDWR:
		readable = true
		writable = true
	}
	return
}
