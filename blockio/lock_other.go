//go:build !linux && !darwin

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 12:21:00 2018 mstenber
 * Last modified: Mon Mar 19 12:22:41 2018 mstenber
 * Edit time:     1 min
 *
 */

package blockio

import "os"

// No advisory locks here; the OS share semantics of os.OpenFile are
// all we get.
func shareLock(f *os.File, mode Mode) (bool, error) {
	return false, nil
}

func shareUnlock(f *os.File) error {
	return nil
}

func fileAccess(f *os.File) (readable, writable bool, err error) {
	return true, true, nil
}
