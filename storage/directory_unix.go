//go:build linux || darwin

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 09:12:05 2018 mstenber
 * Last modified: Tue Mar 27 09:20:31 2018 mstenber
 * Edit time:     5 min
 *
 */

package storage

import (
	"golang.org/x/sys/unix"

	"github.com/fingon/go-zxtree/mlog"
)

func calculateAvailable(dir string) uint64 {
	var st unix.Statfs_t
	err := unix.Statfs(dir, &st)
	if err != nil {
		return 0
	}
	r := uint64(st.Bsize) * st.Bavail
	mlog.Printf2("storage/directory", "calculateAvailable %v (%v * %v)", r, st.Bsize, st.Bavail)
	return r
}
