//go:build !linux && !darwin

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 27 09:20:44 2018 mstenber
 * Last modified: Tue Mar 27 09:22:10 2018 mstenber
 * Edit time:     1 min
 *
 */

package storage

import "github.com/fingon/go-zxtree/mlog"

// No statfs here; available space is reported as unknown (0).
func calculateAvailable(dir string) uint64 {
	mlog.Printf2("storage/directory", "calculateAvailable unsupported for %v", dir)
	return 0
}
