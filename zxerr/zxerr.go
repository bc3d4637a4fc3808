/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 10:02:11 2018 mstenber
 * Last modified: Mon Mar 19 10:40:52 2018 mstenber
 * Edit time:     38 min
 *
 */

// zxerr holds the error categories used across the storage engine.
//
// All errors that leave a public API are errcat errors, so the caller
// can switch on errcat.Category(err) instead of parsing strings. The
// only kinds retried internally are stream contention (inside blockio)
// and section id collisions (inside storage, never surfaced).
package zxerr

import (
	"os"

	"github.com/warpfork/go-errcat"
)

type Category string

const (
	ErrModeViolation        Category = "zxtree-mode-violation"
	ErrLengthMismatch       Category = "zxtree-length-mismatch"
	ErrStreamContention     Category = "zxtree-stream-contention"
	ErrVersionCorruption    Category = "zxtree-version-corruption"
	ErrVersionMismatch      Category = "zxtree-version-mismatch"
	ErrConfigLoad           Category = "zxtree-config-load"
	ErrUnauthorized         Category = "zxtree-unauthorized"
	ErrIndexEntryExists     Category = "zxtree-index-entry-exists"
	ErrIndexEntryNotFound   Category = "zxtree-index-entry-not-found"
	ErrInvalidNodeName      Category = "zxtree-invalid-node-name"
	ErrDuplicateChildName   Category = "zxtree-duplicate-child-name"
	ErrIllegalLeafOperation Category = "zxtree-illegal-leaf-operation"
	ErrChildNotFound        Category = "zxtree-child-not-found"
	ErrNotFound             Category = "zxtree-not-found"
	ErrCodec                Category = "zxtree-codec"
	ErrUsage                Category = "zxtree-usage"
	ErrIO                   Category = "zxtree-io"
)

// Errorf is errcat.Errorf restricted to our categories.
func Errorf(c Category, format string, args ...interface{}) error {
	return errcat.Errorf(c, format, args...)
}

// Is reports whether err carries category c.
func Is(err error, c Category) bool {
	if err == nil {
		return false
	}
	return errcat.Category(err) == c
}

// IO wraps an OS-level error into ErrIO, keeping already categorized
// errors untouched. nil stays nil.
func IO(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(errcat.Error); ok {
		return err
	}
	if os.IsNotExist(err) {
		return errcat.Errorf(ErrNotFound, "%s: %s", what, err)
	}
	return errcat.Errorf(ErrIO, "%s: %s", what, err)
}
