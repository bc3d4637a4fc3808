/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 11:10:02 2018 mstenber
 * Last modified: Mon Mar 19 11:31:44 2018 mstenber
 * Edit time:     12 min
 *
 */

package blockio

import (
	"os"
	"time"
)

type Mode int

const (
	ModeRead Mode = iota + 1
	ModeWrite
	ModeReadWrite
)

func (self Mode) String() string {
	switch self {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeReadWrite:
		return "read-write"
	}
	return "invalid"
}

func (self Mode) valid() bool {
	return self >= ModeRead && self <= ModeReadWrite
}

// allows reports whether a block in this mode may perform op (which
// is either ModeRead or ModeWrite).
func (self Mode) allows(op Mode) bool {
	return self == ModeReadWrite || self == op
}

func (self Mode) openFlags() int {
	switch self {
	case ModeRead:
		return os.O_RDONLY
	case ModeWrite:
		return os.O_WRONLY | os.O_CREATE
	}
	return os.O_RDWR | os.O_CREATE
}

// Retry describes how Open behaves when the file is held by someone
// else with an incompatible share mode.
type Retry struct {
	// Attempts is the number of retries after the first failed try.
	Attempts int

	// Backoff returns the pause before the given (1-based) retry.
	Backoff func(attempt int) time.Duration
}

const (
	DefaultAttempts = 50
	DefaultBackoff  = 100 * time.Millisecond
)

// DefaultRetry is 50 retries with fixed 100ms pause, so roughly 5
// seconds before giving up.
var DefaultRetry = Retry{Attempts: DefaultAttempts, Backoff: FixedBackoff(DefaultBackoff)}

func FixedBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration {
		return d
	}
}

func (self Retry) backoff(attempt int) time.Duration {
	if self.Backoff == nil {
		return DefaultBackoff
	}
	return self.Backoff(attempt)
}
