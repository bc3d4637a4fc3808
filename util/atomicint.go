/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 11:21:38 2018 mstenber
 * Last modified: Mon Mar 26 16:58:40 2018 mstenber
 * Edit time:     4 min
 *
 */

package util

import "sync/atomic"

// AtomicInt is an int64 counter usable without locks; the namespace
// registry hands out node handles with it.
type AtomicInt int64

func (self *AtomicInt) Get() int64 {
	return atomic.LoadInt64((*int64)(self))
}

// Add returns the new value, so concurrent callers each see a
// distinct result.
func (self *AtomicInt) Add(value int64) int64 {
	return atomic.AddInt64((*int64)(self), value)
}

func (self *AtomicInt) Set(value int64) {
	atomic.StoreInt64((*int64)(self), value)
}
