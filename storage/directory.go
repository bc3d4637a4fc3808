/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 15:55:15 2018 mstenber
 * Last modified: Sun Mar 25 13:05:12 2018 mstenber
 * Edit time:     41 min
 *
 */

package storage

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

type delayedUInt64ValueCallback func() uint64

type delayedUInt64Value struct {
	interval   time.Duration
	value      uint64
	valueTime  time.Time
	valueMutex sync.Mutex
	going      bool
	callback   delayedUInt64ValueCallback
}

func (self *delayedUInt64Value) Value() uint64 {
	self.valueMutex.Lock()
	defer self.valueMutex.Unlock()
	fun := func() {
		// Calculate value without mutex
		value := self.callback()

		self.valueMutex.Lock()
		defer self.valueMutex.Unlock()

		self.value = value
		self.valueTime = time.Now()
		self.going = false
	}
	if self.valueTime.IsZero() {
		// First value is worth waiting for
		self.value = self.callback()
		self.valueTime = time.Now()
		return self.value
	}
	if self.going || self.valueTime.Add(self.interval).After(time.Now()) {
		return self.value
	}
	self.going = true
	go fun()
	return self.value

}

// directoryStats provides lazily refreshed disk usage figures of
// a storage root.
type directoryStats struct {
	available, used delayedUInt64Value
}

func (self *directoryStats) Init(dir string, interval time.Duration) {
	minimumInterval := 5 * time.Second
	if interval < minimumInterval {
		interval = minimumInterval
	}
	self.available = delayedUInt64Value{interval: interval,
		callback: func() uint64 { return calculateAvailable(dir) }}
	self.used = delayedUInt64Value{interval: interval,
		callback: func() uint64 { return calculateUsed(dir) }}
}

func calculateUsed(dir string) (sum uint64) {
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			sum += uint64(info.Size())
		}
		return nil
	})
	return sum
}
