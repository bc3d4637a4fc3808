/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 30 13:41:33 2017 mstenber
 * Last modified: Tue Mar 20 09:12:40 2018 mstenber
 * Edit time:     131 min
 *
 */

// mlog is maybe-log. It is a small wrapper of standard 'log' that
// prints nothing unless asked to:
//
// - the MLOG environment variable (or -mlog flag) holds a regular
// expression; only facilities matching it are printed, and what is
// not printed costs next to nothing
//
// - facility is either given explicitly (Printf2) or derived from
// the caller's source file (Printf)
//
// Every printed line is prefixed with the goroutine id so that
// interleaved storage operations can be told apart.
package mlog

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/fingon/go-zxtree/util/gid"
)

var logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)

const (
	stateUninitialized int32 = iota
	stateDisabled
	stateEnabled
)

var status int32 = stateUninitialized

var flagPattern *string

// Everything below must be used only with mutex held
var mutex sync.Mutex
var pattern string
var patternRegexp *regexp.Regexp
var facilityEnabled map[string]bool

func init() {
	flagPattern = flag.String("mlog", "", "Enable logging of facilities matching the given regular expression")
}

func setPatternLocked(p string) {
	pattern = p
	facilityEnabled = make(map[string]bool)
	if p == "" {
		patternRegexp = nil
		atomic.StoreInt32(&status, stateDisabled)
		return
	}
	patternRegexp = regexp.MustCompile(p)
	atomic.StoreInt32(&status, stateEnabled)
}

func ensureInitializedLocked() {
	if atomic.LoadInt32(&status) != stateUninitialized {
		return
	}
	p := os.Getenv("MLOG")
	if flagPattern != nil && *flagPattern != "" {
		p = *flagPattern
	}
	setPatternLocked(p)
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	return atomic.LoadInt32(&status) != stateDisabled
}

// SetLogger overrides the output logger. The returned function
// restores the previous one.
func SetLogger(l *log.Logger) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	old := logger
	logger = l
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		logger = old
	}
}

// SetPattern overrides the environment/flag provided pattern. The
// returned function restores the previous one.
func SetPattern(p string) (undo func()) {
	mutex.Lock()
	defer mutex.Unlock()
	ensureInitializedLocked()
	old := pattern
	setPatternLocked(p)
	return func() {
		mutex.Lock()
		defer mutex.Unlock()
		setPatternLocked(old)
	}
}

// Printf logs with the caller's file name as the facility. It costs
// a runtime.Caller per call when mlog is enabled; prefer Printf2.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 logs under an explicit facility, e.g. "storage/provider".
func Printf2(facility string, format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == stateDisabled {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	ensureInitializedLocked()
	if patternRegexp == nil {
		return
	}
	enabled, ok := facilityEnabled[facility]
	if !ok {
		enabled = patternRegexp.MatchString(facility)
		facilityEnabled[facility] = enabled
	}
	if !enabled {
		return
	}
	logger.Printf(fmt.Sprintf("%8d %s", gid.GetGoroutineID(), format), args...)
}
