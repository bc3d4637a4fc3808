/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 12:24:02 2018 mstenber
 * Last modified: Tue Mar 20 14:02:55 2018 mstenber
 * Edit time:     97 min
 *
 */

// blockio provides cursor-addressed binary I/O over a single stream.
//
// A Block is opened for reading, writing or both, and refuses
// operations outside that mode. All operations on one Block are
// serialized; independent Blocks over the same file coordinate only
// through the share lock taken in Open.
package blockio

import (
	"io"
	"os"
	"time"

	"github.com/fingon/go-zxtree/mlog"
	"github.com/fingon/go-zxtree/util"
	. "github.com/fingon/go-zxtree/zxerr"
)

// Stream is what a Block can be attached to. Reading requires
// io.Reader, writing io.Writer.
type Stream interface {
	io.Seeker
}

// Block is mode-gated random access to one stream.
type Block struct {
	stream Stream
	mode   Mode
	file   *os.File // set when we opened (and locked) it ourselves
	lock   util.MutexLocked
}

// AttachTo wraps an existing stream. The stream must support the
// capability the mode asks for; *os.File streams are additionally
// checked against the access mode they were opened with.
func AttachTo(stream Stream, mode Mode) (*Block, error) {
	if !mode.valid() {
		return nil, Errorf(ErrUsage, "invalid block mode %d", mode)
	}
	_, canRead := stream.(io.Reader)
	_, canWrite := stream.(io.Writer)
	if f, ok := stream.(*os.File); ok {
		r, w, err := fileAccess(f)
		if err != nil {
			return nil, IO(err, "fcntl")
		}
		canRead = canRead && r
		canWrite = canWrite && w
	}
	if mode.allows(ModeRead) && !canRead {
		return nil, Errorf(ErrModeViolation, "stream is not readable (%v requested)", mode)
	}
	if mode.allows(ModeWrite) && !canWrite {
		return nil, Errorf(ErrModeViolation, "stream is not writable (%v requested)", mode)
	}
	return &Block{stream: stream, mode: mode}, nil
}

// Open opens the file at path with DefaultRetry. Write modes create
// a missing file; ModeRead fails with ErrNotFound instead.
func Open(path string, mode Mode) (*Block, error) {
	return OpenWithRetry(path, mode, DefaultRetry)
}

// OpenWithRetry opens the file at path. Read mode takes a shared
// lock, Write and ReadWrite an exclusive one. While another holder
// keeps the file in an incompatible mode, the open is retried as
// described by retry; when retries run out, ErrStreamContention.
func OpenWithRetry(path string, mode Mode, retry Retry) (*Block, error) {
	if !mode.valid() {
		return nil, Errorf(ErrUsage, "invalid block mode %d", mode)
	}
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(path, mode.openFlags(), 0600)
		if err != nil {
			return nil, IO(err, "open "+path)
		}
		inUse, err := shareLock(f, mode)
		if err == nil {
			mlog.Printf2("blockio/block", "Open %v %v after %d retries", path, mode, attempt)
			return &Block{stream: f, mode: mode, file: f}, nil
		}
		f.Close()
		if !inUse {
			return nil, IO(err, "lock "+path)
		}
		if attempt >= retry.Attempts {
			return nil, Errorf(ErrStreamContention, "%s still in use after %d retries", path, attempt)
		}
		d := retry.backoff(attempt + 1)
		mlog.Printf2("blockio/block", " %v in use, sleeping %v", path, d)
		time.Sleep(d)
	}
}

func (self *Block) Mode() Mode {
	return self.mode
}

func (self *Block) check(op Mode) error {
	if self.stream == nil {
		return Errorf(ErrUsage, "block is closed")
	}
	if !self.mode.allows(op) {
		return Errorf(ErrModeViolation, "block is in %v mode, %v required", self.mode, op)
	}
	return nil
}

// Get reads exactly c.Length bytes at c.Position.
func (self *Block) Get(c Cursor) ([]byte, error) {
	defer self.lock.Locked()()
	if err := self.check(ModeRead); err != nil {
		return nil, err
	}
	if c.Position < 0 || c.Length < 0 {
		return nil, Errorf(ErrUsage, "invalid cursor %v", c)
	}
	if _, err := self.stream.Seek(c.Position, io.SeekStart); err != nil {
		return nil, IO(err, "seek")
	}
	buf := make([]byte, c.Length)
	n, err := io.ReadFull(self.stream.(io.Reader), buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, Errorf(ErrLengthMismatch, "read %d bytes, wanted %v", n, c)
	}
	if err != nil {
		return nil, IO(err, "read")
	}
	return buf, nil
}

// Put writes buf at c.Position; len(buf) must equal c.Length.
func (self *Block) Put(c Cursor, buf []byte) error {
	defer self.lock.Locked()()
	if err := self.check(ModeWrite); err != nil {
		return err
	}
	if int64(len(buf)) != c.Length {
		return Errorf(ErrLengthMismatch, "buffer of %d bytes for %v", len(buf), c)
	}
	return self.put(c, buf)
}

// Zero overwrites the range with zero bytes. The stream is not
// truncated.
func (self *Block) Zero(c Cursor) error {
	defer self.lock.Locked()()
	if err := self.check(ModeWrite); err != nil {
		return err
	}
	if c.Length < 0 {
		return Errorf(ErrUsage, "invalid cursor %v", c)
	}
	return self.put(c, make([]byte, c.Length))
}

func (self *Block) put(c Cursor, buf []byte) error {
	if c.Position < 0 {
		return Errorf(ErrUsage, "invalid cursor %v", c)
	}
	if _, err := self.stream.Seek(c.Position, io.SeekStart); err != nil {
		return IO(err, "seek")
	}
	n, err := self.stream.(io.Writer).Write(buf)
	if err != nil {
		return IO(err, "write")
	}
	if n != len(buf) {
		return Errorf(ErrLengthMismatch, "wrote %d bytes of %v", n, c)
	}
	return nil
}

// Size returns the current length of the stream.
func (self *Block) Size() (int64, error) {
	defer self.lock.Locked()()
	if self.stream == nil {
		return 0, Errorf(ErrUsage, "block is closed")
	}
	n, err := self.stream.Seek(0, io.SeekEnd)
	return n, IO(err, "seek")
}

// Sync flushes an opened file to stable storage; a no-op for
// attached streams.
func (self *Block) Sync() error {
	defer self.lock.Locked()()
	if self.file == nil {
		return nil
	}
	return IO(self.file.Sync(), "sync")
}

// Close releases the share lock and the file if we opened it. The
// streams given to AttachTo are left to their owner.
func (self *Block) Close() error {
	defer self.lock.Locked()()
	self.stream = nil
	if self.file == nil {
		return nil
	}
	f := self.file
	self.file = nil
	shareUnlock(f)
	return IO(f.Close(), "close")
}
