/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sun Mar 25 13:10:27 2018 mstenber
 * Last modified: Sun Mar 25 17:52:30 2018 mstenber
 * Edit time:     122 min
 *
 */

package storage

import (
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fingon/go-zxtree/acl"
	"github.com/fingon/go-zxtree/blockio"
	"github.com/fingon/go-zxtree/config"
	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/mlog"
	"github.com/fingon/go-zxtree/record"
	. "github.com/fingon/go-zxtree/zxerr"
)

// Item is one path -> value pair for WriteMany.
type Item struct {
	Path  string
	Value record.Value
}

var headerCursor = blockio.Cursor{Position: 0, Length: record.HeaderSize}

func (self *Provider) openSection(id uuid.UUID, mode blockio.Mode) (*blockio.Block, error) {
	return blockio.OpenWithRetry(self.sectionPath(id), mode, self.Retry)
}

// readHeader returns the zero header for sections that have never
// been written.
func readHeader(b *blockio.Block) (h record.Header, err error) {
	size, err := b.Size()
	if err != nil || size < record.HeaderSize {
		return
	}
	buf, err := b.Get(headerCursor)
	if err != nil {
		return
	}
	err = h.UnmarshalBinary(buf)
	return
}

// A section is empty if it has never been written or it has been
// zeroed by Delete. Empty values with a type are not.
func sectionEmpty(h *record.Header) bool {
	return h.DataType == record.DataType_UNKNOWN && h.IsEmpty()
}

func (self *Provider) checkEntry(path string, h *record.Header, op acl.Operation) error {
	p := acl.FromWord(h.Permissions).OrDefault(acl.Shared)
	if !acl.CheckPermission(int64(h.OwnerId), int64(h.GroupId), p, op, self.Identity) {
		return Errorf(ErrUnauthorized, "%v denied for %d on %q (%v)", op, self.Identity.Id, path, p)
	}
	if op != acl.OpRead && h.ReadOnly {
		return Errorf(ErrUnauthorized, "%q is read-only", path)
	}
	return nil
}

func fitsInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// headerIds returns the owner and group recorded in new entry
// headers. Ids that do not fit the header are refused rather than
// truncated, as a truncated owner would match someone else.
func (self *Provider) headerIds() (owner, group int32, err error) {
	if !fitsInt32(self.Identity.Id) {
		err = Errorf(ErrUsage, "identity %d does not fit an entry header", self.Identity.Id)
		return
	}
	if !fitsInt32(self.config.GroupId) {
		err = Errorf(ErrUsage, "group %d does not fit an entry header", self.config.GroupId)
		return
	}
	return int32(self.Identity.Id), int32(self.config.GroupId), nil
}

// payloadCursor validates the payload range of h against the
// section size.
func payloadCursor(b *blockio.Block, path string, h *record.Header) (c blockio.Cursor, err error) {
	size, err := b.Size()
	if err != nil {
		return
	}
	if h.Address < record.HeaderSize || h.Size < 0 || h.Address > size || h.Size > size-h.Address {
		err = Errorf(ErrLengthMismatch, "entry %q claims payload %d+%d in a %d byte section",
			path, h.Address, h.Size, size)
		return
	}
	return blockio.Cursor{Position: h.Address, Length: h.Size}, nil
}

func (self *Provider) lookup(path string) (id uuid.UUID, err error) {
	id, err = index.Lookup(self.index, path)
	if err == nil && id == uuid.Nil {
		err = Errorf(ErrNotFound, "no entry %q", path)
	}
	return
}

// Read returns the value stored at path.
func (self *Provider) Read(path string) (record.Value, error) {
	defer self.lock.RLocked()()
	if err := self.check(); err != nil {
		return record.Value{}, err
	}
	return self.read(path)
}

// ReadMany reads paths in order, stopping at the first failure.
func (self *Provider) ReadMany(paths []string) (values []record.Value, err error) {
	defer self.lock.RLocked()()
	if err = self.check(); err != nil {
		return
	}
	for _, path := range paths {
		var v record.Value
		if v, err = self.read(path); err != nil {
			return
		}
		values = append(values, v)
	}
	return
}

// Stat returns the header of the entry at path.
func (self *Provider) Stat(path string) (h record.Header, err error) {
	defer self.lock.RLocked()()
	if err = self.check(); err != nil {
		return
	}
	id, err := self.lookup(path)
	if err != nil {
		return
	}
	b, err := self.openExistingSection(path, id, blockio.ModeRead)
	if err != nil {
		return
	}
	defer b.Close()
	if h, err = readHeader(b); err != nil {
		return
	}
	if sectionEmpty(&h) {
		err = Errorf(ErrNotFound, "entry %q is empty", path)
		return
	}
	err = self.checkEntry(path, &h, acl.OpRead)
	return
}

func (self *Provider) openExistingSection(path string, id uuid.UUID, mode blockio.Mode) (*blockio.Block, error) {
	if _, err := os.Stat(self.sectionPath(id)); os.IsNotExist(err) {
		return nil, Errorf(ErrNotFound, "section %v of %q is missing", id, path)
	}
	return self.openSection(id, mode)
}

func (self *Provider) read(path string) (v record.Value, err error) {
	id, err := self.lookup(path)
	if err != nil {
		return
	}
	b, err := self.openExistingSection(path, id, blockio.ModeRead)
	if err != nil {
		return
	}
	defer b.Close()
	h, err := readHeader(b)
	if err != nil {
		return
	}
	if sectionEmpty(&h) {
		err = Errorf(ErrNotFound, "entry %q is empty", path)
		return
	}
	if err = self.checkEntry(path, &h, acl.OpRead); err != nil {
		return
	}
	c, err := payloadCursor(b, path, &h)
	if err != nil {
		return
	}
	data, err := b.Get(c)
	if err != nil {
		return
	}
	if data, err = self.codec.DecodeBytes(data, id[:]); err != nil {
		return
	}
	mlog.Printf2("storage/section", "read %q from %v: %v %d b", path, id, h.DataType, len(data))
	return record.Value{Type: h.DataType, Bytes: data}, nil
}

// Write stores v at path, allocating a section if path is new.
func (self *Provider) Write(path string, v record.Value) error {
	defer self.lock.Locked()()
	if err := self.check(); err != nil {
		return err
	}
	return self.write(path, v)
}

// WriteMany writes items in order, stopping at the first failure;
// what was written before it stays written.
func (self *Provider) WriteMany(items []Item) (n int, err error) {
	defer self.lock.Locked()()
	if err = self.check(); err != nil {
		return
	}
	for _, item := range items {
		if err = self.write(item.Path, item.Value); err != nil {
			return
		}
		n++
	}
	return
}

func (self *Provider) allocateSection() (id uuid.UUID, err error) {
	cfg := self.config
	id, ok := cfg.allocateFree()
	if !ok {
		if int64(len(cfg.Sections)) >= cfg.MaxSectionIndexSize {
			err = Errorf(ErrUsage, "section limit %d reached", cfg.MaxSectionIndexSize)
			return
		}
		if id, err = self.CreateSection(); err != nil {
			return
		}
	}
	cfg.Sections = append(cfg.Sections, id)
	cfg.CurrentSectionId = id
	return
}

func (self *Provider) write(path string, v record.Value) (err error) {
	if v.Type == record.DataType_UNKNOWN {
		return Errorf(ErrUsage, "value for %q has no type", path)
	}
	id, err := index.Lookup(self.index, path)
	if err != nil {
		return
	}
	fresh := id == uuid.Nil
	owner, group, idErr := self.headerIds()
	if fresh && idErr != nil {
		return idErr
	}
	indexed := !fresh
	if fresh {
		if id, err = self.allocateSection(); err != nil {
			return
		}
		defer func() {
			if err != nil && !indexed {
				self.config.release(id)
			}
		}()
	}
	b, err := self.openSection(id, blockio.ModeReadWrite)
	if err != nil {
		return
	}
	defer b.Close()

	var h record.Header
	if !fresh {
		if h, err = readHeader(b); err != nil {
			return
		}
		if sectionEmpty(&h) {
			h = record.Header{}
		} else if err = self.checkEntry(path, &h, acl.OpWrite); err != nil {
			return
		}
	}
	oldSize := h.Size
	payload, err := self.codec.EncodeBytes(v.Bytes, id[:])
	if err != nil {
		return
	}
	if h.TimeCreated == 0 {
		if idErr != nil {
			return idErr
		}
		h.OwnerId = owner
		h.GroupId = group
		h.Permissions = self.config.Permission().ToWord()
	}
	h.DataType = v.Type
	h.Address = record.HeaderSize
	h.Size = int64(len(payload))
	h.Touch(time.Now())

	if len(payload) > 0 {
		if err = b.Put(blockio.Cursor{Position: h.Address, Length: h.Size}, payload); err != nil {
			return
		}
	}
	if oldSize > h.Size {
		tail := blockio.Cursor{Position: h.Address + h.Size, Length: oldSize - h.Size}
		if err = b.Zero(tail); err != nil {
			return
		}
	}
	hb, err := h.MarshalBinary()
	if err != nil {
		return
	}
	if err = b.Put(headerCursor, hb); err != nil {
		return
	}
	if err = b.Sync(); err != nil {
		return
	}
	mlog.Printf2("storage/section", "write %q to %v: %v %d b (fresh:%v)", path, id, v.Type, h.Size, fresh)
	if !fresh {
		return
	}
	if _, err = self.index.Create([]index.Entry{{Name: path, Id: id}}); err != nil {
		return
	}
	indexed = true
	return config.Save(self.config, "")
}

// Delete removes the entry at path. The section file is zeroed and
// kept for reuse.
func (self *Provider) Delete(path string) error {
	defer self.lock.Locked()()
	if err := self.check(); err != nil {
		return err
	}
	return self.delete(path)
}

// DeleteMany deletes paths in order, stopping at the first failure.
func (self *Provider) DeleteMany(paths []string) (n int, err error) {
	defer self.lock.Locked()()
	if err = self.check(); err != nil {
		return
	}
	for _, path := range paths {
		if err = self.delete(path); err != nil {
			return
		}
		n++
	}
	return
}

func (self *Provider) delete(path string) error {
	id, err := self.lookup(path)
	if err != nil {
		return err
	}
	b, err := self.openSection(id, blockio.ModeReadWrite)
	if err != nil {
		return err
	}
	defer b.Close()
	h, err := readHeader(b)
	if err != nil {
		return err
	}
	if !sectionEmpty(&h) {
		if err = self.checkEntry(path, &h, acl.OpDelete); err != nil {
			return err
		}
	}
	size, err := b.Size()
	if err != nil {
		return err
	}
	if size > 0 {
		if err = b.Zero(blockio.Cursor{Position: 0, Length: size}); err != nil {
			return err
		}
		if err = b.Sync(); err != nil {
			return err
		}
	}
	if _, err = self.index.Delete([]string{path}); err != nil {
		return err
	}
	self.config.release(id)
	mlog.Printf2("storage/section", "delete %q from %v", path, id)
	return config.Save(self.config, "")
}

// Protect sets or clears the read-only flag of the entry at path.
// It needs write permission, but works on read-only entries.
func (self *Provider) Protect(path string, readOnly bool) error {
	defer self.lock.Locked()()
	if err := self.check(); err != nil {
		return err
	}
	id, err := self.lookup(path)
	if err != nil {
		return err
	}
	b, err := self.openExistingSection(path, id, blockio.ModeReadWrite)
	if err != nil {
		return err
	}
	defer b.Close()
	h, err := readHeader(b)
	if err != nil {
		return err
	}
	if sectionEmpty(&h) {
		return Errorf(ErrNotFound, "entry %q is empty", path)
	}
	h.ReadOnly = false
	if err = self.checkEntry(path, &h, acl.OpWrite); err != nil {
		return err
	}
	h.ReadOnly = readOnly
	hb, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	if err = b.Put(headerCursor, hb); err != nil {
		return err
	}
	return b.Sync()
}
