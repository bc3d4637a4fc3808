/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 23 10:20:11 2018 mstenber
 * Last modified: Fri Mar 23 12:02:54 2018 mstenber
 * Edit time:     74 min
 *
 */

// zipindex keeps the index in a zip archive: entry name is the
// logical name, entry payload the raw 16 byte section id.
//
// archive/zip cannot update an archive in place, so every Apply
// writes a new archive next to the old one (copying untouched
// entries without recompression) and renames it over.
package zipindex

import (
	"archive/zip"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/mlog"
	. "github.com/fingon/go-zxtree/zxerr"
)

type zipStore struct {
	path   string
	reader *zip.ReadCloser
	files  map[string]*zip.File
}

var _ index.Store = &zipStore{}

// New opens (or creates, if missing) the archive at path. An empty
// file is a valid empty index.
func New(path string) (index.Store, error) {
	self := &zipStore{path: path}
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, IO(err, "zip index open")
	}
	f.Close()
	if err = self.reopen(); err != nil {
		return nil, err
	}
	return self, nil
}

func (self *zipStore) reopen() error {
	if self.reader != nil {
		self.reader.Close()
		self.reader = nil
	}
	self.files = make(map[string]*zip.File)
	fi, err := os.Stat(self.path)
	if err != nil {
		return IO(err, "zip index stat")
	}
	if fi.Size() == 0 {
		return nil
	}
	r, err := zip.OpenReader(self.path)
	if err != nil {
		return Errorf(ErrIO, "zip index %s: %s", self.path, err)
	}
	self.reader = r
	for _, f := range r.File {
		self.files[f.Name] = f
	}
	mlog.Printf2("index/zipindex/zipindex", "reopen %s: %d entries", self.path, len(self.files))
	return nil
}

func readId(f *zip.File) (id uuid.UUID, err error) {
	rc, err := f.Open()
	if err != nil {
		return
	}
	defer rc.Close()
	if _, err = io.ReadFull(rc, id[:]); err != nil {
		err = Errorf(ErrLengthMismatch, "zip entry %q: %s", f.Name, err)
	}
	return
}

func (self *zipStore) Get(name string) (id uuid.UUID, found bool, err error) {
	f, found := self.files[name]
	if !found {
		return
	}
	id, err = readId(f)
	return
}

func (self *zipStore) ForEach(cb func(e index.Entry) error) error {
	if self.reader == nil {
		return nil
	}
	for _, f := range self.reader.File {
		id, err := readId(f)
		if err != nil {
			return err
		}
		if err = cb(index.Entry{Name: f.Name, Id: id}); err != nil {
			return err
		}
	}
	return nil
}

func (self *zipStore) Apply(puts []index.Entry, dels []string) (err error) {
	skip := make(map[string]bool, len(puts)+len(dels))
	for _, e := range puts {
		skip[e.Name] = true
	}
	for _, name := range dels {
		skip[name] = true
	}
	tmp := self.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return IO(err, "zip index tmp")
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	w := zip.NewWriter(f)
	if self.reader != nil {
		for _, zf := range self.reader.File {
			if skip[zf.Name] {
				continue
			}
			if err = w.Copy(zf); err != nil {
				return IO(err, "zip copy")
			}
		}
	}
	last := make(map[string]int, len(puts))
	for i, e := range puts {
		last[e.Name] = i
	}
	for i, e := range puts {
		if last[e.Name] != i {
			continue
		}
		var ew io.Writer
		ew, err = w.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Store})
		if err != nil {
			return IO(err, "zip create")
		}
		if _, err = ew.Write(e.Id[:]); err != nil {
			return IO(err, "zip write")
		}
	}
	if err = w.Close(); err != nil {
		return IO(err, "zip close")
	}
	if err = f.Sync(); err != nil {
		return IO(err, "zip sync")
	}
	if err = f.Close(); err != nil {
		return IO(err, "zip close")
	}
	if err = os.Rename(tmp, self.path); err != nil {
		return IO(err, "zip rename")
	}
	mlog.Printf2("index/zipindex/zipindex", "apply %d puts %d dels", len(puts), len(dels))
	return self.reopen()
}

func (self *zipStore) Count() (int64, error) {
	return int64(len(self.files)), nil
}

func (self *zipStore) Close() error {
	if self.reader == nil {
		return nil
	}
	err := self.reader.Close()
	self.reader = nil
	self.files = nil
	return err
}
