/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 11:14:11 2018 mstenber
 * Last modified: Fri Mar 23 10:12:40 2018 mstenber
 * Edit time:     96 min
 *
 */

// index package maps logical entry names to section ids.
//
// Index is the only Provider implementation; it owns the coarse lock
// and the warm in-memory cache, and delegates persistence to one of
// the Store variants (zip archive, bolt, badger, in-memory).
package index

import (
	"iter"

	"github.com/google/uuid"

	"github.com/fingon/go-zxtree/mlog"
	"github.com/fingon/go-zxtree/util"
	. "github.com/fingon/go-zxtree/zxerr"
)

// IdSize is the size of the on-disk section id payload.
const IdSize = 16

// Entry is one name -> section id mapping.
type Entry struct {
	Name string
	Id   uuid.UUID
}

// Provider is the Path Index contract.
type Provider interface {
	// Query yields one Entry per name, in input order. Absent
	// names map to uuid.Nil.
	Query(names []string) iter.Seq2[Entry, error]

	// Create adds new entries; it fails at the first name that
	// already exists. Entries before it stay applied.
	Create(items []Entry) (count int64, err error)

	// Update changes existing entries; it fails at the first name
	// that does not exist. Entries before it stay applied.
	Update(items []Entry) error

	UpdateOrCreate(items []Entry) (count int64, err error)

	// Delete removes entries; absent names are ignored.
	Delete(names []string) (removed int64, err error)

	Count() (int64, error)

	Close() error
}

// Store is the persistence substrate behind Index. Implementations
// need not be threadsafe; Index serializes all calls.
type Store interface {
	// Get returns the id stored for name, or found=false.
	Get(name string) (id uuid.UUID, found bool, err error)

	// ForEach visits every stored entry.
	ForEach(cb func(e Entry) error) error

	// Apply persists puts and then dels durably before returning.
	Apply(puts []Entry, dels []string) error

	Count() (int64, error)

	Close() error
}

type Index struct {
	// Warm causes every stored entry to be loaded into memory at
	// Init, after which the store is consulted only for writes.
	Warm bool

	store  Store
	lock   util.MutexLocked
	cache  map[string]uuid.UUID
	warmed bool
	closed bool
}

var _ Provider = &Index{}

func (self Index) Init(store Store) (*Index, error) {
	self.store = store
	self.cache = make(map[string]uuid.UUID)
	if self.Warm {
		err := store.ForEach(func(e Entry) error {
			self.cache[e.Name] = e.Id
			return nil
		})
		if err != nil {
			return nil, err
		}
		self.warmed = true
		mlog.Printf2("index/index", "warmed %d entries", len(self.cache))
	}
	return &self, nil
}

// lookup must be called with lock held.
func (self *Index) lookup(name string) (id uuid.UUID, found bool, err error) {
	if id, found = self.cache[name]; found || self.warmed {
		return
	}
	id, found, err = self.store.Get(name)
	if err == nil && found {
		self.cache[name] = id
	}
	return
}

func (self *Index) check() error {
	if self.closed {
		return Errorf(ErrUsage, "index closed")
	}
	return nil
}

func (self *Index) Query(names []string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, name := range names {
			e, err := self.get(name)
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

func (self *Index) get(name string) (e Entry, err error) {
	defer self.lock.Locked()()
	if err = self.check(); err != nil {
		return
	}
	e.Name = name
	e.Id, _, err = self.lookup(name)
	return
}

// mutate applies items one by one under one lock hold. cb decides
// per item whether it is fine; the first failure stops the batch,
// but what came before it is still flushed.
func (self *Index) mutate(items []Entry, cb func(e Entry, found bool) error) (count int64, err error) {
	defer self.lock.Locked()()
	if err = self.check(); err != nil {
		return
	}
	puts := make([]Entry, 0, len(items))
	pending := make(map[string]bool, len(items))
	for _, item := range items {
		_, found, lerr := self.lookup(item.Name)
		if lerr != nil {
			err = lerr
			break
		}
		found = found || pending[item.Name]
		if err = cb(item, found); err != nil {
			break
		}
		pending[item.Name] = true
		puts = append(puts, item)
	}
	if len(puts) > 0 {
		if aerr := self.store.Apply(puts, nil); aerr != nil {
			return 0, aerr
		}
		for _, item := range puts {
			self.cache[item.Name] = item.Id
		}
	}
	mlog.Printf2("index/index", "mutate %d/%d applied err:%v", len(puts), len(items), err)
	if err != nil {
		return
	}
	count, err = self.store.Count()
	return
}

func (self *Index) Create(items []Entry) (int64, error) {
	return self.mutate(items, func(e Entry, found bool) error {
		if found {
			return Errorf(ErrIndexEntryExists, "entry %q already exists", e.Name)
		}
		return nil
	})
}

func (self *Index) Update(items []Entry) error {
	_, err := self.mutate(items, func(e Entry, found bool) error {
		if !found {
			return Errorf(ErrIndexEntryNotFound, "entry %q not found", e.Name)
		}
		return nil
	})
	return err
}

func (self *Index) UpdateOrCreate(items []Entry) (int64, error) {
	return self.mutate(items, func(e Entry, found bool) error {
		return nil
	})
}

func (self *Index) Delete(names []string) (removed int64, err error) {
	defer self.lock.Locked()()
	if err = self.check(); err != nil {
		return
	}
	dels := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		_, found, lerr := self.lookup(name)
		if lerr != nil {
			return 0, lerr
		}
		if found && !seen[name] {
			seen[name] = true
			dels = append(dels, name)
		}
	}
	if len(dels) == 0 {
		return
	}
	if err = self.store.Apply(nil, dels); err != nil {
		return
	}
	for _, name := range dels {
		delete(self.cache, name)
	}
	removed = int64(len(dels))
	mlog.Printf2("index/index", "deleted %d", removed)
	return
}

func (self *Index) Count() (int64, error) {
	defer self.lock.Locked()()
	if err := self.check(); err != nil {
		return 0, err
	}
	return self.store.Count()
}

func (self *Index) Close() error {
	defer self.lock.Locked()()
	if self.closed {
		return nil
	}
	self.closed = true
	self.cache = nil
	return self.store.Close()
}

// Lookup is a convenience for single-name Query.
func Lookup(p Provider, name string) (id uuid.UUID, err error) {
	for e, qerr := range p.Query([]string{name}) {
		id, err = e.Id, qerr
	}
	return
}
