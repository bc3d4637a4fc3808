/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Fri Mar 23 12:58:44 2018 mstenber
 * Edit time:     171 min
 *
 */

package badger

import (
	"github.com/dgraph-io/badger"
	"github.com/google/uuid"

	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/mlog"
	. "github.com/fingon/go-zxtree/zxerr"
)

// badgerStore provides on-disk index storage in a badger directory.
//
// - key prefix 3 + name -> 16 byte section id
type badgerStore struct {
	db *badger.DB
}

var _ index.Store = &badgerStore{}

var namePrefix = []byte("3")

func nameKey(name string) []byte {
	return append(append([]byte{}, namePrefix...), name...)
}

func New(dir string) (index.Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = mlog.FacilityLogger{Facility: "index/badger/badger"}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, Errorf(ErrIO, "badger.Open %s: %s", dir, err)
	}
	return &badgerStore{db: db}, nil
}

func (self *badgerStore) Close() error {
	return self.db.Close()
}

func decodeId(name string, v []byte) (id uuid.UUID, err error) {
	if len(v) != index.IdSize {
		err = Errorf(ErrLengthMismatch, "badger entry %q: %d bytes", name, len(v))
		return
	}
	copy(id[:], v)
	return
}

func (self *badgerStore) Get(name string) (id uuid.UUID, found bool, err error) {
	var v []byte
	err = self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(nameKey(name))
		if err == nil {
			v, err = i.ValueCopy(nil)
		}
		return err
	})
	if err == badger.ErrKeyNotFound {
		err = nil
		return
	}
	if err != nil {
		err = Errorf(ErrIO, "badger get: %s", err)
		return
	}
	found = true
	id, err = decodeId(name, v)
	return
}

func (self *badgerStore) iterate(prefetch bool, cb func(item *badger.Item) error) error {
	return self.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = prefetch
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(namePrefix); it.ValidForPrefix(namePrefix); it.Next() {
			if err := cb(it.Item()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (self *badgerStore) ForEach(cb func(e index.Entry) error) error {
	return self.iterate(true, func(item *badger.Item) error {
		name := string(item.Key()[len(namePrefix):])
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		e := index.Entry{Name: name}
		if e.Id, err = decodeId(name, v); err != nil {
			return err
		}
		return cb(e)
	})
}

func (self *badgerStore) Apply(puts []index.Entry, dels []string) error {
	mlog.Printf2("index/badger/badger", "bad.Apply %d puts %d dels", len(puts), len(dels))
	err := self.db.Update(func(txn *badger.Txn) error {
		for _, e := range puts {
			id := e.Id
			if err := txn.Set(nameKey(e.Name), id[:]); err != nil {
				return err
			}
		}
		for _, name := range dels {
			if err := txn.Delete(nameKey(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Errorf(ErrIO, "badger update: %s", err)
	}
	return nil
}

func (self *badgerStore) Count() (n int64, err error) {
	err = self.iterate(false, func(item *badger.Item) error {
		n++
		return nil
	})
	return
}
