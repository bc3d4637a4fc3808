/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 22:49:15 2018 mstenber
 * Last modified: Fri Mar 23 12:31:07 2018 mstenber
 * Edit time:     47 min
 *
 */

package bolt

import (
	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/mlog"
	. "github.com/fingon/go-zxtree/zxerr"
)

var nameKey = []byte("name")

// boltStore provides on-disk index storage.
//
// - bucket "name": logical name -> 16 byte section id
type boltStore struct {
	db *bbolt.DB
}

var _ index.Store = &boltStore{}

func New(path string) (index.Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, Errorf(ErrIO, "bbolt.Open %s: %s", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(nameKey)
		return err
	})
	if err != nil {
		db.Close()
		return nil, Errorf(ErrIO, "bbolt bucket: %s", err)
	}
	return &boltStore{db: db}, nil
}

func (self *boltStore) Close() error {
	return self.db.Close()
}

func (self *boltStore) Get(name string) (id uuid.UUID, found bool, err error) {
	err = self.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(nameKey).Get([]byte(name))
		if v == nil {
			return nil
		}
		found = true
		if len(v) != index.IdSize {
			return Errorf(ErrLengthMismatch, "bolt entry %q: %d bytes", name, len(v))
		}
		copy(id[:], v)
		return nil
	})
	return
}

func (self *boltStore) ForEach(cb func(e index.Entry) error) error {
	return self.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(nameKey).ForEach(func(k, v []byte) error {
			e := index.Entry{Name: string(k)}
			if len(v) != index.IdSize {
				return Errorf(ErrLengthMismatch, "bolt entry %q: %d bytes", e.Name, len(v))
			}
			copy(e.Id[:], v)
			return cb(e)
		})
	})
}

func (self *boltStore) Apply(puts []index.Entry, dels []string) error {
	mlog.Printf2("index/bolt/bolt", "bbolt.Apply %d puts %d dels", len(puts), len(dels))
	err := self.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(nameKey)
		for _, e := range puts {
			id := e.Id
			if err := b.Put([]byte(e.Name), id[:]); err != nil {
				return err
			}
		}
		for _, name := range dels {
			if err := b.Delete([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Errorf(ErrIO, "bbolt update: %s", err)
	}
	return nil
}

func (self *boltStore) Count() (n int64, err error) {
	err = self.db.View(func(tx *bbolt.Tx) error {
		n = int64(tx.Bucket(nameKey).Stats().KeyN)
		return nil
	})
	return
}
