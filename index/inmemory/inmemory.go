/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Fri Mar 23 13:04:19 2018 mstenber
 * Edit time:     14 min
 *
 */

package inmemory

import (
	"github.com/google/uuid"

	"github.com/fingon/go-zxtree/index"
)

// inMemoryStore keeps nothing on disk; mostly useful for tests and
// throwaway storage roots.
type inMemoryStore struct {
	names map[string]uuid.UUID
}

var _ index.Store = &inMemoryStore{}

func New() index.Store {
	return &inMemoryStore{names: make(map[string]uuid.UUID)}
}

func (self *inMemoryStore) Get(name string) (id uuid.UUID, found bool, err error) {
	id, found = self.names[name]
	return
}

func (self *inMemoryStore) ForEach(cb func(e index.Entry) error) error {
	for k, v := range self.names {
		if err := cb(index.Entry{Name: k, Id: v}); err != nil {
			return err
		}
	}
	return nil
}

func (self *inMemoryStore) Apply(puts []index.Entry, dels []string) error {
	for _, e := range puts {
		self.names[e.Name] = e.Id
	}
	for _, name := range dels {
		delete(self.names, name)
	}
	return nil
}

func (self *inMemoryStore) Count() (int64, error) {
	return int64(len(self.names)), nil
}

func (self *inMemoryStore) Close() error {
	return nil
}
