/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:22:52 2018 mstenber
 * Last modified: Fri Mar 23 13:20:45 2018 mstenber
 * Edit time:     41 min
 *
 */

package factory

import (
	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/index/badger"
	"github.com/fingon/go-zxtree/index/bolt"
	"github.com/fingon/go-zxtree/index/inmemory"
	"github.com/fingon/go-zxtree/index/zipindex"
	"github.com/fingon/go-zxtree/mlog"
	. "github.com/fingon/go-zxtree/zxerr"
)

type factoryCallback func(path string) (index.Store, error)

var storeFactories = map[index.Kind]factoryCallback{
	index.KindZip:    zipindex.New,
	index.KindBolt:   bolt.New,
	index.KindBadger: badger.New,
	index.KindInMemory: func(path string) (index.Store, error) {
		return inmemory.New(), nil
	}}

// NewStore opens just the persistence layer of kind at path.
func NewStore(kind index.Kind, path string) (index.Store, error) {
	cb, ok := storeFactories[kind]
	if !ok {
		return nil, Errorf(ErrUsage, "unknown index kind %d", int(kind))
	}
	return cb(path)
}

// New opens an eagerly warmed index of kind at path.
func New(kind index.Kind, path string) (*index.Index, error) {
	return NewWithConfig(kind, path, true)
}

func NewWithConfig(kind index.Kind, path string, warm bool) (*index.Index, error) {
	mlog.Printf2("index/factory/factory", "f.NewWithConfig %v %v warm:%v", kind, path, warm)
	store, err := NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	ix, err := index.Index{Warm: warm}.Init(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return ix, nil
}
