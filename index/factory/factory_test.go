/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:40:28 2018 mstenber
 * Last modified: Fri Mar 23 14:11:37 2018 mstenber
 * Edit time:     58 min
 *
 */

package factory

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stvp/assert"

	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/util"
	"github.com/fingon/go-zxtree/zxerr"
)

func TestFactories(t *testing.T) {
	t.Parallel()
	assert.Equal(t, len(index.Kinds()), len(storeFactories))
	_, err := NewStore(index.Kind(42), "x")
	assert.True(t, zxerr.Is(err, zxerr.ErrUsage))
}

func queryAll(t *testing.T, p index.Provider, names ...string) []index.Entry {
	r := []index.Entry{}
	for e, err := range p.Query(names) {
		assert.Nil(t, err)
		r = append(r, e)
	}
	return r
}

func ProdIndex(t *testing.T, ix index.Provider) {
	g := uuid.New()
	g2 := uuid.New()

	// Empty index: absent names map to the zero id
	assert.Equal(t, queryAll(t, ix, "x"), []index.Entry{{Name: "x", Id: uuid.Nil}})
	n, err := ix.Count()
	assert.Nil(t, err)
	assert.Equal(t, n, int64(0))

	n, err = ix.Create([]index.Entry{{Name: "x", Id: g}})
	assert.Nil(t, err)
	assert.Equal(t, n, int64(1))
	assert.Equal(t, queryAll(t, ix, "x"), []index.Entry{{Name: "x", Id: g}})

	// Re-create fails and leaves the entry alone
	_, err = ix.Create([]index.Entry{{Name: "x", Id: g2}})
	assert.True(t, zxerr.Is(err, zxerr.ErrIndexEntryExists))
	id, err := index.Lookup(ix, "x")
	assert.Nil(t, err)
	assert.Equal(t, id, g)

	// Partial application up to the failing item
	_, err = ix.Create([]index.Entry{{Name: "a", Id: g}, {Name: "b/c", Id: g2}, {Name: "x", Id: g2}, {Name: "d", Id: g}})
	assert.True(t, zxerr.Is(err, zxerr.ErrIndexEntryExists))
	assert.Equal(t, queryAll(t, ix, "d", "b/c", "a"),
		[]index.Entry{{Name: "d", Id: uuid.Nil}, {Name: "b/c", Id: g2}, {Name: "a", Id: g}})
	n, err = ix.Count()
	assert.Nil(t, err)
	assert.Equal(t, n, int64(3))

	// Duplicate within one batch is caught too
	_, err = ix.Create([]index.Entry{{Name: "e", Id: g}, {Name: "e", Id: g2}})
	assert.True(t, zxerr.Is(err, zxerr.ErrIndexEntryExists))
	id, err = index.Lookup(ix, "e")
	assert.Nil(t, err)
	assert.Equal(t, id, g)

	err = ix.Update([]index.Entry{{Name: "a", Id: g2}})
	assert.Nil(t, err)
	err = ix.Update([]index.Entry{{Name: "nope", Id: g2}})
	assert.True(t, zxerr.Is(err, zxerr.ErrIndexEntryNotFound))

	// UpdateOrCreate is idempotent
	for i := 0; i < 2; i++ {
		n, err = ix.UpdateOrCreate([]index.Entry{{Name: "a", Id: g}, {Name: "f", Id: g2}})
		assert.Nil(t, err)
		assert.Equal(t, n, int64(5))
		assert.Equal(t, queryAll(t, ix, "a", "f"),
			[]index.Entry{{Name: "a", Id: g}, {Name: "f", Id: g2}})
	}

	removed, err := ix.Delete([]string{"f", "f", "nope"})
	assert.Nil(t, err)
	assert.Equal(t, removed, int64(1))
	assert.Equal(t, queryAll(t, ix, "f"), []index.Entry{{Name: "f", Id: uuid.Nil}})
	n, err = ix.Count()
	assert.Nil(t, err)
	assert.Equal(t, n, int64(4))

	// Early exit from the lazy sequence is fine
	for e, err := range ix.Query([]string{"a", "x"}) {
		assert.Nil(t, err)
		assert.Equal(t, e.Name, "a")
		break
	}
}

func TestIndexes(t *testing.T) {
	t.Parallel()
	for _, kind := range index.Kinds() {
		for _, warm := range []bool{false, true} {
			kind := kind
			warm := warm
			t.Run(fmt.Sprintf("%v-%v", kind, warm), func(t *testing.T) {
				t.Parallel()
				dir, err := os.MkdirTemp("", "zxindex")
				assert.Nil(t, err)
				defer os.RemoveAll(dir)
				path := filepath.Join(dir, "index")

				ix, err := NewWithConfig(kind, path, warm)
				assert.Nil(t, err)
				ProdIndex(t, ix)
				assert.Nil(t, ix.Close())

				// Closed index refuses service
				_, err = ix.Count()
				assert.True(t, zxerr.Is(err, zxerr.ErrUsage))
				assert.Nil(t, ix.Close())

				if kind == index.KindInMemory {
					return
				}

				// Persistent ones remember everything
				ix, err = NewWithConfig(kind, path, warm)
				assert.Nil(t, err)
				defer ix.Close()
				n, err := ix.Count()
				assert.Nil(t, err)
				assert.Equal(t, n, int64(4))
				assert.Equal(t, queryAll(t, ix, "b/c", "f")[1].Id, uuid.Nil)
				id, err := index.Lookup(ix, "x")
				assert.Nil(t, err)
				assert.True(t, id != uuid.Nil)
			})
		}
	}
}

func TestZipEmptyFile(t *testing.T) {
	t.Parallel()
	dir, err := os.MkdirTemp("", "zxindex")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "index")
	assert.Nil(t, os.WriteFile(path, nil, 0600))

	ix, err := New(index.KindZip, path)
	assert.Nil(t, err)
	defer ix.Close()
	assert.Equal(t, queryAll(t, ix, "x"), []index.Entry{{Name: "x", Id: uuid.Nil}})
	g := uuid.New()
	_, err = ix.Create([]index.Entry{{Name: "x", Id: g}})
	assert.Nil(t, err)
	assert.Equal(t, queryAll(t, ix, "x"), []index.Entry{{Name: "x", Id: g}})
	_, err = ix.Create([]index.Entry{{Name: "x", Id: g}})
	assert.True(t, zxerr.Is(err, zxerr.ErrIndexEntryExists))
}

// TestRandomOperations drives every kind through the same random
// sequence and compares the outcome to a plain map.
func TestRandomOperations(t *testing.T) {
	t.Parallel()
	rng := util.GetSeededRng()
	seed := rng.Int63()
	for _, kind := range index.Kinds() {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()
			dir, err := os.MkdirTemp("", "zxindex")
			assert.Nil(t, err)
			defer os.RemoveAll(dir)
			ix, err := New(kind, filepath.Join(dir, "index"))
			assert.Nil(t, err)
			defer ix.Close()

			rng := rand.New(rand.NewSource(seed))
			model := map[string]uuid.UUID{}
			for i := 0; i < 200; i++ {
				name := fmt.Sprintf("n%d", rng.Intn(20))
				id := uuid.New()
				_, exists := model[name]
				switch rng.Intn(4) {
				case 0:
					_, err := ix.Create([]index.Entry{{Name: name, Id: id}})
					if exists {
						assert.True(t, zxerr.Is(err, zxerr.ErrIndexEntryExists))
					} else {
						assert.Nil(t, err)
						model[name] = id
					}
				case 1:
					err := ix.Update([]index.Entry{{Name: name, Id: id}})
					if exists {
						assert.Nil(t, err)
						model[name] = id
					} else {
						assert.True(t, zxerr.Is(err, zxerr.ErrIndexEntryNotFound))
					}
				case 2:
					_, err := ix.UpdateOrCreate([]index.Entry{{Name: name, Id: id}})
					assert.Nil(t, err)
					model[name] = id
				case 3:
					n, err := ix.Delete([]string{name})
					assert.Nil(t, err)
					if exists {
						assert.Equal(t, n, int64(1))
					} else {
						assert.Equal(t, n, int64(0))
					}
					delete(model, name)
				}
			}
			n, err := ix.Count()
			assert.Nil(t, err)
			assert.Equal(t, n, int64(len(model)))
			for i := 0; i < 20; i++ {
				name := fmt.Sprintf("n%d", i)
				got, err := index.Lookup(ix, name)
				assert.Nil(t, err)
				assert.Equal(t, got, model[name])
			}
		})
	}
}
