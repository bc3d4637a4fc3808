/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 11:23:33 2018 mstenber
 * Last modified: Mon Mar 26 17:01:12 2018 mstenber
 * Edit time:     3 min
 *
 */

package util

import (
	"sync"
	"testing"

	"github.com/stvp/assert"
)

func TestAtomicInt(t *testing.T) {
	t.Parallel()
	var ai AtomicInt
	assert.Equal(t, ai.Get(), int64(0))
	ai.Set(31)
	assert.Equal(t, ai.Add(1), int64(32))

	var wg sync.WaitGroup
	var mu MutexLocked
	seen := map[int64]bool{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := ai.Add(1)
				unlock := mu.Locked()
				seen[v] = true
				unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, len(seen), 800)
	assert.Equal(t, ai.Get(), int64(832))
}
