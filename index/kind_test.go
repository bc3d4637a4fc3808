/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 23 09:59:10 2018 mstenber
 * Last modified: Fri Mar 23 10:04:22 2018 mstenber
 * Edit time:     5 min
 *
 */

package index

import (
	"testing"

	"github.com/stvp/assert"

	"github.com/fingon/go-zxtree/zxerr"
)

func TestKind(t *testing.T) {
	t.Parallel()
	for _, k := range Kinds() {
		b, err := k.MarshalText()
		assert.Nil(t, err)
		var k2 Kind
		assert.Nil(t, k2.UnmarshalText(b))
		assert.Equal(t, k2, k)
	}
	assert.Equal(t, KindInMemory.String(), "inMemory")
	assert.Equal(t, Kind(0), KindZip)

	_, err := ParseKind("mysql")
	assert.True(t, zxerr.Is(err, zxerr.ErrUsage))
	_, err = Kind(-1).MarshalText()
	assert.True(t, zxerr.Is(err, zxerr.ErrUsage))
}
