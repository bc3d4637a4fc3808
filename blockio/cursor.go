/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 19 11:05:40 2018 mstenber
 * Last modified: Mon Mar 19 11:09:21 2018 mstenber
 * Edit time:     3 min
 *
 */

package blockio

import "fmt"

// Cursor is a byte range within a stream.
type Cursor struct {
	Position int64
	Length   int64
}

func (self Cursor) End() int64 {
	return self.Position + self.Length
}

func (self Cursor) String() string {
	return fmt.Sprintf("[%d+%d]", self.Position, self.Length)
}
