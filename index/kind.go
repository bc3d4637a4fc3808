/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 23 09:40:02 2018 mstenber
 * Last modified: Fri Mar 23 09:58:31 2018 mstenber
 * Edit time:     11 min
 *
 */

package index

import (
	. "github.com/fingon/go-zxtree/zxerr"
)

// Kind selects the Store variant behind an index.
type Kind int

const (
	// KindZip keeps the index in a zip archive; entry name =
	// logical name, entry payload = 16 byte section id.
	KindZip Kind = iota
	KindBolt
	KindBadger
	KindInMemory
)

var kindNames = []string{"zip", "bolt", "badger", "inMemory"}

func (self Kind) String() string {
	if self < 0 || int(self) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[self]
}

func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, Errorf(ErrUsage, "unknown index kind %q", s)
}

func (self Kind) MarshalText() ([]byte, error) {
	if self.String() == "unknown" {
		return nil, Errorf(ErrUsage, "invalid index kind %d", int(self))
	}
	return []byte(self.String()), nil
}

func (self *Kind) UnmarshalText(b []byte) (err error) {
	*self, err = ParseKind(string(b))
	return
}

func Kinds() []Kind {
	return []Kind{KindZip, KindBolt, KindBadger, KindInMemory}
}
