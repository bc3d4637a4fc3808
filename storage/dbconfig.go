/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sun Mar 25 09:12:40 2018 mstenber
 * Last modified: Sun Mar 25 11:37:02 2018 mstenber
 * Edit time:     38 min
 *
 */

package storage

import (
	"github.com/google/uuid"

	"github.com/fingon/go-zxtree/acl"
	"github.com/fingon/go-zxtree/config"
	"github.com/fingon/go-zxtree/index"
)

const DefaultMaxSectionIndexSize = 65535

// Cipher names the payload encryption codec.
type Cipher string

const (
	CipherNone Cipher = ""
	CipherGCM  Cipher = "gcm"
	CipherSIV  Cipher = "siv"
)

// PayloadCodec describes how section payloads are encoded. The
// password itself is never stored; see Options.PayloadPassword.
type PayloadCodec struct {
	Compress   bool   `codec:"compress"`
	Cipher     Cipher `codec:"cipher"`
	Salt       string `codec:"salt"`
	Iterations int    `codec:"iterations"`
}

// DbConfig is the persisted configuration of a storage root.
type DbConfig struct {
	config.Source `codec:"-"`

	DbName              string      `codec:"dbName"`
	MaxSectionIndexSize int64       `codec:"maxSectionIndexSize"`
	CurrentSectionId    uuid.UUID   `codec:"currentSectionId"`
	Sections            []uuid.UUID `codec:"sections"`

	// FreeSections have been released by Delete and are reused
	// before new ones are created.
	FreeSections []uuid.UUID `codec:"freeSections"`

	Permissions int32 `codec:"permissions"`
	OwnerId     int64 `codec:"ownerId"`
	GroupId     int64 `codec:"groupId"`

	IndexKind    index.Kind   `codec:"indexKind"`
	PayloadCodec PayloadCodec `codec:"payloadCodec"`
}

// DefaultDbConfig returns the configuration a new root starts with
// when none is given.
func DefaultDbConfig() *DbConfig {
	return &DbConfig{MaxSectionIndexSize: DefaultMaxSectionIndexSize}
}

// Permission returns the effective root permission; the zero word
// falls back to acl.Shared.
func (self *DbConfig) Permission() acl.Permission {
	return acl.FromWord(self.Permissions).OrDefault(acl.Shared)
}

func (self *DbConfig) allocateFree() (id uuid.UUID, ok bool) {
	if len(self.FreeSections) == 0 {
		return
	}
	last := len(self.FreeSections) - 1
	id = self.FreeSections[last]
	self.FreeSections = self.FreeSections[:last]
	return id, true
}

func (self *DbConfig) release(id uuid.UUID) {
	for i, v := range self.Sections {
		if v == id {
			self.Sections = append(self.Sections[:i], self.Sections[i+1:]...)
			break
		}
	}
	self.FreeSections = append(self.FreeSections, id)
}
