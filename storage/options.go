/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sun Mar 25 09:30:11 2018 mstenber
 * Last modified: Sun Mar 25 12:02:19 2018 mstenber
 * Edit time:     21 min
 *
 */

package storage

import (
	"time"

	"github.com/fingon/go-zxtree/acl"
	"github.com/fingon/go-zxtree/blockio"
	"github.com/fingon/go-zxtree/crypt"
)

// Options are the construction time parameters of a Provider. Zero
// values mean defaults.
type Options struct {
	// Root is the storage root directory.
	Root string

	// Identity is who is opening the root.
	Identity acl.Identity

	// Operation is checked against the root permission at open
	// time (default read).
	Operation acl.Operation

	// Crypt, if set, protects the version token and the
	// configuration file. NewOptionsWithSecrets fills it in.
	Crypt *crypt.Provider

	// Config is written as the initial configuration if the root
	// has none yet. Defaults to DefaultDbConfig().
	Config *DbConfig

	// PayloadPassword is required when the configuration asks for
	// payload encryption.
	PayloadPassword string

	// Retry is used when opening section files held by others.
	Retry blockio.Retry

	// NoWarm skips loading the whole index into memory at open.
	NoWarm bool

	// ValueUpdateInterval is how often BytesAvailable/BytesUsed
	// are refreshed in background.
	ValueUpdateInterval time.Duration
}

// NewOptionsWithSecrets returns Options for root where metadata is
// encrypted with the given secrets (both empty = unencrypted).
func NewOptionsWithSecrets(root string, who acl.Identity, token, iv string) Options {
	o := Options{Root: root, Identity: who}
	if token != "" || iv != "" {
		o.Crypt = crypt.NewProvider(token, iv)
	}
	return o
}
