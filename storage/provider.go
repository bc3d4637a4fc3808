/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sun Mar 25 10:01:33 2018 mstenber
 * Last modified: Sun Mar 25 16:44:51 2018 mstenber
 * Edit time:     167 min
 *
 */

// storage package orchestrates one storage root:
//
//	<root>/version      16 byte provider magic (optionally encrypted)
//	<root>/config       DbConfig as JSON (optionally encrypted)
//	<root>/index        Path Index (zip archive by default)
//	<root>/data/<uuid>  one section file per entry
//
// Each section holds a record.Header at offset 0 and the (codec
// encoded) payload right after it.
package storage

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/fingon/go-zxtree/acl"
	"github.com/fingon/go-zxtree/blockio"
	"github.com/fingon/go-zxtree/codec"
	"github.com/fingon/go-zxtree/config"
	"github.com/fingon/go-zxtree/crypt"
	"github.com/fingon/go-zxtree/index"
	"github.com/fingon/go-zxtree/index/factory"
	"github.com/fingon/go-zxtree/mlog"
	"github.com/fingon/go-zxtree/util"
	. "github.com/fingon/go-zxtree/zxerr"
)

const (
	VersionFile = "version"
	ConfigFile  = "config"
	IndexFile   = "index"
	DataDir     = "data"
)

// Magic is the provider identity written to the version file.
var Magic = uuid.MustParse("CE5BCD5C-B616-43AA-A104-B97D518AB949")

type Provider struct {
	Options

	dataDir string
	config  *DbConfig
	index   index.Provider
	codec   codec.Codec
	stats   directoryStats

	// lock is held shared by readers and exclusively by anything
	// that changes sections, the index or config.
	lock   util.RWMutexLocked
	closed bool
}

// New opens (bootstrapping if need be) the storage root described
// by opts. Every step must succeed for the Provider to be usable.
func New(opts Options) (*Provider, error) {
	self := &Provider{Options: opts}
	if self.Retry.Attempts == 0 && self.Retry.Backoff == nil {
		self.Retry = blockio.DefaultRetry
	}
	self.dataDir = filepath.Join(self.Root, DataDir)
	mlog.Printf2("storage/provider", "New %v as %v", self.Root, self.Identity.Id)

	if err := os.MkdirAll(self.dataDir, 0700); err != nil {
		return nil, IO(err, "mkdir "+self.dataDir)
	}
	if err := self.validateVersion(); err != nil {
		return nil, err
	}
	if err := self.loadConfig(); err != nil {
		return nil, err
	}
	p := self.config.Permission()
	if !acl.CheckPermission(self.config.OwnerId, self.config.GroupId, p, self.Operation, self.Identity) {
		return nil, Errorf(ErrUnauthorized, "%v denied for %d on %s (%v)",
			self.Operation, self.Identity.Id, self.Root, p)
	}
	c, err := self.payloadCodec()
	if err != nil {
		return nil, err
	}
	self.codec = c
	ix, err := factory.NewWithConfig(self.config.IndexKind,
		filepath.Join(self.Root, IndexFile), !self.NoWarm)
	if err != nil {
		return nil, err
	}
	self.index = ix
	self.stats.Init(self.Root, self.ValueUpdateInterval)
	return self, nil
}

func (self *Provider) validateVersion() error {
	path := filepath.Join(self.Root, VersionFile)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data := Magic[:]
		if self.Crypt != nil {
			data = self.Crypt.EncryptBytes(data)
		}
		mlog.Printf2("storage/provider", " writing new version token")
		return IO(os.WriteFile(path, data, 0600), "write "+path)
	}
	if err != nil {
		return Errorf(ErrVersionCorruption, "read %s: %s", path, err)
	}
	if self.Crypt != nil {
		b, err = self.Crypt.DecryptBytes(b)
		if err != nil {
			return Errorf(ErrVersionMismatch, "cannot decrypt version token: %s", err)
		}
	}
	if len(b) != len(Magic) {
		return Errorf(ErrVersionCorruption, "version token is %d bytes", len(b))
	}
	if !bytes.Equal(b, Magic[:]) {
		return Errorf(ErrVersionMismatch, "version token %x does not match", b)
	}
	return nil
}

func (self *Provider) loadConfig() error {
	path := filepath.Join(self.Root, ConfigFile)
	var secret crypt.Transform
	if self.Crypt != nil {
		secret = self.Crypt.Transform()
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		cfg := &DbConfig{}
		if err = config.Open(path, cfg, secret); err != nil {
			return err
		}
		self.config = cfg
		return nil
	}
	cfg := DefaultDbConfig()
	if self.Options.Config != nil {
		*cfg = *self.Options.Config
	}
	if cfg.MaxSectionIndexSize == 0 {
		cfg.MaxSectionIndexSize = DefaultMaxSectionIndexSize
	}
	if pc := &cfg.PayloadCodec; pc.Cipher != CipherNone && pc.Salt == "" {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return IO(err, "salt")
		}
		pc.Salt = hex.EncodeToString(salt)
	}
	cfg.SetSecret(secret)
	mlog.Printf2("storage/provider", " bootstrapping config %v", path)
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	self.config = cfg
	return nil
}

func (self *Provider) payloadCodec() (codec.Codec, error) {
	pc := self.config.PayloadCodec
	var codecs []codec.Codec
	password := []byte(self.PayloadPassword)
	switch pc.Cipher {
	case CipherNone:
	case CipherGCM:
		codecs = append(codecs, codec.EncryptingCodec{}.Init(password, []byte(pc.Salt), pc.Iterations))
	case CipherSIV:
		codecs = append(codecs, codec.SIVCodec{}.Init(password, []byte(pc.Salt), pc.Iterations))
	default:
		return nil, Errorf(ErrUsage, "unknown payload cipher %q", pc.Cipher)
	}
	if pc.Cipher != CipherNone && len(password) == 0 {
		return nil, Errorf(ErrUsage, "payload cipher %v needs a password", pc.Cipher)
	}
	if pc.Compress {
		codecs = append(codecs, &codec.CompressingCodec{})
	}
	mlog.Printf2("storage/provider", " payload codecs: %d", len(codecs))
	return codec.CodecChain{}.Init(codecs...), nil
}

// Config returns the live configuration. Changes take effect in
// memory immediately and on disk at SaveConfig.
func (self *Provider) Config() *DbConfig {
	return self.config
}

func (self *Provider) SaveConfig() error {
	defer self.lock.Locked()()
	if err := self.check(); err != nil {
		return err
	}
	return config.Save(self.config, "")
}

func (self *Provider) check() error {
	if self.closed {
		return Errorf(ErrUsage, "provider closed")
	}
	return nil
}

func (self *Provider) sectionPath(id uuid.UUID) string {
	return filepath.Join(self.dataDir, id.String())
}

// CreateSection reserves a new, empty section file and returns its
// id. Ids that collide with an existing file are regenerated.
func (self *Provider) CreateSection() (uuid.UUID, error) {
	for {
		id := uuid.New()
		path := self.sectionPath(id)
		if _, err := os.Stat(path); err == nil {
			mlog.Printf2("storage/provider", "CreateSection collision on %v", id)
			continue
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return uuid.Nil, IO(err, "create section")
		}
		f.Close()
		mlog.Printf2("storage/provider", "CreateSection %v", id)
		return id, nil
	}
}

// Count returns the number of entries in the index.
func (self *Provider) Count() (int64, error) {
	defer self.lock.RLocked()()
	if err := self.check(); err != nil {
		return 0, err
	}
	return self.index.Count()
}

func (self *Provider) BytesAvailable() uint64 {
	return self.stats.available.Value()
}

func (self *Provider) BytesUsed() uint64 {
	return self.stats.used.Value()
}

func (self *Provider) Close() error {
	defer self.lock.Locked()()
	if self.closed {
		return nil
	}
	self.closed = true
	mlog.Printf2("storage/provider", "Close %v", self.Root)
	return self.index.Close()
}
