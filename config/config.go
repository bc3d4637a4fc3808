/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 15:30:40 2018 mstenber
 * Last modified: Thu Mar 22 09:44:18 2018 mstenber
 * Edit time:     96 min
 *
 */

// config loads and saves structured configuration as indented JSON,
// optionally passed through a crypt.Transform on the way.
//
// A configuration type opts in by embedding config.Source:
//
//	type MyConfig struct {
//		config.Source `codec:"-"`
//		Name string `codec:"name"`
//	}
//
// Open remembers where the object came from (and the transform), so
// Save without an explicit path writes it back there.
package config

import (
	"os"

	"github.com/ugorji/go/codec"

	"github.com/fingon/go-zxtree/crypt"
	"github.com/fingon/go-zxtree/mlog"
	. "github.com/fingon/go-zxtree/zxerr"
)

type Source struct {
	path   string
	secret crypt.Transform
}

func (self *Source) source() *Source {
	return self
}

// SourcePath is the file the object was loaded from (or last saved
// to), if any.
func (self *Source) SourcePath() string {
	return self.path
}

// SetSecret changes the transform used by subsequent Saves.
func (self *Source) SetSecret(secret crypt.Transform) {
	self.secret = secret
}

// Configuration is anything embedding Source.
type Configuration interface {
	source() *Source
}

var jsonHandle = func() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.Indent = 2
	h.HTMLCharsAsIs = true
	return h
}()

func Marshal(v Configuration) ([]byte, error) {
	var b []byte
	if err := codec.NewEncoderBytes(&b, jsonHandle).Encode(v); err != nil {
		return nil, Errorf(ErrUsage, "encode: %s", err)
	}
	return b, nil
}

func Unmarshal(b []byte, v Configuration) error {
	if err := codec.NewDecoderBytes(b, jsonHandle).Decode(v); err != nil {
		return Errorf(ErrConfigLoad, "decode: %s", err)
	}
	return nil
}

// Open reads path into v, decrypting first if secret is given.
func Open(path string, v Configuration, secret crypt.Transform) error {
	mlog.Printf2("config/config", "Open %v (secret:%v)", path, secret != nil)
	b, err := os.ReadFile(path)
	if err != nil {
		return Errorf(ErrConfigLoad, "read %s: %s", path, err)
	}
	text := string(b)
	if secret != nil {
		text, err = secret(text, crypt.Decrypt)
		if err != nil {
			return Errorf(ErrConfigLoad, "decrypt %s: %s", path, err)
		}
	}
	if err = Unmarshal([]byte(text), v); err != nil {
		return err
	}
	src := v.source()
	src.path = path
	src.secret = secret
	return nil
}

// Save writes v to path, or to where it was loaded from if path is
// empty.
func Save(v Configuration, path string) error {
	src := v.source()
	if path == "" {
		path = src.path
	}
	if path == "" {
		return Errorf(ErrUsage, "no target path to save configuration to")
	}
	b, err := Marshal(v)
	if err != nil {
		return err
	}
	text := string(b)
	if src.secret != nil {
		text, err = src.secret(text, crypt.Encrypt)
		if err != nil {
			return err
		}
	}
	mlog.Printf2("config/config", "Save %v (%d bytes)", path, len(text))
	if err = writeFileAtomic(path, []byte(text)); err != nil {
		return err
	}
	src.path = path
	return nil
}

func writeFileAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return IO(err, "write "+tmp)
	}
	return IO(os.Rename(tmp, path), "rename "+tmp)
}
