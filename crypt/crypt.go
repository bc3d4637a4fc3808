/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 13:02:51 2018 mstenber
 * Last modified: Wed Mar 21 14:40:17 2018 mstenber
 * Edit time:     81 min
 *
 */

// crypt protects storage metadata (configuration, version token) at
// rest.
//
// Key and IV are derived from two secrets:
//
//	key = sha256(token + iv)           (32 bytes, AES-256)
//	IV  = sha1(iv + token)[:16]
//
// and data is AES-CBC with PKCS#7 padding. As the IV is fixed per
// secret pair, equal plaintexts encrypt equally; this is for
// metadata only, payloads go through codec instead.
package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/base64"

	"github.com/minio/sha256-simd"

	"github.com/fingon/go-zxtree/mlog"
	. "github.com/fingon/go-zxtree/zxerr"
)

type Direction int

const (
	Decrypt Direction = 0
	Encrypt Direction = 1
)

// Transform is the two-directional string transform used by the
// configuration loader: direction 0 decrypts, anything else
// encrypts.
type Transform func(raw string, direction Direction) (string, error)

// Provider encrypts with AES-CBC under the derived key and IV. Only
// the AES block is built at construction; each call gets its own CBC
// encrypter or decrypter, so one Provider may be shared between
// goroutines (the storage provider's version check and config
// loader use the same one).
type Provider struct {
	block cipher.Block
	iv    []byte
}

func DeriveKeyIV(token, iv string) (key, ivb []byte) {
	k := sha256.Sum256([]byte(token + iv))
	i := sha1.Sum([]byte(iv + token))
	return k[:], i[:aes.BlockSize]
}

func NewProvider(token, iv string) *Provider {
	key, ivb := DeriveKeyIV(token, iv)
	block, err := aes.NewCipher(key)
	if err != nil {
		// 32 byte key cannot fail
		panic(err)
	}
	mlog.Printf2("crypt/crypt", "NewProvider")
	return &Provider{block: block, iv: ivb}
}

func (self *Provider) EncryptBytes(raw []byte) []byte {
	padded := pad(raw, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(self.block, self.iv).CryptBlocks(out, padded)
	return out
}

func (self *Provider) DecryptBytes(enc []byte) ([]byte, error) {
	if len(enc) == 0 || len(enc)%aes.BlockSize != 0 {
		return nil, Errorf(ErrCodec, "ciphertext length %d is not a positive multiple of %d", len(enc), aes.BlockSize)
	}
	out := make([]byte, len(enc))
	cipher.NewCBCDecrypter(self.block, self.iv).CryptBlocks(out, enc)
	return unpad(out, aes.BlockSize)
}

// EncryptString returns base64 of the encrypted UTF-8 bytes.
func (self *Provider) EncryptString(raw string) string {
	return base64.StdEncoding.EncodeToString(self.EncryptBytes([]byte(raw)))
}

func (self *Provider) DecryptString(enc string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", Errorf(ErrCodec, "base64: %s", err)
	}
	b, err = self.DecryptBytes(b)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Transform returns the provider as a configuration secret transform.
func (self *Provider) Transform() Transform {
	return func(raw string, direction Direction) (string, error) {
		if direction == Decrypt {
			return self.DecryptString(raw)
		}
		return self.EncryptString(raw), nil
	}
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, Errorf(ErrCodec, "bad padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, Errorf(ErrCodec, "bad padding")
		}
	}
	return b[:len(b)-n], nil
}
