/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 24 16:42:12 2017 mstenber
 * Last modified: Thu Mar 22 13:55:09 2018 mstenber
 * Edit time:     141 min
 *
 */

// codec library is responsible for transforming section payloads
// (+ additionalData, which is the section id) to what is actually
// stored on disk. In practise this means compressing and/or
// encrypting on case-by-case basis.
//
// CodecChain makes it possible to combine multiple Codecs that do the
// particular sub-EncodeBytes/DecodeBytes steps.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/golang/snappy"
	"github.com/jacobsa/crypto/siv"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/pbkdf2"

	. "github.com/fingon/go-zxtree/zxerr"
)

// Codec
//
// Single transformation of byte slices.
type Codec interface {
	DecodeBytes(data, additionalData []byte) (ret []byte, err error)
	EncodeBytes(data, additionalData []byte) (ret []byte, err error)
}

const DefaultIterations = 12345

func deriveKey(password, salt []byte, iter, size int) []byte {
	if iter <= 0 {
		iter = DefaultIterations
	}
	return pbkdf2.Key(password, salt, iter, size, sha256.New)
}

// EncryptingCodec
//
// AES GCM based encrypting/decrypting (+authenticating) Codec. Every
// encode uses a fresh random nonce.
type EncryptingCodec struct {
	gcm cipher.AEAD
}

func (self EncryptingCodec) Init(password, salt []byte, iter int) *EncryptingCodec {
	block, err := aes.NewCipher(deriveKey(password, salt, iter, 32))
	if err != nil {
		panic(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		panic(err)
	}
	self.gcm = gcm
	return &self
}

func (self *EncryptingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var ed EncryptedData
	if err = decodeEnvelope(data, &ed); err != nil {
		return
	}
	ret, err = self.gcm.Open(nil, ed.Nonce, ed.EncryptedData, additionalData)
	if err != nil {
		err = Errorf(ErrCodec, "gcm open: %s", err)
	}
	return
}

func (self *EncryptingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	nonce := make([]byte, self.gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return
	}
	ciphertext := self.gcm.Seal(nil, nonce, data, additionalData)
	return encodeEnvelope(&EncryptedData{Nonce: nonce, EncryptedData: ciphertext})
}

// SIVCodec
//
// AES-SIV deterministic authenticated encryption: the same payload
// under the same section id always encodes the same way, which keeps
// rewrites of unchanged data byte-identical on disk.
type SIVCodec struct {
	key []byte
}

func (self SIVCodec) Init(password, salt []byte, iter int) *SIVCodec {
	self.key = deriveKey(password, salt, iter, 64)
	return &self
}

func (self *SIVCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret, err = siv.Decrypt(self.key, data, [][]byte{additionalData})
	if err != nil {
		err = Errorf(ErrCodec, "siv decrypt: %s", err)
	}
	return
}

func (self *SIVCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	return siv.Encrypt(nil, self.key, data, [][]byte{additionalData})
}

// CompressingCodec
//
// On-the-fly compressing Codec. If the result does not improve, the
// result is marked to be plaintext and passed as-is (at cost of
// envelope overhead).
type CompressingCodec struct {
}

func (self *CompressingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	var cd CompressedData
	if err = decodeEnvelope(data, &cd); err != nil {
		return
	}
	switch cd.CompressionType {
	case CompressionType_PLAIN:
		ret = cd.RawData
	case CompressionType_SNAPPY:
		ret, err = snappy.Decode(nil, cd.RawData)
		if err != nil {
			err = Errorf(ErrCodec, "snappy: %s", err)
		}
	default:
		err = Errorf(ErrCodec, "unknown compression type %d", cd.CompressionType)
	}
	return
}

func (self *CompressingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	cd := CompressedData{CompressionType: CompressionType_SNAPPY,
		RawData: snappy.Encode(nil, data)}
	if len(cd.RawData) >= len(data) {
		cd.CompressionType = CompressionType_PLAIN
		cd.RawData = data
	}
	return encodeEnvelope(&cd)
}

type CodecChain struct {
	codecs, reverseCodecs []Codec
}

// Init method initializes the codec chain.
//
// codecs are given in decryption order, so e.g.
// encrypting one should be given before compressing one.
func (self CodecChain) Init(codecs ...Codec) *CodecChain {
	self.codecs = codecs
	rc := make([]Codec, len(codecs))
	for i, c := range codecs {
		rc[len(codecs)-i-1] = c
	}
	self.reverseCodecs = rc
	return &self
}

func (self *CodecChain) Len() int {
	return len(self.codecs)
}

func (self *CodecChain) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.codecs {
		ret, err = c.DecodeBytes(ret, additionalData)
		if err != nil {
			return
		}
	}
	return
}

func (self *CodecChain) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.reverseCodecs {
		ret, err = c.EncodeBytes(ret, additionalData)
		if err != nil {
			return
		}
	}
	return
}
