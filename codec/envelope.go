/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 24 16:42:58 2017 mstenber
 * Last modified: Thu Mar 22 12:31:40 2018 mstenber
 * Edit time:     22 min
 *
 */

package codec

import (
	"github.com/ugorji/go/codec"

	. "github.com/fingon/go-zxtree/zxerr"
)

/////////////////////////////////////////////////////////////////////////////

// Envelopes are msgpack encoded, with struct fields as arrays to
// keep the overhead to a few bytes.

type EncryptedData struct {
	_struct bool `codec:",toarray"`

	// nonce used for AES GCM
	Nonce []byte

	// EncryptedData is AES GCM encrypted inner payload
	EncryptedData []byte
}

type CompressionType byte

const (
	CompressionType_UNSET CompressionType = iota

	// The data has not been compressed.
	CompressionType_PLAIN

	// The data is compressed with Snappy.
	CompressionType_SNAPPY
)

type CompressedData struct {
	_struct         bool `codec:",toarray"`
	CompressionType CompressionType
	RawData         []byte
}

var msgpackHandle = &codec.MsgpackHandle{}

func encodeEnvelope(v interface{}) (ret []byte, err error) {
	err = codec.NewEncoderBytes(&ret, msgpackHandle).Encode(v)
	return
}

func decodeEnvelope(data []byte, v interface{}) error {
	if err := codec.NewDecoderBytes(data, msgpackHandle).Decode(v); err != nil {
		return Errorf(ErrCodec, "envelope: %s", err)
	}
	return nil
}
