/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 16:15:41 2018 mstenber
 * Last modified: Tue Mar 20 17:02:33 2018 mstenber
 * Edit time:     41 min
 *
 */

package record

import (
	"encoding/binary"
	"time"

	. "github.com/fingon/go-zxtree/zxerr"
)

type DataType int32

const (
	DataType_UNKNOWN DataType = iota
	DataType_TEXT
	DataType_NUMBER
	DataType_BOOLEAN
	DataType_DATETIME
	DataType_BYTES
)

var dataTypeNames = map[DataType]string{
	DataType_UNKNOWN:  "unknown",
	DataType_TEXT:     "text",
	DataType_NUMBER:   "number",
	DataType_BOOLEAN:  "boolean",
	DataType_DATETIME: "dateTime",
	DataType_BYTES:    "bytes",
}

func (self DataType) String() string {
	if s, ok := dataTypeNames[self]; ok {
		return s
	}
	return "invalid"
}

// Value is a typed value boxed into flat bytes.
type Value struct {
	Type  DataType
	Bytes []byte
}

func Text(s string) Value {
	return Value{Type: DataType_TEXT, Bytes: []byte(s)}
}

func Number(n int64) Value {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(n))
	return Value{Type: DataType_NUMBER, Bytes: b}
}

func Boolean(v bool) Value {
	b := []byte{0}
	if v {
		b[0] = 1
	}
	return Value{Type: DataType_BOOLEAN, Bytes: b}
}

// DateTime keeps millisecond precision.
func DateTime(t time.Time) Value {
	v := Number(t.UnixMilli())
	v.Type = DataType_DATETIME
	return v
}

func Bytes(b []byte) Value {
	return Value{Type: DataType_BYTES, Bytes: b}
}

func (self Value) IsEmpty() bool {
	return len(self.Bytes) == 0
}

func (self Value) check(t DataType, size int) error {
	if self.Type != t {
		return Errorf(ErrUsage, "value is %v, not %v", self.Type, t)
	}
	if size >= 0 && len(self.Bytes) != size {
		return Errorf(ErrLengthMismatch, "%v value has %d bytes", t, len(self.Bytes))
	}
	return nil
}

func (self Value) Text() (string, error) {
	if err := self.check(DataType_TEXT, -1); err != nil {
		return "", err
	}
	return string(self.Bytes), nil
}

func (self Value) Number() (int64, error) {
	if err := self.check(DataType_NUMBER, 8); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(self.Bytes)), nil
}

func (self Value) Boolean() (bool, error) {
	if err := self.check(DataType_BOOLEAN, 1); err != nil {
		return false, err
	}
	return self.Bytes[0] != 0, nil
}

func (self Value) DateTime() (time.Time, error) {
	if err := self.check(DataType_DATETIME, 8); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(binary.LittleEndian.Uint64(self.Bytes))), nil
}
