/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Mar 26 12:10:05 2018 mstenber
 * Last modified: Mon Mar 26 12:41:30 2018 mstenber
 * Edit time:     24 min
 *
 */

package record

import (
	"encoding/hex"
	"strconv"
	"time"

	. "github.com/fingon/go-zxtree/zxerr"
)

func ParseDataType(s string) (DataType, error) {
	for t, name := range dataTypeNames {
		if name == s && t != DataType_UNKNOWN {
			return t, nil
		}
	}
	return DataType_UNKNOWN, Errorf(ErrUsage, "unknown data type %q", s)
}

// Parse converts the textual form of a t value (see Format).
func Parse(t DataType, s string) (v Value, err error) {
	switch t {
	case DataType_TEXT:
		return Text(s), nil
	case DataType_NUMBER:
		var n int64
		if n, err = strconv.ParseInt(s, 10, 64); err == nil {
			return Number(n), nil
		}
	case DataType_BOOLEAN:
		var b bool
		if b, err = strconv.ParseBool(s); err == nil {
			return Boolean(b), nil
		}
	case DataType_DATETIME:
		var tv time.Time
		if tv, err = time.Parse(time.RFC3339Nano, s); err == nil {
			return DateTime(tv), nil
		}
	case DataType_BYTES:
		var b []byte
		if b, err = hex.DecodeString(s); err == nil {
			return Bytes(b), nil
		}
	default:
		return v, Errorf(ErrUsage, "cannot parse %v", t)
	}
	return v, Errorf(ErrUsage, "invalid %v %q: %s", t, s, err)
}

// Format returns the textual form of the value: numbers in decimal,
// times as RFC3339 in UTC, bytes in hex.
func (self Value) Format() (string, error) {
	switch self.Type {
	case DataType_TEXT:
		return self.Text()
	case DataType_NUMBER:
		n, err := self.Number()
		return strconv.FormatInt(n, 10), err
	case DataType_BOOLEAN:
		b, err := self.Boolean()
		return strconv.FormatBool(b), err
	case DataType_DATETIME:
		t, err := self.DateTime()
		return t.UTC().Format(time.RFC3339Nano), err
	case DataType_BYTES:
		return hex.EncodeToString(self.Bytes), nil
	}
	return "", Errorf(ErrUsage, "cannot format %v", self.Type)
}
