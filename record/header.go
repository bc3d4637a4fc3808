/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Mar 20 15:01:12 2018 mstenber
 * Last modified: Tue Mar 20 16:12:09 2018 mstenber
 * Edit time:     54 min
 *
 */

// record defines what is stored in a section: a fixed size Header
// followed by the payload of one typed Value.
package record

import (
	"encoding/binary"
	"time"

	. "github.com/fingon/go-zxtree/zxerr"
)

// Header describes one stored value.
//
// On disk it is HeaderSize bytes, little-endian, fields in
// declaration order with no padding:
//
//	off  size  field
//	  0     4  DataType (int32)
//	  4     8  TimeCreated (int64, unix ms)
//	 12     8  TimeWritten (int64, unix ms)
//	 20     1  ReadOnly (0 or 1)
//	 21     4  OwnerId (int32)
//	 25     4  GroupId (int32)
//	 29     4  Permissions (int32)
//	 33     8  Address (int64)
//	 41     8  Size (int64)
//	 49     8  Reserved0 (int64)
//	 57     8  Reserved1 (int64)
type Header struct {
	DataType    DataType
	TimeCreated int64
	TimeWritten int64
	ReadOnly    bool
	OwnerId     int32
	GroupId     int32
	Permissions int32
	Address     int64
	Size        int64
	Reserved0   int64
	Reserved1   int64
}

const HeaderSize = 65

var order = binary.LittleEndian

func (self *Header) IsEmpty() bool {
	return self.Size == 0
}

// Touch sets the write time, and the creation time if unset.
func (self *Header) Touch(now time.Time) {
	ms := now.UnixMilli()
	if self.TimeCreated == 0 {
		self.TimeCreated = ms
	}
	self.TimeWritten = ms
}

func (self *Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	order.PutUint32(b[0:], uint32(self.DataType))
	order.PutUint64(b[4:], uint64(self.TimeCreated))
	order.PutUint64(b[12:], uint64(self.TimeWritten))
	if self.ReadOnly {
		b[20] = 1
	}
	order.PutUint32(b[21:], uint32(self.OwnerId))
	order.PutUint32(b[25:], uint32(self.GroupId))
	order.PutUint32(b[29:], uint32(self.Permissions))
	order.PutUint64(b[33:], uint64(self.Address))
	order.PutUint64(b[41:], uint64(self.Size))
	order.PutUint64(b[49:], uint64(self.Reserved0))
	order.PutUint64(b[57:], uint64(self.Reserved1))
	return b, nil
}

// UnmarshalBinary decodes the first HeaderSize bytes of b.
func (self *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return Errorf(ErrLengthMismatch, "header needs %d bytes, got %d", HeaderSize, len(b))
	}
	self.DataType = DataType(int32(order.Uint32(b[0:])))
	self.TimeCreated = int64(order.Uint64(b[4:]))
	self.TimeWritten = int64(order.Uint64(b[12:]))
	self.ReadOnly = b[20] != 0
	self.OwnerId = int32(order.Uint32(b[21:]))
	self.GroupId = int32(order.Uint32(b[25:]))
	self.Permissions = int32(order.Uint32(b[29:]))
	self.Address = int64(order.Uint64(b[33:]))
	self.Size = int64(order.Uint64(b[41:]))
	self.Reserved0 = int64(order.Uint64(b[49:]))
	self.Reserved1 = int64(order.Uint64(b[57:]))
	return nil
}
