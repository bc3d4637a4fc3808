/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 09:10:44 2018 mstenber
 * Last modified: Wed Mar 21 10:31:08 2018 mstenber
 * Edit time:     72 min
 *
 */

// acl implements owner/group/other access control.
//
// A Permission is a 16 bit word; from the least significant end,
// each role has 4 bits: read, write, delete, reserved. Owner comes
// first, then group, then other, and the top 4 bits are reserved.
//
//	[ 0000     0000    0000   0000 ]
//	  reserved other   group  owner
//	           _DWR    _DWR   _DWR
package acl

import (
	"fmt"
	"strings"
)

type Role int

const (
	RoleOwner Role = iota
	RoleGroup
	RoleOther
)

func (self Role) String() string {
	switch self {
	case RoleOwner:
		return "owner"
	case RoleGroup:
		return "group"
	case RoleOther:
		return "other"
	}
	return fmt.Sprintf("Role(%d)", int(self))
}

type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpDelete
)

func (self Operation) String() string {
	switch self {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("Operation(%d)", int(self))
}

type Permission uint16

const (
	Private Permission = 0x000F
	Shared  Permission = 0x00FF
	Public  Permission = 0x0FFF
)

const bitsPerRole = 4

// Bit returns the single bit for the (role, operation) pair, or 0
// for unknown roles and operations.
func Bit(role Role, op Operation) Permission {
	if role < RoleOwner || role > RoleOther || op < OpRead || op > OpDelete {
		return 0
	}
	return 1 << (uint(role)*bitsPerRole + uint(op))
}

// FromWord decodes the integer form stored in configuration and
// entry headers. Bits above 15 are dropped.
func FromWord(w int32) Permission {
	return Permission(uint32(w) & 0xFFFF)
}

func (self Permission) ToWord() int32 {
	return int32(self)
}

// IsInvalid is true for the all-zero word, which the storage layer
// treats as "unset".
func (self Permission) IsInvalid() bool {
	return self == 0
}

// OrDefault returns def if self is unset.
func (self Permission) OrDefault(def Permission) Permission {
	if self.IsInvalid() {
		return def
	}
	return self
}

func (self Permission) Has(role Role, op Operation) bool {
	bit := Bit(role, op)
	return bit != 0 && self&bit != 0
}

func (self Permission) With(role Role, op Operation) Permission {
	return self | Bit(role, op)
}

func (self Permission) Without(role Role, op Operation) Permission {
	return self &^ Bit(role, op)
}

// String renders rwd triplets for owner, group and other, e.g.
// "rwdrwd---" for Shared.
func (self Permission) String() string {
	var sb strings.Builder
	for _, role := range []Role{RoleOwner, RoleGroup, RoleOther} {
		for i, op := range []Operation{OpRead, OpWrite, OpDelete} {
			if self.Has(role, op) {
				sb.WriteByte("rwd"[i])
			} else {
				sb.WriteByte('-')
			}
		}
	}
	return sb.String()
}

// ParsePermission is the inverse of String.
func ParsePermission(s string) (Permission, error) {
	if len(s) != 9 {
		return 0, fmt.Errorf("permission string %q is not 9 characters", s)
	}
	var p Permission
	for i := 0; i < 9; i++ {
		role := Role(i / 3)
		op := Operation(i % 3)
		switch s[i] {
		case '-':
		case "rwd"[op]:
			p = p.With(role, op)
		default:
			return 0, fmt.Errorf("unexpected %q at %d in %q", s[i], i, s)
		}
	}
	return p, nil
}
