/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 11:06:32 2018 mstenber
 * Last modified: Wed Mar 21 11:48:14 2018 mstenber
 * Edit time:     39 min
 *
 */

package acl

import (
	"testing"

	"github.com/stvp/assert"
)

func TestPresets(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Private.ToWord(), int32(15))
	assert.Equal(t, Shared.ToWord(), int32(255))
	assert.Equal(t, Public.ToWord(), int32(4095))
	assert.Equal(t, Private.String(), "rwd------")
	assert.Equal(t, Shared.String(), "rwdrwd---")
	assert.Equal(t, Public.String(), "rwdrwdrwd")
}

func TestWordRoundTrip(t *testing.T) {
	t.Parallel()
	for w := int32(0); w <= 0xFFFF; w++ {
		assert.Equal(t, FromWord(w).ToWord(), w)
	}
	assert.Equal(t, FromWord(0x1_00FF), Shared)
	assert.True(t, FromWord(0).IsInvalid())
	assert.Equal(t, FromWord(0).OrDefault(Shared), Shared)
	assert.Equal(t, Private.OrDefault(Shared), Private)
}

func TestBits(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Bit(RoleOwner, OpRead), Permission(1))
	assert.Equal(t, Bit(RoleOwner, OpDelete), Permission(4))
	assert.Equal(t, Bit(RoleGroup, OpWrite), Permission(0x20))
	assert.Equal(t, Bit(RoleOther, OpDelete), Permission(0x400))
	assert.Equal(t, Bit(RoleOther, Operation(7)), Permission(0))

	// reserved bits never grant anything
	assert.True(t, !Permission(0xF888).Has(RoleOwner, OpRead))
	assert.True(t, !Public.Has(RoleOwner, Operation(3)))

	p := Permission(0).With(RoleGroup, OpRead).With(RoleOther, OpWrite)
	assert.Equal(t, p.String(), "---r---w-")
	assert.Equal(t, p.Without(RoleOther, OpWrite), Bit(RoleGroup, OpRead))
}

func TestParse(t *testing.T) {
	t.Parallel()
	for _, p := range []Permission{0, Private, Shared, Public, 0x0421} {
		s := p.String()
		p2, err := ParsePermission(s)
		assert.Nil(t, err)
		assert.Equal(t, p2, p)
	}
	_, err := ParsePermission("rwx------")
	assert.True(t, err != nil)
	_, err = ParsePermission("rw")
	assert.True(t, err != nil)
}

func TestQualifyRole(t *testing.T) {
	t.Parallel()
	owner := NewIdentity(1, 10)
	member := NewIdentity(2, 10, 11)
	stranger := NewIdentity(3, 99)
	assert.Equal(t, QualifyRole(1, 10, owner), RoleOwner)
	assert.Equal(t, QualifyRole(1, 10, member), RoleGroup)
	assert.Equal(t, QualifyRole(1, 10, stranger), RoleOther)
	// owner wins even when also in the group
	assert.Equal(t, QualifyRole(2, 10, member), RoleOwner)
	// zero value identity is a stranger unless ids are zero
	assert.Equal(t, QualifyRole(5, 6, Identity{}), RoleOther)
}

func TestCheckPermission(t *testing.T) {
	t.Parallel()
	p := FromWord(0).OrDefault(Shared)
	for _, op := range []Operation{OpRead, OpWrite, OpDelete} {
		assert.True(t, CheckPermission(1, 10, p, op, NewIdentity(1)))
		assert.True(t, CheckPermission(1, 10, p, op, NewIdentity(2, 10)))
		assert.True(t, !CheckPermission(1, 10, p, op, NewIdentity(2, 99)))
	}
	assert.True(t, !CheckPermission(1, 10, Public, Operation(-1), NewIdentity(1)))
	assert.True(t, CheckPermission(1, 10, Private, OpDelete, NewIdentity(1)))
	assert.True(t, !CheckPermission(1, 10, Private, OpRead, NewIdentity(2, 10)))
}
