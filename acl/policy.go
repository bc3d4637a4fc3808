/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Mar 21 10:32:19 2018 mstenber
 * Last modified: Wed Mar 21 11:05:50 2018 mstenber
 * Edit time:     21 min
 *
 */

package acl

// Identity is whoever is calling.
type Identity struct {
	Id       int64
	GroupIds map[int64]bool
}

func NewIdentity(id int64, groups ...int64) Identity {
	self := Identity{Id: id, GroupIds: make(map[int64]bool, len(groups))}
	for _, g := range groups {
		self.GroupIds[g] = true
	}
	return self
}

func (self Identity) InGroup(gid int64) bool {
	return self.GroupIds[gid]
}

// QualifyRole resolves the caller's role for a resource owned by
// ownerId/groupId. Exactly one role always applies; owner wins over
// group.
func QualifyRole(ownerId, groupId int64, who Identity) Role {
	if who.Id == ownerId {
		return RoleOwner
	}
	if who.InGroup(groupId) {
		return RoleGroup
	}
	return RoleOther
}

func CheckPermission(ownerId, groupId int64, p Permission, op Operation, who Identity) bool {
	return p.Has(QualifyRole(ownerId, groupId, who), op)
}
