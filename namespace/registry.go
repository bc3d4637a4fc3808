/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sat Mar 24 10:02:31 2018 mstenber
 * Last modified: Sat Mar 24 12:47:05 2018 mstenber
 * Edit time:     61 min
 *
 */

package namespace

import (
	"github.com/alphadose/haxmap"

	"github.com/fingon/go-zxtree/mlog"
	"github.com/fingon/go-zxtree/util"
	. "github.com/fingon/go-zxtree/zxerr"
)

// Handle is the stable arena slot of a node. Parents are referred
// to by handle, never by pointer.
type Handle uint64

const (
	// NoHandle is the parent of a root.
	NoHandle Handle = iota

	// OrphanHandle is the parent of detached nodes. It never
	// resolves to a node.
	OrphanHandle

	firstHandle
)

// Registry is the node arena. Lookups are lock-free; a Get racing
// with Sweep may see either state.
type Registry struct {
	nodes *haxmap.Map[Handle, *Node]
	next  util.AtomicInt
}

func (self Registry) Init() *Registry {
	self.nodes = haxmap.New[Handle, *Node]()
	self.next.Set(int64(firstHandle) - 1)
	return &self
}

// Default is the process-wide registry used by NewRoot.
var Default = Registry{}.Init()

func NewRoot() *Node {
	return Default.NewRoot()
}

func (self *Registry) register(n *Node) {
	n.handle = Handle(self.next.Add(1))
	self.nodes.Set(n.handle, n)
}

func (self *Registry) NewRoot() *Node {
	n := newNode(self, "", KindRoot, NoHandle)
	self.register(n)
	return n
}

// Release releases a root created by this registry; see Node.Release.
func (self *Registry) Release(root *Node) error {
	if root.registry != self {
		return Errorf(ErrUsage, "root %v belongs to another registry", root.handle)
	}
	return root.Release()
}

// Get returns the node for h, or nil if h is unknown, swept or one
// of the sentinels.
func (self *Registry) Get(h Handle) *Node {
	if h < firstHandle {
		return nil
	}
	n, _ := self.nodes.Get(h)
	return n
}

func (self *Registry) Len() int {
	return int(self.nodes.Len())
}

// attached reports whether n still reaches a root through
// registered parents.
func (self *Registry) attached(n *Node) bool {
	seen := 0
	for n != nil {
		p := n.parentHandle()
		switch p {
		case NoHandle:
			return n.kind == KindRoot
		case OrphanHandle:
			return false
		}
		n = self.Get(p)
		seen++
		if seen > self.Len() {
			// cycle; cannot happen through the public API
			return false
		}
	}
	return false
}

// Sweep drops every node whose ancestry ends at a detached node or
// a released root rather than a live root, and returns how many were dropped. Callers may
// keep using nodes they still hold; their full paths simply stop at
// the first swept ancestor.
func (self *Registry) Sweep() int {
	var drop []Handle
	self.nodes.ForEach(func(h Handle, n *Node) bool {
		if !self.attached(n) {
			drop = append(drop, h)
		}
		return true
	})
	if len(drop) > 0 {
		self.nodes.Del(drop...)
	}
	mlog.Printf2("namespace/registry", "Sweep dropped %d, %d left", len(drop), self.Len())
	return len(drop)
}
