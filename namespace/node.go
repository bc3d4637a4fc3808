/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sat Mar 24 10:31:54 2018 mstenber
 * Last modified: Sat Mar 24 13:20:16 2018 mstenber
 * Edit time:     93 min
 *
 */

// namespace package provides the logical directory-like tree of
// named nodes. Nodes refer to their parent by registry handle, so a
// detached subtree holds no reference back into the tree it came
// from.
package namespace

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fingon/go-zxtree/mlog"
	"github.com/fingon/go-zxtree/util"
	. "github.com/fingon/go-zxtree/zxerr"
)

type Kind int

const (
	KindRoot Kind = iota
	KindBranch
	KindLeaf
)

func (self Kind) String() string {
	switch self {
	case KindRoot:
		return "root"
	case KindBranch:
		return "branch"
	case KindLeaf:
		return "leaf"
	}
	return "unknown"
}

const (
	Separator     = "/"
	MaxNameLength = 255

	// invalidNameChars are rejected in names in addition to
	// control characters.
	invalidNameChars = "/\"<>|"
)

// CheckName validates a non-root node name.
func CheckName(name string) error {
	if name == "" {
		return Errorf(ErrInvalidNodeName, "name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return Errorf(ErrInvalidNodeName, "name is not valid utf-8")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Errorf(ErrInvalidNodeName, "name longer than %d characters", MaxNameLength)
	}
	if i := strings.IndexFunc(name, func(r rune) bool {
		return r < 0x20 || r == 0x7f || strings.ContainsRune(invalidNameChars, r)
	}); i >= 0 {
		return Errorf(ErrInvalidNodeName, "name %q has invalid character at %d", name, i)
	}
	return nil
}

type Node struct {
	// Id is unique and immutable.
	Id uuid.UUID

	name     string
	kind     Kind
	handle   Handle
	registry *Registry

	// lock guards parent and children
	lock     util.MutexLocked
	parent   Handle
	children map[string]*Node
	order    []string
}

func newNode(r *Registry, name string, kind Kind, parent Handle) *Node {
	n := &Node{Id: uuid.New(), name: name, kind: kind,
		registry: r, parent: parent}
	if kind != KindLeaf {
		n.children = make(map[string]*Node)
	}
	return n
}

func (self *Node) Name() string        { return self.name }
func (self *Node) Kind() Kind          { return self.kind }
func (self *Node) Handle() Handle      { return self.handle }
func (self *Node) IsRoot() bool        { return self.kind == KindRoot }
func (self *Node) IsLeaf() bool        { return self.kind == KindLeaf }
func (self *Node) String() string      { return self.GetFullPath() }
func (self *Node) Registry() *Registry { return self.registry }

func (self *Node) parentHandle() Handle {
	defer self.lock.Locked()()
	return self.parent
}

func (self *Node) setParent(h Handle) {
	defer self.lock.Locked()()
	self.parent = h
}

// Parent returns nil for roots and detached nodes.
func (self *Node) Parent() *Node {
	return self.registry.Get(self.parentHandle())
}

// IsFree is true for nodes that have been detached from their
// parent, and for released roots.
func (self *Node) IsFree() bool {
	return self.parentHandle() == OrphanHandle
}

// Release gives up a root: the next Sweep drops it along with every
// node still under it. Non-root nodes are detached with RemoveChild
// instead.
func (self *Node) Release() error {
	if !self.IsRoot() {
		return Errorf(ErrUsage, "%q is not a root", self.GetFullPath())
	}
	self.setParent(OrphanHandle)
	mlog.Printf2("namespace/node", "%v.Release", self.handle)
	return nil
}

func (self *Node) leafError(op string) error {
	return Errorf(ErrIllegalLeafOperation, "%s on leaf %q", op, self.name)
}

func (self *Node) createChild(name string, kind Kind) (*Node, error) {
	if self.IsLeaf() {
		return nil, self.leafError("create child")
	}
	if err := CheckName(name); err != nil {
		return nil, err
	}
	defer self.lock.Locked()()
	if _, ok := self.children[name]; ok {
		return nil, Errorf(ErrDuplicateChildName, "child %q already exists", name)
	}
	n := newNode(self.registry, name, kind, self.handle)
	self.registry.register(n)
	self.children[name] = n
	self.order = append(self.order, name)
	mlog.Printf2("namespace/node", "%v.createChild %v %v", self.handle, name, kind)
	return n, nil
}

// CreateChild adds a new branch node under this one.
func (self *Node) CreateChild(name string) (*Node, error) {
	return self.createChild(name, KindBranch)
}

// CreateLeaf adds a new node under this one that cannot have children.
func (self *Node) CreateLeaf(name string) (*Node, error) {
	return self.createChild(name, KindLeaf)
}

// RemoveChild detaches the named child and returns it. The child and
// its subtree stay registered until the next Sweep.
func (self *Node) RemoveChild(name string) (*Node, error) {
	if self.IsLeaf() {
		return nil, self.leafError("remove child")
	}
	defer self.lock.Locked()()
	n, ok := self.children[name]
	if !ok {
		return nil, Errorf(ErrChildNotFound, "no child %q", name)
	}
	delete(self.children, name)
	for i, v := range self.order {
		if v == name {
			self.order = append(self.order[:i], self.order[i+1:]...)
			break
		}
	}
	n.setParent(OrphanHandle)
	mlog.Printf2("namespace/node", "%v.RemoveChild %v", self.handle, name)
	return n, nil
}

func (self *Node) GetChild(name string) (*Node, error) {
	if self.IsLeaf() {
		return nil, self.leafError("get child")
	}
	defer self.lock.Locked()()
	n, ok := self.children[name]
	if !ok {
		return nil, Errorf(ErrChildNotFound, "no child %q", name)
	}
	return n, nil
}

func (self *Node) HasChild(name string) bool {
	if self.IsLeaf() {
		return false
	}
	defer self.lock.Locked()()
	_, ok := self.children[name]
	return ok
}

// Children returns the children in creation order.
func (self *Node) Children() []*Node {
	if self.IsLeaf() {
		return nil
	}
	defer self.lock.Locked()()
	r := make([]*Node, 0, len(self.order))
	for _, name := range self.order {
		r = append(r, self.children[name])
	}
	return r
}

// ClearChildren detaches every child.
func (self *Node) ClearChildren() error {
	if self.IsLeaf() {
		return self.leafError("clear children")
	}
	defer self.lock.Locked()()
	for _, n := range self.children {
		n.setParent(OrphanHandle)
	}
	self.children = make(map[string]*Node)
	self.order = nil
	return nil
}

// GetFullPath returns the names from the topmost non-root ancestor
// down to this node, joined with Separator. The root itself
// contributes nothing, so a root yields "" and root->a->b "a/b".
func (self *Node) GetFullPath() string {
	if self.IsRoot() {
		return ""
	}
	segments := []string{self.name}
	for n := self.Parent(); n != nil && !n.IsRoot(); n = n.Parent() {
		segments = append(segments, n.name)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, Separator)
}

// Walk resolves a Separator delimited path relative to this node.
func (self *Node) Walk(path string) (n *Node, err error) {
	n = self
	if path == "" {
		return
	}
	for _, name := range strings.Split(path, Separator) {
		if n, err = n.GetChild(name); err != nil {
			return nil, err
		}
	}
	return
}
