//
//  Copyright 2022 The AVFS authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//  	http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package vfscore

// NodeType describes what kind of entity a Node represents.
type NodeType int

const (
	// TypeUnknown means the node has been allocated but never hydrated
	// from its backend.
	TypeUnknown NodeType = iota
	TypeDirectory
	TypeBlock
	TypeStream
	TypeSymlink
)

// NodeInfo is the metadata block of a Node. It is kept as a separate type,
// value-embedded in Node, so that a future hard-link extension could share
// it across multiple Nodes without changing Node's shape.
type NodeInfo struct {
	Type NodeType

	Size, RealSize                  int64
	CreateTime, ReadTime, WriteTime int64
	Owner, Group, Permissions       int

	// Fsid is the id of the owning backend. 0 means "no backend yet": the
	// root before any mount, or a newly allocated placeholder.
	Fsid int

	// Handle is an opaque backend-supplied value. The core stores and
	// returns it; it never dereferences it. nil means "not yet opened from
	// the backend".
	Handle any

	// Root is the node at the top of this backend's subtree (the mount
	// point). Root == the owning Node itself marks a mount point.
	Root *Node
}

// Node represents one path component — a file, directory, or symlink — that
// has been observed by the namespace.
type Node struct {
	name     string
	parent   *Node // non-owning back-reference; nil only for the root.
	children []*Node

	// symlinkTarget is set (and non-empty) only for symlink nodes; it is
	// always an absolute path.
	symlinkTarget string
	hasSymlink    bool

	Info NodeInfo
}

// Name returns the node's final path component. Empty only for the root.
func (n *Node) Name() string { return n.name }

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// IsSymlink reports whether the node carries a symlink target.
func (n *Node) IsSymlink() bool { return n.hasSymlink }

// SymlinkTarget returns the node's symlink target and whether it has one.
func (n *Node) SymlinkTarget() (string, bool) { return n.symlinkTarget, n.hasSymlink }

// SetSymlinkTarget marks the node as a symlink pointing at an absolute path.
// Used by backends when hydrating a symlink node (see Backend.Open).
func (n *Node) SetSymlinkTarget(target string) {
	n.symlinkTarget = target
	n.hasSymlink = true
	n.Info.Type = TypeSymlink
}

// Children returns n's children in their current order (insertion order,
// newest first). The returned slice is shared with n; callers must not
// mutate it.
func (n *Node) Children() []*Node {
	return n.children
}

// child performs a linear search for name among n's children. Order is
// insertion order (new children are prepended); callers must not rely on any
// particular order, matching the resolver's linear-search contract.
func (n *Node) child(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}

	return nil
}

// alloc allocates a zero-initialized child node under parent, inheriting
// Fsid and Root from the parent. Type starts Unknown, Handle starts nil.
// The caller is responsible for prepending the result to parent's children.
func alloc(parent *Node, name string) *Node {
	n := &Node{
		name:   name,
		parent: parent,
	}

	if parent != nil {
		n.Info.Fsid = parent.Info.Fsid
		n.Info.Root = parent.Info.Root
	}

	return n
}

// appendChild allocates a child of parent and prepends it to parent's
// children list, optionally seeding its backend handle. Mkdir, Mkfile and
// the resolver's lazy hydration do not use it: they call alloc and prepend
// the node themselves only after the backend has accepted it.
func appendChild(parent *Node, name string, handle any) *Node {
	n := alloc(parent, name)
	n.Info.Handle = handle

	parent.children = append([]*Node{n}, parent.children...)

	return n
}

// freeSubtree recursively frees node and every descendant, post-order,
// calling Close (via closer) on each node's backend handle before releasing
// it. For a symlink node, only the symlink-local storage is freed; the link
// target is never followed.
//
// The caller must hold no outstanding pointers into the subtree once this
// returns: every Node reachable from node is discarded.
func freeSubtree(node *Node, closer func(n *Node)) {
	if node == nil {
		return
	}

	if node.Info.Type == TypeDirectory {
		for _, c := range node.children {
			freeSubtree(c, closer)
		}
	}

	closer(node)

	node.children = nil
	node.parent = nil
	node.symlinkTarget = ""
	node.hasSymlink = false
}

// freeChildren frees every child of node (post-order, via freeSubtree) but
// preserves node itself. Used by Unmount: the mount-point node survives,
// only its contents under the departing backend are torn down.
func freeChildren(node *Node, closer func(n *Node)) {
	for _, c := range node.children {
		freeSubtree(c, closer)
	}

	node.children = nil
}
