//
//  Copyright 2020 The AVFS authors
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

// Package memfs is the example in-RAM backend: it exercises the
// vfscore.Backend contract but is not part of the namespace core. Its node
// model — dirNode/fileNode/symlinkNode sharing a baseNode — is adapted from
// github.com/avfs/avfs/vfs/memfs, reshaped from a full POSIX avfs.VFS
// implementation down to the nine-operation Backend Contract.
package memfs

import (
	"sync"
	"time"

	"github.com/plosclan/vfscore"
)

// memNode is the interface implemented by dirNode, fileNode and
// symlinkNode: the backend's own storage, independent of vfscore.Node. A
// vfscore.Node's Info.Handle points at one of these; the core never
// dereferences it.
type memNode interface {
	base() *baseNode
}

// baseNode is the common structure of directories, files and symbolic
// links.
type baseNode struct {
	mu         sync.RWMutex
	createTime int64
	writeTime  int64
}

func (bn *baseNode) base() *baseNode { return bn }

// dirNode is the structure for a directory.
type dirNode struct {
	baseNode
	children map[string]memNode
}

// fileNode is the structure for a regular file.
type fileNode struct {
	baseNode
	data []byte
}

// symlinkNode is the structure for a symbolic link. The link target itself
// lives in the vfscore.Node (SetSymlinkTarget); this mirrors only the
// backend-local bookkeeping a real backend would keep (creation time, etc).
type symlinkNode struct {
	baseNode
	target string
}

func now() int64 { return time.Now().UnixNano() }

func newDirNode() *dirNode {
	n := &dirNode{children: make(map[string]memNode)}
	n.createTime, n.writeTime = now(), now()

	return n
}

func newFileNode() *fileNode {
	n := &fileNode{}
	n.createTime, n.writeTime = now(), now()

	return n
}

func newSymlinkNode(target string) *symlinkNode {
	n := &symlinkNode{target: target}
	n.createTime, n.writeTime = now(), now()

	return n
}

// MemBackend implements vfscore.Backend using an in-memory directory tree.
// A single MemBackend may back any number of independent mounts: each
// successful Mount allocates its own root dirNode, so mounting the same
// MemBackend at two different paths yields two unrelated in-memory trees.
type MemBackend struct {
	mu sync.Mutex
}

// New creates a MemBackend ready to register with a vfscore.Namespace.
func New() *MemBackend {
	return &MemBackend{}
}

var _ vfscore.Backend = (*MemBackend)(nil)

// Mount allocates a fresh in-memory root directory for this mount. src is
// an opaque label; MemBackend always accepts.
func (b *MemBackend) Mount(src string, node *vfscore.Node) error {
	root := newDirNode()
	fillDirInfo(root, node)

	return nil
}

// Unmount releases the in-memory tree rooted at handle. Go's garbage
// collector reclaims it once the last reference (the vfscore tree we just
// tore down) is gone; there is nothing else to release.
func (b *MemBackend) Unmount(handle any) {}

// Open looks up name under parentHandle (a *dirNode) and populates node.
// If name is absent, node.Info.Handle is left nil.
func (b *MemBackend) Open(parentHandle any, name string, node *vfscore.Node) {
	parent, ok := parentHandle.(*dirNode)
	if !ok {
		return
	}

	parent.mu.RLock()
	child, ok := parent.children[name]
	parent.mu.RUnlock()

	if !ok {
		return
	}

	fillInfo(child, node)
}

// Close is a no-op: MemBackend holds no per-open resources beyond the node
// itself.
func (b *MemBackend) Close(handle any) {}

// Read reads up to len(dst) bytes from handle's file content starting at
// offset. Returns 0, nil at or past EOF.
func (b *MemBackend) Read(handle any, dst []byte, offset int64) (int, error) {
	f, ok := handle.(*fileNode)
	if !ok {
		return 0, errNotAFile
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if offset >= int64(len(f.data)) {
		return 0, nil
	}

	n := copy(dst, f.data[offset:])

	return n, nil
}

// Write writes src into handle's file content at offset, extending the
// backing slice if the write goes past the current length.
func (b *MemBackend) Write(handle any, src []byte, offset int64) (int, error) {
	f, ok := handle.(*fileNode)
	if !ok {
		return 0, errNotAFile
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	end := offset + int64(len(src))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}

	n := copy(f.data[offset:end], src)
	f.writeTime = now()

	return n, nil
}

// Mkdir creates a new directory named name under parentHandle.
func (b *MemBackend) Mkdir(parentHandle any, name string, node *vfscore.Node) error {
	parent, ok := parentHandle.(*dirNode)
	if !ok {
		return errNotADirectory
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	d := newDirNode()
	parent.children[name] = d
	fillDirInfo(d, node)

	return nil
}

// Mkfile creates a new regular file named name under parentHandle.
func (b *MemBackend) Mkfile(parentHandle any, name string, node *vfscore.Node) error {
	parent, ok := parentHandle.(*dirNode)
	if !ok {
		return errNotADirectory
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	f := newFileNode()
	parent.children[name] = f
	fillInfo(f, node)

	return nil
}

// Stat refreshes node.Info from handle.
func (b *MemBackend) Stat(handle any, node *vfscore.Node) error {
	mn, ok := handle.(memNode)
	if !ok {
		return errNotFound
	}

	fillInfo(mn, node)

	return nil
}

// Symlink creates a symbolic link named name under parentHandle pointing at
// target. Not part of the Backend contract (the contract has no dedicated
// symlink operation — only Open/Stat report symlink-ness via
// node.SetSymlinkTarget), so callers that want MemBackend-created symlinks
// use this directly against a resolved parent handle.
func (b *MemBackend) Symlink(parentHandle any, name, target string) error {
	parent, ok := parentHandle.(*dirNode)
	if !ok {
		return errNotADirectory
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	parent.children[name] = newSymlinkNode(target)

	return nil
}

func fillDirInfo(d *dirNode, node *vfscore.Node) {
	node.Info.Type = vfscore.TypeDirectory
	node.Info.Handle = d
	node.Info.CreateTime = d.createTime / int64(time.Second)
	node.Info.WriteTime = d.writeTime / int64(time.Second)
}

func fillInfo(mn memNode, node *vfscore.Node) {
	switch t := mn.(type) {
	case *dirNode:
		fillDirInfo(t, node)
	case *fileNode:
		node.Info.Type = vfscore.TypeBlock
		node.Info.Handle = t
		node.Info.Size = int64(len(t.data))
		node.Info.RealSize = node.Info.Size
		node.Info.CreateTime = t.createTime / int64(time.Second)
		node.Info.WriteTime = t.writeTime / int64(time.Second)
	case *symlinkNode:
		node.Info.Handle = t
		node.SetSymlinkTarget(t.target)
		node.Info.CreateTime = t.createTime / int64(time.Second)
	}
}
