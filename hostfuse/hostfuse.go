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

// Package hostfuse mounts a *vfscore.Namespace as a real kernel FUSE file
// system, using github.com/hanwen/go-fuse/v2's InodeEmbedder API. It is one
// concrete "hosting environment" in the sense of the namespace core's
// documentation: the kernel drives this package through the FUSE protocol,
// and this package drives the Namespace through its ordinary façade.
//
// The Namespace core holds no lock of its own (see the vfscore package
// doc); FUSE delivers concurrent callbacks from multiple kernel threads, so
// every Node method here takes the shared Node.mu before touching the shared
// Namespace, mirroring the extension point the core's doc comment calls
// out explicitly.
package hostfuse

import (
	"context"
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/plosclan/vfscore"
)

// Node is the InodeEmbedder backing every entry in the mounted tree. It
// wraps a *vfscore.Node and the shared Namespace/mutex pair every Node in
// the tree holds a reference to.
type Node struct {
	fs.Inode

	ns   *vfscore.Namespace
	mu   *sync.Mutex
	node *vfscore.Node
}

var (
	_ fs.InodeEmbedder = (*Node)(nil)
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeWriter    = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
)

// Root returns the InodeEmbedder for ns's root directory, ready to pass to
// Mount.
func Root(ns *vfscore.Namespace) *Node {
	return &Node{ns: ns, mu: &sync.Mutex{}, node: ns.Root()}
}

func (n *Node) child(vn *vfscore.Node) *Node {
	return &Node{ns: n.ns, mu: n.mu, node: vn}
}

// childPath joins n's full namespace path with a new final component,
// collapsing the double slash that a naive join would produce at the root.
func (n *Node) childPath(name string) string {
	dir := n.ns.FullPath(n.node)
	if dir == "/" {
		return "/" + name
	}

	return dir + "/" + name
}

func attrFromInfo(info *vfscore.NodeInfo, out *fuse.Attr) {
	switch info.Type {
	case vfscore.TypeDirectory:
		out.Mode = syscall.S_IFDIR | 0o755
	case vfscore.TypeSymlink:
		out.Mode = syscall.S_IFLNK | 0o777
	default:
		out.Mode = syscall.S_IFREG | 0o644
	}

	out.Size = uint64(info.Size)

	mtime := time.Unix(info.WriteTime, 0)
	ctime := time.Unix(info.CreateTime, 0)
	out.SetTimes(nil, &mtime, &ctime)
}

// Lookup resolves name under n and returns a child Inode populated from the
// namespace's view of it.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()

	vn := n.ns.Open(n.childPath(name))
	if vn == nil {
		return nil, syscall.ENOENT
	}

	attrFromInfo(&vn.Info, &out.Attr)

	mode := uint32(syscall.S_IFREG)
	if vn.Info.Type == vfscore.TypeDirectory {
		mode = syscall.S_IFDIR
	}

	child := n.child(vn)

	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode}), fs.OK
}

// Readdir lists n's children as reported by the namespace. The Namespace
// core has no directory-enumeration operation of its own (enumeration is a
// backend affordance reached through Open/hydrate, per the core's
// documented lazy-enumeration policy), so Readdir here only reflects
// children already observed by the resolver; a backend that supports
// listing populates them as Lookup calls visit each name.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var entries []fuse.DirEntry

	for _, c := range n.node.Children() {
		mode := uint32(syscall.S_IFREG)
		if c.Info.Type == vfscore.TypeDirectory {
			mode = syscall.S_IFDIR
		}

		entries = append(entries, fuse.DirEntry{Name: c.Name(), Mode: mode})
	}

	return fs.NewListDirStream(entries), fs.OK
}

// Getattr refreshes n's NodeInfo through Namespace.Update and fills out
// from it.
func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.ns.Update(n.node); err != nil {
		return syscall.EIO
	}

	attrFromInfo(&n.node.Info, &out.Attr)

	return fs.OK
}

// Open is a no-op: the Namespace core has no per-open file-handle concept
// beyond the backend Handle already cached on the Node (see
// Backend.Open/Close), so no FUSE-level file handle is allocated.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, fs.OK
}

// Read dispatches to the namespace's Read.
func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()

	read, err := n.ns.Read(n.node, dest, off)
	if err != nil {
		return nil, syscall.EIO
	}

	return fuse.ReadResultData(dest[:read]), fs.OK
}

// Write dispatches to the namespace's Write.
func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()

	written, err := n.ns.Write(n.node, data, off)
	if err != nil {
		return 0, syscall.EIO
	}

	return uint32(written), fs.OK
}

// Mkdir creates a directory named name under n via the namespace's Mkdir.
func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()

	path := n.childPath(name)
	if err := n.ns.Mkdir(path); err != nil {
		return nil, syscall.EIO
	}

	vn := n.ns.Open(path)
	if vn == nil {
		return nil, syscall.EIO
	}

	attrFromInfo(&vn.Info, &out.Attr)

	return n.NewInode(ctx, n.child(vn), fs.StableAttr{Mode: syscall.S_IFDIR}), fs.OK
}

// Create creates a regular file named name under n via the namespace's
// Mkfile, then opens it.
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()

	path := n.childPath(name)
	if err := n.ns.Mkfile(path); err != nil {
		return nil, nil, 0, syscall.EIO
	}

	vn := n.ns.Open(path)
	if vn == nil {
		return nil, nil, 0, syscall.EIO
	}

	attrFromInfo(&vn.Info, &out.Attr)

	inode := n.NewInode(ctx, n.child(vn), fs.StableAttr{Mode: syscall.S_IFREG})

	return inode, nil, fuse.FOPEN_DIRECT_IO, fs.OK
}

// Mount mounts ns at mountpoint using go-fuse's in-process FUSE server and
// returns once the mount is live; the server keeps serving in the
// background until the kernel unmounts it or Unmount is called on the
// returned server. debug enables go-fuse's own protocol tracing.
func Mount(ns *vfscore.Namespace, mountpoint string, debug bool) (*fuse.Server, error) {
	root := Root(ns)

	return fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{Debug: debug},
	})
}
