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

// Package vfscore implements the namespace layer of a pluggable virtual
// file system: path resolution, the node graph, mount points, symbolic
// links, and the dispatch contract between the namespace and its backends.
// Storage semantics themselves — reads, writes, directory enumeration,
// creation — belong entirely to backends registered at runtime (see
// Backend); the core never implements one itself.
//
// The core is single-threaded: it holds no lock of its own. A host serving
// concurrent callers wraps every call to a *Namespace in its own mutex; see
// the package examples in hostfuse and backend/netfs for that extension
// point in practice.
package vfscore

import "io/fs"

// Option configures a Namespace at construction time.
type Option func(*Namespace)

// WithSymlinkDepth overrides the default symlink-chase bound
// (DefaultSymlinkDepth).
func WithSymlinkDepth(depth int) Option {
	return func(ns *Namespace) {
		if depth > 0 {
			ns.symlinkDepth = depth
		}
	}
}

// WithRegistryOptions passes options through to the namespace's Registry.
func WithRegistryOptions(opts ...RegistryOption) Option {
	return func(ns *Namespace) {
		ns.registry = NewRegistry(opts...)
	}
}

// Namespace is a single VFS core instance: a backend registry, a root node,
// and the path resolver/mount manager/façade operating on them. Multiple
// independent Namespaces may coexist in one process (e.g. one per sandbox).
type Namespace struct {
	registry     *Registry
	root         *Node
	symlinkDepth int
}

// NewNamespace creates a Namespace with an empty root directory. The root
// carries Fsid 0 (the reserved no-op backend) until Mount is called on it.
func NewNamespace(opts ...Option) *Namespace {
	ns := &Namespace{
		registry:     NewRegistry(),
		symlinkDepth: DefaultSymlinkDepth,
	}

	ns.root = &Node{}
	ns.root.Info.Type = TypeDirectory
	ns.root.Info.Root = ns.root

	for _, opt := range opts {
		opt(ns)
	}

	return ns
}

// Root returns the namespace's root node.
func (ns *Namespace) Root() *Node {
	return ns.root
}

// Register assigns a backend id to ops. See Registry.Register.
func (ns *Namespace) Register(name string, ops Backend) (int, error) {
	return ns.registry.Register(name, ops)
}

// pathErr wraps err in a *fs.PathError carrying op and path, mirroring
// mountfs.restoreError. Sentinel errors without path context (ErrBadPath,
// ErrPathTooLong) are still wrapped: the caller always gets a path back.
func pathErr(op, path string, err error) error {
	if err == nil {
		return nil
	}

	return &fs.PathError{Op: op, Path: path, Err: err}
}

// Open resolves path, chasing symlinks at every intermediate component but
// returning the final node itself unchased — so Open("/sym") returns the
// symlink node, not its target. Returns nil on any resolution error.
func (ns *Namespace) Open(path string) *Node {
	n, err := ns.resolve(path)
	if err != nil {
		return nil
	}

	return n
}

// Mkdir implements "mkdir -p" semantics: intermediate components are
// created if absent, or descended into if already directories. The final
// component succeeds idempotently if it is already a directory, and fails
// with ErrNotADirectory if a non-directory occupies that name. A failure at
// component k leaves components 1..k-1 created — partial resolution is not
// hidden, per the source's documented behavior.
func (ns *Namespace) Mkdir(path string) error {
	pi, err := newPathIterator(path)
	if err != nil {
		return pathErr("mkdir", path, err)
	}

	if pi.isRoot() {
		return nil
	}

	cur := ns.root
	ns.hydrate(cur)

	for pi.next() {
		name := pi.part()
		if len(name) > MaxNameLen {
			return pathErr("mkdir", path, ErrNameTooLong)
		}

		if cur.Info.Type != TypeDirectory {
			return pathErr("mkdir", path, ErrNotADirectory)
		}

		child := cur.child(name)
		if child != nil {
			ns.hydrate(child)

			if child.Info.Type != TypeDirectory {
				return pathErr("mkdir", path, ErrNotADirectory)
			}

			cur = child

			continue
		}

		backend, _ := ns.registry.Lookup(cur.Info.Fsid)

		next := alloc(cur, name)
		next.Info.Type = TypeDirectory

		if err := backend.Mkdir(cur.Info.Handle, name, next); err != nil {
			return pathErr("mkdir", path, &BackendError{Op: "mkdir", Err: err})
		}

		cur.children = append([]*Node{next}, cur.children...)
		cur = next
	}

	if pi.isBad() {
		return pathErr("mkdir", path, ErrBadPath)
	}

	return nil
}

// Mkfile creates a new regular file at path. The parent directory must
// already exist. Fails with ErrAlreadyExists if name is already taken,
// ErrNotADirectory/ErrNotFound if the parent does not resolve to a
// directory. On backend failure the allocated node is discarded, never
// attached to the tree.
func (ns *Namespace) Mkfile(path string) error {
	dir, name, err := splitParent(path)
	if err != nil {
		return pathErr("mkfile", path, err)
	}

	parent, err := ns.resolve(dir)
	if err != nil {
		return pathErr("mkfile", path, err)
	}

	if parent.Info.Type != TypeDirectory {
		return pathErr("mkfile", path, ErrNotADirectory)
	}

	if parent.child(name) != nil {
		return pathErr("mkfile", path, ErrAlreadyExists)
	}

	backend, _ := ns.registry.Lookup(parent.Info.Fsid)

	next := alloc(parent, name)
	next.Info.Type = TypeBlock

	if err := backend.Mkfile(parent.Info.Handle, name, next); err != nil {
		return pathErr("mkfile", path, &BackendError{Op: "mkfile", Err: err})
	}

	parent.children = append([]*Node{next}, parent.children...)

	return nil
}

// splitParent splits path into its parent directory and final component,
// validating both against the path grammar.
func splitParent(path string) (dir, name string, err error) {
	pi, err := newPathIterator(path)
	if err != nil {
		return "", "", err
	}

	if pi.isRoot() {
		return "", "", ErrBadPath
	}

	lastStart, lastEnd := -1, -1

	for pi.next() {
		lastStart, lastEnd = pi.start, pi.end
	}

	if pi.isBad() || lastStart < 0 {
		return "", "", ErrBadPath
	}

	name = path[lastStart:lastEnd]

	dir = path[:lastStart-1]
	if dir == "" {
		dir = "/"
	}

	return dir, name, nil
}

// Read hydrates node and dispatches to its backend's Read, following
// node's symlink chain first. Fails with ErrIsADirectory if the resolved
// target is a directory.
func (ns *Namespace) Read(node *Node, dst []byte, offset int64) (int, error) {
	target, err := ns.chase(node)
	if err != nil {
		return 0, err
	}

	ns.hydrate(target)

	if target.Info.Type == TypeDirectory {
		return 0, ErrIsADirectory
	}

	backend, _ := ns.registry.Lookup(target.Info.Fsid)

	n, err := backend.Read(target.Info.Handle, dst, offset)
	if err != nil {
		return n, &BackendError{Op: "read", Err: err}
	}

	return n, nil
}

// Write hydrates node, dispatches to its backend's Write, and on a positive
// return updates the cached size to max(size, offset+bytes written) so
// later Stat/hydrate calls see a consistent value even before the backend
// is re-queried. Fails with ErrIsADirectory if the resolved target is a
// directory.
func (ns *Namespace) Write(node *Node, src []byte, offset int64) (int, error) {
	target, err := ns.chase(node)
	if err != nil {
		return 0, err
	}

	ns.hydrate(target)

	if target.Info.Type == TypeDirectory {
		return 0, ErrIsADirectory
	}

	backend, _ := ns.registry.Lookup(target.Info.Fsid)

	n, err := backend.Write(target.Info.Handle, src, offset)
	if n > 0 {
		if want := offset + int64(n); want > target.Info.Size {
			target.Info.Size = want
		} else if int64(n) > target.Info.Size {
			target.Info.Size = int64(n)
		}
	}

	if err != nil {
		return n, &BackendError{Op: "write", Err: err}
	}

	return n, nil
}

// Close releases node's backend handle, if any. A no-op (and idempotent)
// if the handle is already nil. Does not free the node itself.
func (ns *Namespace) Close(node *Node) error {
	if node.Info.Handle == nil {
		return nil
	}

	backend, _ := ns.registry.Lookup(node.Info.Fsid)
	backend.Close(node.Info.Handle)
	node.Info.Handle = nil

	return nil
}

// Update forces rehydration of node, bypassing the "already materialized"
// fast path hydrate normally takes for non-directories.
func (ns *Namespace) Update(node *Node) error {
	backend, _ := ns.registry.Lookup(node.Info.Fsid)

	if node.Info.Handle == nil {
		ns.hydrate(node)

		return nil
	}

	return backend.Stat(node.Info.Handle, node)
}

// FullPath walks node's parent chain and joins the collected names with
// '/'. The root's empty name is skipped. The result is truncated to
// MaxPathLen if it would otherwise overflow.
func (ns *Namespace) FullPath(node *Node) string {
	if node == ns.root {
		return "/"
	}

	var names []string

	for n := node; n != nil && n != ns.root; n = n.parent {
		names = append(names, n.name)
	}

	total := 0
	for _, nm := range names {
		total += 1 + len(nm)
	}

	buf := make([]byte, 0, total)

	for i := len(names) - 1; i >= 0; i-- {
		buf = append(buf, '/')
		buf = append(buf, names[i]...)

		if len(buf) >= MaxPathLen {
			buf = buf[:MaxPathLen]

			break
		}
	}

	if len(buf) == 0 {
		return "/"
	}

	return string(buf)
}
