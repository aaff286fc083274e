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

package memfs

import "github.com/plosclan/vfscore"

// MountRoot registers a fresh MemBackend with ns and mounts it at the
// namespace root, mirroring the convenience the original C test harness
// (memfs.c) performed as the first step of every test.
func MountRoot(ns *vfscore.Namespace) (*MemBackend, error) {
	b := New()

	if _, err := ns.Register("memfs", b); err != nil {
		return nil, err
	}

	if err := ns.Mount("memfs", ns.Root()); err != nil {
		return nil, err
	}

	return b, nil
}

// SymlinkAt creates a symbolic link named name under the directory node
// parent (which must be backed by b) pointing at target. The core's
// Backend contract has no dedicated symlink operation — only Open/Stat
// report symlink-ness via Node.SetSymlinkTarget — so backend-specific
// extensions like this one are reached directly, with the caller supplying
// the *MemBackend it already holds from MountRoot or Register.
func (b *MemBackend) SymlinkAt(parent *vfscore.Node, name, target string) error {
	return b.Symlink(parent.Info.Handle, name, target)
}

// SymlinkerFor adapts b into a vfscore.Symlinker, splitting newPath into its
// parent directory and final component and resolving the parent through ns
// before delegating to SymlinkAt. Intended for vfscore.NewRndTree, which
// generates symlinks as (oldPath, newPath) pairs rather than (parent, name).
func SymlinkerFor(b *MemBackend) vfscore.Symlinker {
	return func(ns *vfscore.Namespace, oldPath, newPath string) error {
		i := len(newPath) - 1
		for i >= 0 && newPath[i] != '/' {
			i--
		}

		dir, name := newPath[:i], newPath[i+1:]
		if dir == "" {
			dir = "/"
		}

		parent := ns.Open(dir)
		if parent == nil {
			return errNotFound
		}

		return b.SymlinkAt(parent, name, oldPath)
	}
}
