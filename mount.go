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

// Mount binds src to node, which must be an existing directory. Every
// registered backend is offered the source, in ascending id order, until
// one accepts it; the reserved no-op backend (id 0) is never offered, since
// it would trivially "succeed" and claim every mount. On success node's
// fsid is set to the accepting backend's id and node becomes its own Root —
// the definition of a mount point.
func (ns *Namespace) Mount(src string, node *Node) error {
	if node.Info.Type != TypeDirectory {
		return ErrNotADirectory
	}

	var claimed bool

	ns.registry.Range(func(id int, ops Backend) bool {
		if id == 0 {
			return true
		}

		if err := ops.Mount(src, node); err != nil {
			return true
		}

		node.Info.Fsid = id
		node.Info.Root = node
		claimed = true

		return false
	})

	if !claimed {
		return ErrNoBackendAccepts
	}

	return nil
}

// Unmount resolves path and tears down the mount rooted there. path must
// resolve to a directory that is its own Root and whose fsid is non-zero —
// a true mount point, not an interior directory of the current backend.
//
// Every descendant's backend handle is closed (via freeChildren, which
// recurses through freeSubtree) before the backend's own Unmount is called,
// per the close-then-unmount ordering required for safe teardown. The
// mount-point node itself survives: its fsid/root/handle are reassigned to
// the enclosing backend and rehydrated, returning it to being an ordinary
// directory of the outer file system.
func (ns *Namespace) Unmount(path string) error {
	node, err := ns.resolve(path)
	if err != nil {
		return pathErr("umount", path, err)
	}

	if node.Info.Type != TypeDirectory || node.Info.Fsid == 0 || node.Info.Root != node {
		return pathErr("umount", path, ErrNotAMountPoint)
	}

	backend, _ := ns.registry.Lookup(node.Info.Fsid)
	handle := node.Info.Handle

	freeChildren(node, func(n *Node) {
		b, _ := ns.registry.Lookup(n.Info.Fsid)
		if n.Info.Handle != nil {
			b.Close(n.Info.Handle)
			n.Info.Handle = nil
		}
	})

	backend.Unmount(handle)

	if node.parent != nil {
		node.Info.Fsid = node.parent.Info.Fsid
		node.Info.Root = node.parent.Info.Root
	} else {
		node.Info.Fsid = 0
		node.Info.Root = node
	}

	node.Info.Handle = nil
	node.Info.Type = TypeUnknown

	if node.parent == nil {
		// The root has no enclosing backend to rehydrate it; it returns to
		// the empty directory NewNamespace creates.
		node.Info.Type = TypeDirectory
	}

	ns.hydrate(node)

	return nil
}
