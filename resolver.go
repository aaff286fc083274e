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

// DefaultSymlinkDepth bounds how many symlink hops resolve will chase
// before giving up with ErrLoopOrTooDeep, matching the source's
// recommended depth of 40.
const DefaultSymlinkDepth = 40

// hydrate populates node from its backend if it has never been observed, if
// its handle was released, or if it is a directory (directories are
// refreshed on every visit so a backend may lazily enumerate children
// during Open — the core never demands eager enumeration).
func (ns *Namespace) hydrate(node *Node) {
	if node.Info.Type != TypeUnknown && node.Info.Handle != nil && node.Info.Type != TypeDirectory {
		return
	}

	backend, _ := ns.registry.Lookup(node.Info.Fsid)

	var parentHandle any
	if node.parent != nil {
		parentHandle = node.parent.Info.Handle
	}

	backend.Open(parentHandle, node.name, node)
}

// resolve walks path from the root, honoring "." and "..", hydrating every
// node it visits, and chasing symlinks at every intermediate component. The
// final component is hydrated but its own symlink (if any) is left
// unchased: callers needing the target (read/write) call chase explicitly.
func (ns *Namespace) resolve(path string) (*Node, error) {
	pi, err := newPathIterator(path)
	if err != nil {
		return nil, err
	}

	if pi.isRoot() {
		ns.hydrate(ns.root)

		return ns.root, nil
	}

	cur := ns.root
	ns.hydrate(cur)

	seen := map[*Node]bool{}
	slHops := 0

	for pi.next() {
		name := pi.part()
		if len(name) > MaxNameLen {
			return nil, ErrNameTooLong
		}

		isLast := !hasMoreComponents(pi)

		switch name {
		case ".":
			continue
		case "..":
			if cur.Info.Type != TypeDirectory && cur.Info.Type != TypeUnknown {
				return nil, ErrNotADirectory
			}

			if cur.parent == nil {
				return nil, ErrNoParent
			}

			cur = cur.parent
			ns.hydrate(cur)

			continue
		}

		if cur.Info.Type != TypeDirectory && cur.Info.Type != TypeUnknown {
			return nil, ErrNotADirectory
		}

		child := cur.child(name)
		if child == nil {
			// Probe a scratch node before attaching it: a failed lookup
			// must not leave a ghost entry behind in cur.children.
			candidate := alloc(cur, name)
			ns.hydrate(candidate)

			if candidate.Info.Handle == nil && candidate.Info.Type == TypeUnknown {
				return nil, ErrNotFound
			}

			cur.children = append([]*Node{candidate}, cur.children...)
			child = candidate
		} else {
			ns.hydrate(child)

			if child.Info.Handle == nil && child.Info.Type == TypeUnknown {
				return nil, ErrNotFound
			}
		}

		cur = child

		if isLast {
			// Let next() run once more so a trailing or double slash
			// after this component still marks the path bad.
			continue
		}

		for cur.hasSymlink {
			if seen[cur] {
				return nil, ErrLoopOrTooDeep
			}

			seen[cur] = true

			slHops++
			if slHops > ns.symlinkDepth {
				return nil, ErrLoopOrTooDeep
			}

			target, err := ns.resolve(cur.symlinkTarget)
			if err != nil {
				return nil, err
			}

			cur = target
		}
	}

	if pi.isBad() {
		return nil, ErrBadPath
	}

	return cur, nil
}

// hasMoreComponents reports whether pi has at least one more component
// after the current one, without consuming it.
func hasMoreComponents(pi *pathIterator) bool {
	save := *pi
	more := pi.next()
	*pi = save

	return more
}

// chase follows node's symlink chain (if any) until it lands on a
// non-symlink node, bounded by the namespace's configured symlink depth.
// Non-symlink nodes are returned unchanged. Used by read/write dispatch,
// which must operate on the target, never the link itself.
func (ns *Namespace) chase(node *Node) (*Node, error) {
	seen := map[*Node]bool{}
	hops := 0

	for node.hasSymlink {
		if seen[node] {
			return nil, ErrLoopOrTooDeep
		}

		seen[node] = true

		hops++
		if hops > ns.symlinkDepth {
			return nil, ErrLoopOrTooDeep
		}

		target, err := ns.resolve(node.symlinkTarget)
		if err != nil {
			return nil, err
		}

		node = target
	}

	return node, nil
}
