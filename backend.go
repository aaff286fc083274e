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

// Backend is the operation table every storage provider must implement to be
// registered with a Namespace. The core dispatches to it but never
// interprets the results beyond what is documented here; it never
// dereferences a Handle.
type Backend interface {
	// Mount claims node as the root of a new mount backed by src. On
	// success it must set node.Info.Handle, node.Info.Type = TypeDirectory,
	// and any initial metadata.
	Mount(src string, node *Node) error

	// Unmount releases every resource the backend holds for the mount
	// rooted at handle. After it returns, handle must not be touched again.
	Unmount(handle any)

	// Open populates node.Info (type, size, times, handle) by looking up
	// name under parentHandle. If name is not found, Open must leave
	// node.Info.Handle nil; the resolver treats that as failure.
	Open(parentHandle any, name string, node *Node)

	// Close releases per-open resources. May be a no-op for stateless
	// backends.
	Close(handle any)

	// Read reads up to len(dst) bytes starting at offset. Short reads are
	// permitted. Returns 0, nil at EOF.
	Read(handle any, dst []byte, offset int64) (int, error)

	// Write writes up to len(src) bytes at offset, extending the file if
	// offset+len(src) exceeds the current size. Short writes are permitted.
	Write(handle any, src []byte, offset int64) (int, error)

	// Mkdir creates a directory named name under parentHandle and sets
	// node.Info.Handle.
	Mkdir(parentHandle any, name string, node *Node) error

	// Mkfile creates a regular file named name under parentHandle and sets
	// node.Info.Handle. Failing to set it is a backend contract violation
	// the core does not validate.
	Mkfile(parentHandle any, name string, node *Node) error

	// Stat refreshes node.Info (size, times, type) from the backend.
	Stat(handle any, node *Node) error
}
