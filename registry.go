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

// defaultRegistryCap is the default ceiling on the number of backends a
// Registry accepts, matching the source's 256-slot static table. Unlike
// that table, this is not a fixed array: WithUnboundedRegistry lifts the
// ceiling for hosts layering more backends than the original allowed.
const defaultRegistryCap = 256

// noopBackend is the implicit slot-0 backend: every operation succeeds
// silently. It exists so the root node can carry Fsid == 0 before any
// mount, and so dispatch never needs a nil check.
type noopBackend struct{}

func (noopBackend) Mount(string, *Node) error                      { return nil }
func (noopBackend) Unmount(any)                                    {}
func (noopBackend) Open(any, string, *Node)                        {}
func (noopBackend) Close(any)                                      {}
func (noopBackend) Read(any, []byte, int64) (int, error)           { return 0, nil }
func (noopBackend) Write(any, []byte, int64) (int, error)          { return 0, nil }
func (noopBackend) Mkdir(any, string, *Node) error                  { return nil }
func (noopBackend) Mkfile(any, string, *Node) error                 { return nil }
func (noopBackend) Stat(any, *Node) error                           { return nil }

// registryEntry pairs a backend with the name it was registered under.
type registryEntry struct {
	name string
	ops  Backend
}

// Registry maps backend ids to their operation tables. Ids are assigned
// monotonically starting at 1 and are never reused; id 0 is reserved for
// noopBackend.
type Registry struct {
	entries   []registryEntry
	unbounded bool
}

// NewRegistry creates an empty Registry with slot 0 reserved for the no-op
// backend.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: []registryEntry{{name: "noop", ops: noopBackend{}}},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RegistryOption configures a Registry at construction time.
type RegistryOption func(*Registry)

// WithUnboundedRegistry lifts the default 256-backend ceiling.
func WithUnboundedRegistry() RegistryOption {
	return func(r *Registry) { r.unbounded = true }
}

// Register assigns the next free id to ops and returns it. Fails with
// ErrInvalidBackend if ops is nil, or ErrRegistryFull if the registry has
// reached its capacity and was not built with WithUnboundedRegistry.
func (r *Registry) Register(name string, ops Backend) (int, error) {
	if ops == nil {
		return 0, ErrInvalidBackend
	}

	if !r.unbounded && len(r.entries) >= defaultRegistryCap {
		return 0, ErrRegistryFull
	}

	id := len(r.entries)
	r.entries = append(r.entries, registryEntry{name: name, ops: ops})

	return id, nil
}

// Lookup returns the backend registered under id, or noopBackend and false
// if id is out of range.
func (r *Registry) Lookup(id int) (Backend, bool) {
	if id < 0 || id >= len(r.entries) {
		return noopBackend{}, false
	}

	return r.entries[id].ops, true
}

// Name returns the name a backend was registered under, or "" if id is out
// of range.
func (r *Registry) Name(id int) string {
	if id < 0 || id >= len(r.entries) {
		return ""
	}

	return r.entries[id].name
}

// Len returns the number of registered backends, including the reserved
// no-op slot.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Range calls fn for every registered backend id in increasing order
// (including the reserved slot 0), stopping early if fn returns false. Used
// by Mount to offer a new source to each backend until one accepts it.
func (r *Registry) Range(fn func(id int, ops Backend) bool) {
	for id, e := range r.entries {
		if !fn(id, e.ops) {
			return
		}
	}
}
