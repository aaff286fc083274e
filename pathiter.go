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

import "strings"

// MaxPathLen is the hard ceiling on an input path's length (PATH_MAX).
const MaxPathLen = 4096

// MaxNameLen is the hard ceiling on a single path component (FILENAME_MAX).
const MaxNameLen = 256

// pathIterator walks an absolute path component by component. It is a
// single-separator ('/') simplification of avfs's generic PathIterator: this
// core targets POSIX-style hosting environments only (§1), so there is no
// volume name to track.
//
// Grammar: "/" | "/" component ("/" component)*. A leading '/' is
// mandatory. Empty components — a double slash, or a trailing slash on any
// path beyond the bare root — are resolution errors; the iterator reports
// them by having next return false and setting isBad rather than skipping
// them.
type pathIterator struct {
	path  string
	start int
	end   int
	bad   bool
}

// newPathIterator validates path's leading slash and length, returning
// ErrBadPath or ErrPathTooLong up front.
func newPathIterator(path string) (*pathIterator, error) {
	if len(path) > MaxPathLen {
		return nil, ErrPathTooLong
	}

	if len(path) == 0 || path[0] != '/' {
		return nil, ErrBadPath
	}

	return &pathIterator{path: path}, nil
}

// isRoot reports whether the iterated path is exactly "/".
func (pi *pathIterator) isRoot() bool {
	return pi.path == "/"
}

// next advances to the next component. It returns false once the path is
// exhausted. If a component is empty (double slash or trailing slash) it
// sets bad and returns false; callers must check isBad() afterward.
func (pi *pathIterator) next() bool {
	if pi.bad {
		return false
	}

	pi.start = pi.end + 1
	if pi.start > len(pi.path) {
		return false
	}

	if pi.start == len(pi.path) {
		// Trailing slash past the root, e.g. "/a/" — a resolution error.
		if pi.start > 1 {
			pi.bad = true
		}

		return false
	}

	rel := strings.IndexByte(pi.path[pi.start:], '/')
	if rel == -1 {
		pi.end = len(pi.path)
	} else {
		pi.end = pi.start + rel
	}

	if pi.end == pi.start {
		pi.bad = true

		return false
	}

	return true
}

// part returns the current component.
func (pi *pathIterator) part() string {
	return pi.path[pi.start:pi.end]
}

// isBad reports whether iteration stopped because of a malformed path rather
// than exhaustion.
func (pi *pathIterator) isBad() bool {
	return pi.bad
}
