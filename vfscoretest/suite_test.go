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

package vfscoretest_test

import (
	"testing"

	"github.com/plosclan/vfscore"
	"github.com/plosclan/vfscore/backend/memfs"
	"github.com/plosclan/vfscore/vfscoretest"
)

// TestSuiteOnMemBackend runs the shared operation suite against a
// memfs-backed namespace, the way NewSuiteFS's callers exercise the same
// test_vfs.go battery against every avfs.VFSBase implementation in turn.
func TestSuiteOnMemBackend(t *testing.T) {
	ns := vfscore.NewNamespace()

	b, err := memfs.MountRoot(ns)
	if err != nil {
		t.Fatalf("MountRoot: %v", err)
	}

	suite := vfscoretest.NewSuite(t, ns).WithSymlinker(memfs.SymlinkerFor(b))
	suite.RunAll(t, "/")
}
