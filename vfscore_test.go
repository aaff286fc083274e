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

package vfscore_test

import (
	"errors"
	"testing"

	"github.com/plosclan/vfscore"
	"github.com/plosclan/vfscore/backend/memfs"
)

func newNamespace(t *testing.T) *vfscore.Namespace {
	t.Helper()

	ns := vfscore.NewNamespace()

	if _, err := memfs.MountRoot(ns); err != nil {
		t.Fatalf("MountRoot: %v", err)
	}

	return ns
}

func TestNewNamespaceRootUnmounted(t *testing.T) {
	ns := vfscore.NewNamespace()

	root := ns.Root()
	if root.Info.Fsid != 0 {
		t.Errorf("want fresh root fsid 0, got %d", root.Info.Fsid)
	}

	if root.Info.Root != root {
		t.Error("want fresh root to be its own Root")
	}
}

func TestBadPaths(t *testing.T) {
	ns := newNamespace(t)

	cases := []string{"", "relative", "/a/", "/a//b", "//"}

	for _, p := range cases {
		if err := ns.Mkdir(p); err == nil {
			t.Errorf("Mkdir(%q): want error, got nil", p)
		}
	}
}

func TestPathTooLong(t *testing.T) {
	ns := newNamespace(t)

	long := make([]byte, vfscore.MaxPathLen+1)
	long[0] = '/'

	for i := 1; i < len(long); i++ {
		long[i] = 'a'
	}

	if err := ns.Mkdir(string(long)); err == nil {
		t.Error("Mkdir over MaxPathLen: want error, got nil")
	}
}

func TestNestedMkdir(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkdir("/a/b/c/d"); err != nil {
		t.Fatalf("Mkdir /a/b/c/d: %v", err)
	}

	for _, p := range []string{"/a", "/a/b", "/a/b/c", "/a/b/c/d"} {
		if ns.Open(p) == nil {
			t.Errorf("Open(%q): want node, got nil", p)
		}
	}
}

func TestDotAndDotDot(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkdir("/a/b"); err != nil {
		t.Fatalf("Mkdir /a/b: %v", err)
	}

	n := ns.Open("/a/b/../b/.")
	if n == nil {
		t.Fatal("Open with . and ..: want node, got nil")
	}

	if n != ns.Open("/a/b") {
		t.Error("want . and .. resolution to land on the same node as the direct path")
	}
}

func TestDotDotPastRoot(t *testing.T) {
	ns := newNamespace(t)

	if n := ns.Open("/.."); n != nil {
		t.Error("want .. past root to fail resolution")
	}
}

func TestOpenMissing(t *testing.T) {
	ns := newNamespace(t)

	if n := ns.Open("/nope"); n != nil {
		t.Error("Open of a missing path: want nil, got a node")
	}
}

func TestMissingLookupLeavesNoGhost(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkdir("/a"); err != nil {
		t.Fatalf("Mkdir /a: %v", err)
	}

	if n := ns.Open("/a/ghost"); n != nil {
		t.Fatal("Open of a missing child: want nil, got a node")
	}

	// A second Mkdir of the real name must succeed unobstructed by any
	// leftover entry from the failed lookup above.
	if err := ns.Mkdir("/a/ghost"); err != nil {
		t.Errorf("Mkdir /a/ghost after failed Open: want nil, got %v", err)
	}
}

func TestWriteReadFullCycle(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkfile("/f"); err != nil {
		t.Fatalf("Mkfile /f: %v", err)
	}

	n := ns.Open("/f")

	payload := []byte("the quick brown fox")

	if _, err := ns.Write(n, payload, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := make([]byte, len(payload))

	read, err := ns.Read(n, got, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if string(got[:read]) != string(payload) {
		t.Errorf("want %q, got %q", payload, got[:read])
	}
}

func TestShortReadAtEOF(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkfile("/f"); err != nil {
		t.Fatalf("Mkfile /f: %v", err)
	}

	n := ns.Open("/f")

	if _, err := ns.Write(n, []byte("abc"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 16)

	read, err := ns.Read(n, buf, 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if read != 2 {
		t.Errorf("want short read of 2 bytes, got %d", read)
	}
}

func TestWriteToDirectoryFails(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir /d: %v", err)
	}

	n := ns.Open("/d")

	if _, err := ns.Write(n, []byte("x"), 0); !errors.Is(err, vfscore.ErrIsADirectory) {
		t.Errorf("Write to directory: want ErrIsADirectory, got %v", err)
	}
}

func TestReadFromDirectoryFails(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir /d: %v", err)
	}

	n := ns.Open("/d")

	if _, err := ns.Read(n, make([]byte, 1), 0); !errors.Is(err, vfscore.ErrIsADirectory) {
		t.Errorf("Read from directory: want ErrIsADirectory, got %v", err)
	}
}

func TestMkfileMissingParent(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkfile("/missing/f"); err == nil {
		t.Error("Mkfile under a missing parent: want error, got nil")
	}
}

func TestFullPathRoundTrip(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkdir("/a/b/c"); err != nil {
		t.Fatalf("Mkdir /a/b/c: %v", err)
	}

	n := ns.Open("/a/b/c")

	if got := ns.FullPath(n); got != "/a/b/c" {
		t.Errorf("FullPath: want /a/b/c, got %s", got)
	}

	if got := ns.FullPath(ns.Root()); got != "/" {
		t.Errorf("FullPath(root): want /, got %s", got)
	}
}

func TestUnmountNotAMountPoint(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkdir("/a"); err != nil {
		t.Fatalf("Mkdir /a: %v", err)
	}

	if err := ns.Unmount("/a"); err == nil {
		t.Error("Unmount of a non-mount-point: want error, got nil")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ns := newNamespace(t)

	if err := ns.Mkfile("/f"); err != nil {
		t.Fatalf("Mkfile /f: %v", err)
	}

	n := ns.Open("/f")

	if err := ns.Close(n); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := ns.Close(n); err != nil {
		t.Errorf("second Close: want nil, got %v", err)
	}
}

func TestRegistrySkipsNoopOnMount(t *testing.T) {
	ns := vfscore.NewNamespace()

	b := memfs.New()
	if _, err := ns.Register("memfs", b); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := ns.Mount("memfs", ns.Root()); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	if ns.Root().Info.Fsid == 0 {
		t.Error("want root fsid to move off the reserved noop slot after Mount")
	}
}

func TestRndTreeCreatesDirsAndFiles(t *testing.T) {
	ns := newNamespace(t)

	rt := vfscore.NewRndTree(ns, nil, &vfscore.RndTreeOpts{
		NbDirs:      5,
		NbFiles:     5,
		NbSymlinks:  0,
		MaxFileSize: 32,
		MaxDepth:    3,
	})

	if err := rt.CreateTree("/"); err != nil {
		t.Fatalf("CreateTree: %v", err)
	}

	if len(rt.Dirs()) != 5 {
		t.Errorf("want 5 dirs recorded, got %d", len(rt.Dirs()))
	}

	if len(rt.Files()) != 5 {
		t.Errorf("want 5 files recorded, got %d", len(rt.Files()))
	}

	for _, f := range rt.Files() {
		if ns.Open(f.Path) == nil {
			t.Errorf("file %s recorded by RndTree was not created", f.Path)
		}
	}
}

func TestRndTreeWithSymlinks(t *testing.T) {
	ns := vfscore.NewNamespace()

	b, err := memfs.MountRoot(ns)
	if err != nil {
		t.Fatalf("MountRoot: %v", err)
	}

	rt := vfscore.NewRndTree(ns, memfs.SymlinkerFor(b), &vfscore.RndTreeOpts{
		NbDirs:      3,
		NbFiles:     3,
		NbSymlinks:  2,
		MaxFileSize: 8,
		MaxDepth:    2,
	})

	if err := rt.CreateTree("/"); err != nil {
		t.Fatalf("CreateTree: %v", err)
	}

	for _, sl := range rt.Symlinks() {
		n := ns.Open(sl.NewPath)
		if n == nil || !n.IsSymlink() {
			t.Errorf("symlink %s was not created", sl.NewPath)
		}
	}
}
