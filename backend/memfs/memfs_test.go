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

package memfs_test

import (
	"testing"

	"github.com/plosclan/vfscore"
	"github.com/plosclan/vfscore/backend/memfs"
)

var _ vfscore.Backend = (*memfs.MemBackend)(nil)

func newMounted(t *testing.T) (*vfscore.Namespace, *memfs.MemBackend) {
	t.Helper()

	ns := vfscore.NewNamespace()

	b, err := memfs.MountRoot(ns)
	if err != nil {
		t.Fatalf("MountRoot: %v", err)
	}

	return ns, b
}

func TestMkdir(t *testing.T) {
	ns, _ := newMounted(t)

	if err := ns.Mkdir("/a/b/c"); err != nil {
		t.Fatalf("Mkdir /a/b/c: %v", err)
	}

	n := ns.Open("/a/b/c")
	if n == nil {
		t.Fatal("Open /a/b/c: want node, got nil")
	}

	if n.Info.Type != vfscore.TypeDirectory {
		t.Errorf("want TypeDirectory, got %v", n.Info.Type)
	}

	// mkdir -p semantics: re-creating an existing directory is a no-op.
	if err := ns.Mkdir("/a/b/c"); err != nil {
		t.Errorf("Mkdir on existing dir: want nil, got %v", err)
	}
}

func TestMkdirOverFile(t *testing.T) {
	ns, _ := newMounted(t)

	if err := ns.Mkfile("/f"); err != nil {
		t.Fatalf("Mkfile /f: %v", err)
	}

	if err := ns.Mkdir("/f/sub"); err == nil {
		t.Error("Mkdir /f/sub: want error, got nil")
	}
}

func TestMkfileAlreadyExists(t *testing.T) {
	ns, _ := newMounted(t)

	if err := ns.Mkfile("/dup"); err != nil {
		t.Fatalf("Mkfile /dup: %v", err)
	}

	if err := ns.Mkfile("/dup"); err == nil {
		t.Error("Mkfile /dup again: want error, got nil")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ns, _ := newMounted(t)

	if err := ns.Mkfile("/f"); err != nil {
		t.Fatalf("Mkfile /f: %v", err)
	}

	n := ns.Open("/f")
	if n == nil {
		t.Fatal("Open /f: want node, got nil")
	}

	want := []byte("hello, namespace")

	written, err := ns.Write(n, want, 0)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if written != len(want) {
		t.Errorf("Write: want %d bytes, got %d", len(want), written)
	}

	got := make([]byte, len(want))

	read, err := ns.Read(n, got, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if read != len(want) || string(got) != string(want) {
		t.Errorf("Read: want %q, got %q", want, got[:read])
	}
}

func TestReadPastEOF(t *testing.T) {
	ns, _ := newMounted(t)

	if err := ns.Mkfile("/f"); err != nil {
		t.Fatalf("Mkfile /f: %v", err)
	}

	n := ns.Open("/f")

	buf := make([]byte, 16)

	read, err := ns.Read(n, buf, 1024)
	if err != nil {
		t.Fatalf("Read past EOF: want nil error, got %v", err)
	}

	if read != 0 {
		t.Errorf("Read past EOF: want 0 bytes, got %d", read)
	}
}

func TestWriteToDirectory(t *testing.T) {
	ns, _ := newMounted(t)

	if err := ns.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir /d: %v", err)
	}

	n := ns.Open("/d")

	_, err := ns.Write(n, []byte("x"), 0)
	if err != vfscore.ErrIsADirectory {
		t.Errorf("Write to directory: want ErrIsADirectory, got %v", err)
	}
}

func TestSymlinkResolution(t *testing.T) {
	ns, b := newMounted(t)

	if err := ns.Mkdir("/real"); err != nil {
		t.Fatalf("Mkdir /real: %v", err)
	}

	if err := ns.Mkfile("/real/target"); err != nil {
		t.Fatalf("Mkfile /real/target: %v", err)
	}

	root := ns.Open("/")
	if err := b.SymlinkAt(root, "link", "/real/target"); err != nil {
		t.Fatalf("SymlinkAt: %v", err)
	}

	link := ns.Open("/link")
	if link == nil {
		t.Fatal("Open /link: want node, got nil")
	}

	if !link.IsSymlink() {
		t.Error("want /link to be a symlink")
	}

	want := []byte("via symlink")
	if _, err := ns.Write(link, want, 0); err != nil {
		t.Fatalf("Write through symlink: %v", err)
	}

	target := ns.Open("/real/target")

	got := make([]byte, len(want))
	if _, err := ns.Read(target, got, 0); err != nil {
		t.Fatalf("Read target: %v", err)
	}

	if string(got) != string(want) {
		t.Errorf("want %q written through symlink to land on target, got %q", want, got)
	}
}

func TestUnmountRoot(t *testing.T) {
	ns, _ := newMounted(t)

	if err := ns.Mkfile("/f"); err != nil {
		t.Fatalf("Mkfile /f: %v", err)
	}

	if err := ns.Unmount("/"); err != nil {
		t.Fatalf("Unmount /: %v", err)
	}

	root := ns.Open("/")

	if root.Info.Fsid != 0 {
		t.Errorf("want root fsid to return to 0 after unmount, got %d", root.Info.Fsid)
	}

	if root.Info.Root != root {
		t.Error("want root to remain its own Root after unmount")
	}

	if ns.Open("/f") != nil {
		t.Error("want /f to be gone after unmounting root")
	}
}

func TestUnmountNonMountPoint(t *testing.T) {
	ns, _ := newMounted(t)

	if err := ns.Mkdir("/plain"); err != nil {
		t.Fatalf("Mkdir /plain: %v", err)
	}

	if err := ns.Unmount("/plain"); err == nil {
		t.Error("Unmount of a non-mount-point directory: want error, got nil")
	}
}
