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

// Package vfscoretest is a backend-agnostic operation-sequence suite: a
// single Suite type runs the same sequence of Mkdir/Mkfile/Read/Write/
// Unmount calls against whatever Namespace+mountpoint a caller supplies, so
// every Backend implementation it is run against is checked against the
// same behavioral contract rather than each growing its own ad hoc test
// file. suite_test.go runs it against memfs; no netfs run exists.
package vfscoretest

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/plosclan/vfscore"
)

// Suite runs the shared operation sequence against a Namespace rooted at a
// single mounted Backend. NewSuite does not mount anything itself: the
// caller mounts whatever backend it wants exercised and hands the suite
// the resulting namespace, mirroring NewSuiteFS taking an already
// configured avfs.VFSBase rather than constructing one itself.
type Suite struct {
	ns        *vfscore.Namespace
	symlinker vfscore.Symlinker
}

// NewSuite wraps ns, which must already have a backend mounted at "/".
func NewSuite(tb testing.TB, ns *vfscore.Namespace) *Suite {
	if ns == nil {
		tb.Skip("NewSuite: ns must not be nil, skipping tests")
	}

	root := ns.Root()
	if root.Info.Fsid == 0 {
		tb.Skip("NewSuite: ns has no backend mounted at the root, skipping tests")
	}

	return &Suite{ns: ns}
}

// AssertNoError fails tb if err is non-nil, mirroring the retrieved
// suite's helper of the same name and signature.
func AssertNoError(tb testing.TB, err error, msgAndArgs ...any) bool {
	if err != nil {
		tb.Helper()
		tb.Errorf("error: want nil, got %v%s", err, formatArgs(msgAndArgs))

		return false
	}

	return true
}

// AssertError fails tb unless err wraps want (per errors.Is).
func AssertError(tb testing.TB, err, want error, msgAndArgs ...any) bool {
	if !errors.Is(err, want) {
		tb.Helper()
		tb.Errorf("error: want %v, got %v%s", want, err, formatArgs(msgAndArgs))

		return false
	}

	return true
}

func formatArgs(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}

	format, ok := msgAndArgs[0].(string)
	if !ok {
		return ""
	}

	return "\n" + fmt.Sprintf(format, msgAndArgs[1:]...)
}

// RunAll runs every Test* method of Suite as a subtest rooted at baseDir,
// the way NewSuiteFS's callers loop over a fixed method list.
func (s *Suite) RunAll(t *testing.T, baseDir string) {
	t.Run("Mkdir", func(t *testing.T) { s.TestMkdir(t, baseDir) })
	t.Run("Mkfile", func(t *testing.T) { s.TestMkfile(t, baseDir) })
	t.Run("WriteRead", func(t *testing.T) { s.TestWriteRead(t, baseDir) })
	t.Run("MkdirAll", func(t *testing.T) { s.TestMkdirAll(t, baseDir) })
	t.Run("Symlink", func(t *testing.T) { s.TestSymlinkIfSupported(t, baseDir) })
	t.Run("Unmount", func(t *testing.T) { s.TestUnmountRejectsInterior(t, baseDir) })
}

// join mirrors vfs.Join for the two-segment case the suite needs, since
// the core has no exported path-joining helper of its own.
func join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}

	return dir + "/" + name
}

// TestMkdir exercises Mkdir's idempotent-on-existing-directory and
// fails-on-existing-file behavior.
func (s *Suite) TestMkdir(t *testing.T, testDir string) {
	ns := s.ns

	dir := join(testDir, "mkdirTest")

	AssertNoError(t, ns.Mkdir(dir), "Mkdir %s", dir)

	n := ns.Open(dir)
	if n == nil {
		t.Fatalf("Open %s: want node, got nil", dir)
	}

	if n.Info.Type != vfscore.TypeDirectory {
		t.Errorf("Open %s: want a directory, got type %v", dir, n.Info.Type)
	}

	t.Run("MkdirOnExistingDir", func(t *testing.T) {
		AssertNoError(t, ns.Mkdir(dir), "Mkdir %s a second time", dir)
	})

	t.Run("MkdirOnFile", func(t *testing.T) {
		filePath := join(dir, "afile")
		AssertNoError(t, ns.Mkfile(filePath))

		err := ns.Mkdir(join(filePath, "subdir"))
		AssertError(t, err, vfscore.ErrNotADirectory, "Mkdir under a file")
	})

	t.Run("MkdirOnMissingParent", func(t *testing.T) {
		// Mkdir implements mkdir -p, so this succeeds by creating the
		// missing intermediate component too.
		deep := join(join(dir, "missing"), "leaf")
		AssertNoError(t, ns.Mkdir(deep))
	})
}

// TestMkdirAll exercises multi-component Mkdir paths, confirming every
// intermediate component was created as a directory.
func (s *Suite) TestMkdirAll(t *testing.T, testDir string) {
	ns := s.ns

	path := join(join(join(testDir, "a"), "b"), "c")
	AssertNoError(t, ns.Mkdir(path))

	for _, sub := range []string{"a", "a/b", "a/b/c"} {
		full := join(testDir, sub)

		n := ns.Open(full)
		if n == nil {
			t.Fatalf("Open %s: want node, got nil", full)
		}

		if n.Info.Type != vfscore.TypeDirectory {
			t.Errorf("Open %s: want a directory, got type %v", full, n.Info.Type)
		}
	}
}

// TestMkfile exercises Mkfile's already-exists and missing-parent failure
// modes alongside the success path.
func (s *Suite) TestMkfile(t *testing.T, testDir string) {
	ns := s.ns

	dir := join(testDir, "mkfileTest")
	AssertNoError(t, ns.Mkdir(dir))

	file := join(dir, "newfile")
	AssertNoError(t, ns.Mkfile(file))

	n := ns.Open(file)
	if n == nil {
		t.Fatalf("Open %s: want node, got nil", file)
	}

	if n.Info.Type == vfscore.TypeDirectory {
		t.Errorf("Open %s: want a regular file, got a directory", file)
	}

	t.Run("MkfileAlreadyExists", func(t *testing.T) {
		err := ns.Mkfile(file)
		AssertError(t, err, vfscore.ErrAlreadyExists)
	})

	t.Run("MkfileMissingParent", func(t *testing.T) {
		missing := join(join(dir, "nosuchdir"), "file")

		err := ns.Mkfile(missing)

		var pe *fs.PathError
		if !errors.As(err, &pe) {
			t.Errorf("Mkfile %s: want a *fs.PathError, got %T (%v)", missing, err, err)
		}
	})
}

// TestWriteRead writes a buffer to a fresh file and reads it back, checking
// both the full round trip and a read past EOF.
func (s *Suite) TestWriteRead(t *testing.T, testDir string) {
	ns := s.ns

	dir := join(testDir, "writeReadTest")
	AssertNoError(t, ns.Mkdir(dir))

	file := join(dir, "data")
	AssertNoError(t, ns.Mkfile(file))

	n := ns.Open(file)
	if n == nil {
		t.Fatalf("Open %s: want node, got nil", file)
	}

	content := []byte("the quick brown fox jumps over the lazy dog")

	written, err := ns.Write(n, content, 0)
	AssertNoError(t, err, "Write %s", file)

	if written != len(content) {
		t.Errorf("Write %s: want %d bytes written, got %d", file, len(content), written)
	}

	buf := make([]byte, len(content)+16)

	read, err := ns.Read(n, buf, 0)
	AssertNoError(t, err, "Read %s", file)

	if string(buf[:read]) != string(content) {
		t.Errorf("Read %s: want %q, got %q", file, content, buf[:read])
	}

	t.Run("ReadPastEOF", func(t *testing.T) {
		past := make([]byte, 8)

		read, err := ns.Read(n, past, int64(len(content)+100))
		AssertNoError(t, err, "Read past EOF")

		if read != 0 {
			t.Errorf("Read past EOF: want 0 bytes, got %d", read)
		}
	})

	t.Run("WriteToDirectory", func(t *testing.T) {
		dn := ns.Open(dir)
		if dn == nil {
			t.Fatalf("Open %s: want node, got nil", dir)
		}

		_, err := ns.Write(dn, content, 0)
		AssertError(t, err, vfscore.ErrIsADirectory)
	})

	AssertNoError(t, ns.Close(n), "Close %s", file)
}

// WithSymlinker attaches a vfscore.Symlinker (see memfs.SymlinkerFor) to
// the suite, enabling TestSymlinkIfSupported. Suites for backends without
// native symlink creation leave this unset and the test is skipped.
func (s *Suite) WithSymlinker(fn vfscore.Symlinker) *Suite {
	s.symlinker = fn

	return s
}

// TestSymlinkIfSupported creates a symlink (when the suite was configured
// via WithSymlinker) and checks that resolving through it reaches the
// target's content, and that Open on the link itself reports TypeSymlink.
func (s *Suite) TestSymlinkIfSupported(t *testing.T, testDir string) {
	if s.symlinker == nil {
		t.Skip("backend does not expose a Symlinker, skipping")
	}

	ns := s.ns

	dir := join(testDir, "symlinkTest")
	AssertNoError(t, ns.Mkdir(dir))

	target := join(dir, "target")
	AssertNoError(t, ns.Mkfile(target))

	tn := ns.Open(target)
	if tn == nil {
		t.Fatalf("Open %s: want node, got nil", target)
	}

	AssertNoError(t, func() error {
		_, err := ns.Write(tn, []byte("linked content"), 0)
		return err
	}())

	link := join(dir, "link")
	AssertNoError(t, s.symlinker(ns, target, link), "create symlink %s -> %s", link, target)

	ln := ns.Open(link)
	if ln == nil {
		t.Fatalf("Open %s: want node, got nil", link)
	}

	if ln.Info.Type != vfscore.TypeSymlink {
		t.Errorf("Open %s: want TypeSymlink, got %v", link, ln.Info.Type)
	}

	buf := make([]byte, 32)

	read, err := ns.Read(ln, buf, 0)
	AssertNoError(t, err, "Read through symlink %s", link)

	if string(buf[:read]) != "linked content" {
		t.Errorf("Read through symlink %s: want %q, got %q", link, "linked content", buf[:read])
	}
}

// TestUnmountRejectsInterior confirms Unmount refuses an ordinary directory
// that is not itself a mount point's root.
func (s *Suite) TestUnmountRejectsInterior(t *testing.T, testDir string) {
	ns := s.ns

	dir := join(testDir, "notAMount")
	AssertNoError(t, ns.Mkdir(dir))

	err := ns.Unmount(dir)
	AssertError(t, err, vfscore.ErrNotAMountPoint)
}
