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

package vfscore

import (
	"strconv"

	"github.com/valyala/fastrand"
)

// RndTreeOpts defines the parameters to generate a random namespace tree of
// directories, files and symbolic links.
type RndTreeOpts struct {
	NbDirs      int // NbDirs is the number of directories.
	NbFiles     int // NbFiles is the number of files.
	NbSymlinks  int // NbSymlinks is the number of symbolic links.
	MaxFileSize int // MaxFileSize is the maximum size of a file.
	MaxDepth    int // MaxDepth is the maximum depth of the tree.
}

// RndTreeDir describes a directory created by RndTree, relative to the
// generator's base path.
type RndTreeDir struct {
	Path  string
	Depth int
}

// RndTreeFile describes a file created by RndTree, relative to the
// generator's base path.
type RndTreeFile struct {
	Path string
	Size int
}

// RndTreeSymlink describes a symbolic link created by RndTree: OldPath is
// the link's target, NewPath is where the link itself was created.
type RndTreeSymlink struct {
	OldPath, NewPath string
}

// Symlinker creates a symbolic link at newPath pointing at oldPath under ns.
// The core itself has no symlink-creation operation — only backends know how
// to persist one (see memfs.MemBackend.SymlinkAt) — so RndTree takes this as
// a caller-supplied hook rather than assuming a particular backend.
type Symlinker func(ns *Namespace, oldPath, newPath string) error

// RndTree is a random namespace tree generator of directories, files and
// symbolic links, driven directly against a *Namespace rather than a
// filesystem path.
type RndTree struct {
	ns       *Namespace
	symlink  Symlinker
	dirs     []*RndTreeDir
	files    []*RndTreeFile
	symlinks []*RndTreeSymlink
	RndTreeOpts
}

// NewRndTree returns a new random tree generator bound to ns. symlink may be
// nil, in which case GenTree still records candidate symlinks but CreateTree
// skips creating them.
func NewRndTree(ns *Namespace, symlink Symlinker, opts *RndTreeOpts) *RndTree {
	if opts.NbDirs < 0 {
		opts.NbDirs = 0
	}

	if opts.NbFiles < 0 {
		opts.NbFiles = 0
	}

	if opts.NbSymlinks < 0 {
		opts.NbSymlinks = 0
	}

	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}

	if opts.MaxFileSize < 0 {
		opts.MaxFileSize = 0
	}

	return &RndTree{
		ns:      ns,
		symlink: symlink,
		RndTreeOpts: RndTreeOpts{
			NbDirs:      opts.NbDirs,
			NbFiles:     opts.NbFiles,
			NbSymlinks:  opts.NbSymlinks,
			MaxFileSize: opts.MaxFileSize,
			MaxDepth:    opts.MaxDepth,
		},
	}
}

// randn returns a pseudo-random number in [0, n), drawn from fastrand's
// global generator rather than a per-tree one: fastrand.RNG is an xorshift
// generator that stays stuck at zero from a zero seed, so reaching for the
// package-level functions (seeded once from the runtime clock) avoids
// needing our own seed plumbing.
func (rt *RndTree) randn(n int) int {
	if n <= 0 {
		return 0
	}

	return int(fastrand.Uint32n(uint32(n)))
}

// GenTree generates a random tree and populates RndTree.Dirs, RndTree.Files
// and RndTree.Symlinks. Calling it a second time is a no-op.
func (rt *RndTree) GenTree() {
	nameIdx := 0
	name := func(prefix string) string {
		nameIdx++

		return prefix + "-" + strconv.Itoa(nameIdx)
	}

	if rt.dirs != nil {
		return
	}

	nbDirs := rt.NbDirs
	dirs := make([]*RndTreeDir, nbDirs)

	parents := make([]*RndTreeDir, 1, 10)
	parents[0] = &RndTreeDir{Path: ""}

	for i := 0; i < nbDirs; i++ {
		parent := parents[rt.randn(len(parents))]
		path := parent.Path + "/" + name("dir")
		depth := parent.Depth + 1

		dir := &RndTreeDir{Path: path, Depth: depth}
		dirs[i] = dir

		if depth < rt.MaxDepth {
			parents = append(parents, dir)
		}
	}

	rt.dirs = dirs

	if rt.NbFiles == 0 {
		return
	}

	nbParents := len(parents)
	nbFiles := rt.NbFiles
	files := make([]*RndTreeFile, nbFiles)

	for i := 0; i < nbFiles; i++ {
		parent := parents[rt.randn(nbParents)]
		filePath := parent.Path + "/" + name("file")

		size := 0
		if rt.MaxFileSize > 0 {
			size = rt.randn(rt.MaxFileSize)
		}

		files[i] = &RndTreeFile{Path: filePath, Size: size}
	}

	rt.files = files

	if rt.NbSymlinks == 0 {
		return
	}

	nbSymlinks := rt.NbSymlinks
	symlinks := make([]*RndTreeSymlink, nbSymlinks)

	for i := 0; i < nbSymlinks; i++ {
		oldPath := files[rt.randn(nbFiles)].Path
		newDir := parents[rt.randn(nbParents)].Path
		newPath := newDir + "/" + name("symlink")

		symlinks[i] = &RndTreeSymlink{OldPath: oldPath, NewPath: newPath}
	}

	rt.symlinks = symlinks
}

// CreateDirs creates the generated directories under baseDir via ns.Mkdir.
func (rt *RndTree) CreateDirs(baseDir string) error {
	rt.GenTree()

	for _, dir := range rt.dirs {
		if err := rt.ns.Mkdir(joinPath(baseDir, dir.Path)); err != nil {
			return err
		}
	}

	return nil
}

// CreateFiles creates the generated files under baseDir via ns.Mkfile,
// writing size random bytes into each.
func (rt *RndTree) CreateFiles(baseDir string) error {
	if err := rt.CreateDirs(baseDir); err != nil {
		return err
	}

	buf := make([]byte, rt.MaxFileSize)
	for i := range buf {
		buf[i] = byte(fastrand.Uint32n(256))
	}

	for _, file := range rt.files {
		path := joinPath(baseDir, file.Path)

		if err := rt.ns.Mkfile(path); err != nil {
			return err
		}

		node := rt.ns.Open(path)
		if node == nil {
			return ErrNotFound
		}

		if _, err := rt.ns.Write(node, buf[:file.Size], 0); err != nil {
			return err
		}
	}

	return nil
}

// CreateSymlinks creates the generated symbolic links under baseDir, if a
// Symlinker was supplied at construction. Without one, the candidate links
// are still recorded in Symlinks but never materialized.
func (rt *RndTree) CreateSymlinks(baseDir string) error {
	if err := rt.CreateFiles(baseDir); err != nil {
		return err
	}

	if rt.symlink == nil {
		return nil
	}

	for _, sl := range rt.symlinks {
		oldPath := joinPath(baseDir, sl.OldPath)
		newPath := joinPath(baseDir, sl.NewPath)

		if err := rt.symlink(rt.ns, oldPath, newPath); err != nil {
			return err
		}
	}

	return nil
}

// CreateTree creates the full random tree structure: directories, files and
// (if a Symlinker is configured) symbolic links.
func (rt *RndTree) CreateTree(baseDir string) error {
	return rt.CreateSymlinks(baseDir)
}

func (rt *RndTree) Dirs() []*RndTreeDir         { return rt.dirs }
func (rt *RndTree) Files() []*RndTreeFile       { return rt.files }
func (rt *RndTree) Symlinks() []*RndTreeSymlink { return rt.symlinks }

// joinPath joins a base namespace path with a relative suffix produced by
// GenTree (always starting with '/'), collapsing the case where baseDir is
// the root.
func joinPath(baseDir, suffix string) string {
	if baseDir == "/" || baseDir == "" {
		return suffix
	}

	return baseDir + suffix
}
