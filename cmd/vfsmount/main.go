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

// Command vfsmount mounts a fresh in-memory namespace at a real directory
// using FUSE, so the pluggable namespace core can be poked at with ordinary
// shell commands (ls, cat, mkdir) rather than through Go tests.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/plosclan/vfscore"
	"github.com/plosclan/vfscore/backend/memfs"
	"github.com/plosclan/vfscore/hostfuse"
)

func main() {
	debug := flag.Bool("debug", false, "enable go-fuse protocol tracing")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [-debug] <mountpoint>", os.Args[0])
	}

	mountpoint := flag.Arg(0)

	ns := vfscore.NewNamespace()

	if _, err := memfs.MountRoot(ns); err != nil {
		log.Fatalf("mount root backend: %v", err)
	}

	server, err := hostfuse.Mount(ns, mountpoint, *debug)
	if err != nil {
		log.Fatalf("mount %s: %v", mountpoint, err)
	}

	log.Printf("mounted in-memory namespace at %s (ctrl-C to unmount)", mountpoint)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := server.Unmount(); err != nil {
		log.Printf("unmount %s: %v", mountpoint, err)
	}
}
