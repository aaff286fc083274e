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

package netfs

import (
	"context"
	"encoding/gob"
	"errors"
	"strings"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"

	"github.com/plosclan/vfscore"
)

var errRemoteNotFound = errors.New("netfs: remote path not found")

// NetBackend implements vfscore.Backend by forwarding every call to a
// remote peer's Server. A NetBackend mounts exactly one remote subtree per
// Mount call: the mount source string is "<multiaddr>|<remotePath>",
// mirroring printNodeAddress's "/ip4/.../p2p/<peerID>" encapsulated
// multiaddr from the retrieved p2p example, extended with the path the
// remote Server should root the mount at.
type NetBackend struct {
	h host.Host
}

var _ vfscore.Backend = (*NetBackend)(nil)

// New creates a NetBackend that dials out from h.
func New(h host.Host) *NetBackend {
	return &NetBackend{h: h}
}

// remoteHandle is the opaque Handle a NetBackend stores on every Node: the
// connected peer and the absolute path on the remote namespace.
type remoteHandle struct {
	peer peer.ID
	path string
}

// Mount parses src as "<multiaddr>|<remotePath>", connects to the
// encapsulated peer, and Stats remotePath to confirm the subtree exists
// before claiming the mount.
func (b *NetBackend) Mount(src string, node *vfscore.Node) error {
	addrStr, remotePath, ok := strings.Cut(src, "|")
	if !ok {
		return errors.New("netfs: malformed mount source, want \"<multiaddr>|<path>\"")
	}

	maddr, err := multiaddr.NewMultiaddr(addrStr)
	if err != nil {
		return err
	}

	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.h.Connect(ctx, *info); err != nil {
		return err
	}

	resp, err := b.call(info.ID, request{Op: opStat, Path: remotePath})
	if err != nil {
		return err
	}

	if !resp.Found {
		return errRemoteNotFound
	}

	node.Info.Handle = remoteHandle{peer: info.ID, path: remotePath}
	fillFromResponse(node, resp)

	return nil
}

// Unmount drops the connection's association with handle. The underlying
// libp2p connection itself is left open: it may be shared by other mounts
// to the same peer.
func (b *NetBackend) Unmount(handle any) {
	rh, ok := handle.(remoteHandle)
	if !ok {
		return
	}

	_, _ = b.call(rh.peer, request{Op: opClose, Path: rh.path})
}

// Open looks up name under parentHandle's remote path.
func (b *NetBackend) Open(parentHandle any, name string, node *vfscore.Node) {
	parent, ok := parentHandle.(remoteHandle)
	if !ok {
		return
	}

	resp, err := b.call(parent.peer, request{Op: opOpen, Path: parent.path, Name: name})
	if err != nil || !resp.Found {
		return
	}

	node.Info.Handle = remoteHandle{peer: parent.peer, path: joinRemote(parent.path, name)}
	fillFromResponse(node, resp)
}

// Close releases handle. A no-op: each request already opens and closes
// its own stream, so there is no persistent remote resource to release
// beyond what Unmount already handles at the mount level.
func (b *NetBackend) Close(handle any) {}

// Read forwards to the remote peer's Read.
func (b *NetBackend) Read(handle any, dst []byte, offset int64) (int, error) {
	rh, ok := handle.(remoteHandle)
	if !ok {
		return 0, errRemoteNotFound
	}

	resp, err := b.call(rh.peer, request{Op: opRead, Path: rh.path, Offset: offset, Length: len(dst)})
	if err != nil {
		return 0, err
	}

	if resp.Err != "" {
		return 0, errors.New(resp.Err)
	}

	return copy(dst, resp.Data), nil
}

// Write forwards to the remote peer's Write.
func (b *NetBackend) Write(handle any, src []byte, offset int64) (int, error) {
	rh, ok := handle.(remoteHandle)
	if !ok {
		return 0, errRemoteNotFound
	}

	resp, err := b.call(rh.peer, request{Op: opWrite, Path: rh.path, Offset: offset, Data: src})
	if err != nil {
		return 0, err
	}

	if resp.Err != "" {
		return 0, errors.New(resp.Err)
	}

	return resp.N, nil
}

// Mkdir forwards to the remote peer's Mkdir.
func (b *NetBackend) Mkdir(parentHandle any, name string, node *vfscore.Node) error {
	parent, ok := parentHandle.(remoteHandle)
	if !ok {
		return errRemoteNotFound
	}

	resp, err := b.call(parent.peer, request{Op: opMkdir, Path: parent.path, Name: name})
	if err != nil {
		return err
	}

	if resp.Err != "" {
		return errors.New(resp.Err)
	}

	node.Info.Handle = remoteHandle{peer: parent.peer, path: joinRemote(parent.path, name)}
	fillFromResponse(node, resp)

	return nil
}

// Mkfile forwards to the remote peer's Mkfile.
func (b *NetBackend) Mkfile(parentHandle any, name string, node *vfscore.Node) error {
	parent, ok := parentHandle.(remoteHandle)
	if !ok {
		return errRemoteNotFound
	}

	resp, err := b.call(parent.peer, request{Op: opMkfile, Path: parent.path, Name: name})
	if err != nil {
		return err
	}

	if resp.Err != "" {
		return errors.New(resp.Err)
	}

	node.Info.Handle = remoteHandle{peer: parent.peer, path: joinRemote(parent.path, name)}
	fillFromResponse(node, resp)

	return nil
}

// Stat re-fetches handle's metadata from the remote peer.
func (b *NetBackend) Stat(handle any, node *vfscore.Node) error {
	rh, ok := handle.(remoteHandle)
	if !ok {
		return errRemoteNotFound
	}

	resp, err := b.call(rh.peer, request{Op: opStat, Path: rh.path})
	if err != nil {
		return err
	}

	if !resp.Found {
		return errRemoteNotFound
	}

	fillFromResponse(node, resp)

	return nil
}

// call opens a fresh stream to peer, following the one-message-request /
// one-message-response / close pattern of the retrieved p2pNode handlers.
func (b *NetBackend) call(p peer.ID, req request) (response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := b.h.NewStream(ctx, p, protocol.ID(ProtocolID))
	if err != nil {
		return response{}, err
	}
	defer stream.Close()

	if err := gob.NewEncoder(stream).Encode(&req); err != nil {
		return response{}, err
	}

	var resp response
	if err := gob.NewDecoder(stream).Decode(&resp); err != nil {
		return response{}, err
	}

	return resp, nil
}

func fillFromResponse(node *vfscore.Node, resp response) {
	switch {
	case resp.IsDir:
		node.Info.Type = vfscore.TypeDirectory
	case resp.IsSymlink:
		node.Info.Type = vfscore.TypeSymlink
	default:
		node.Info.Type = vfscore.TypeBlock
	}

	node.Info.Size = resp.Size
	node.Info.RealSize = resp.Size
	node.Info.CreateTime = resp.CreateTime
	node.Info.WriteTime = resp.WriteTime
}
