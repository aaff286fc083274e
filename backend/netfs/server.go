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
	"encoding/gob"
	"log"
	"sync"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/protocol"

	"github.com/plosclan/vfscore"
)

// Server exposes a *vfscore.Namespace to remote NetBackend clients over a
// libp2p host, the mirror image of p2pNode's setupStreamHandlers/
// handleHelloStream pair: one registered stream handler, one message read
// and one written per incoming stream. Stream handlers run concurrently, so
// every request takes mu before touching the shared Namespace.
type Server struct {
	mu sync.Mutex
	ns *vfscore.Namespace
}

// NewServer wraps ns for remote access. The namespace must already have a
// backend mounted at the paths remote clients will address.
func NewServer(ns *vfscore.Namespace) *Server {
	return &Server{ns: ns}
}

// Attach registers the server's stream handler on h under ProtocolID.
func (s *Server) Attach(h host.Host) {
	h.SetStreamHandler(protocol.ID(ProtocolID), s.handleStream)
}

func (s *Server) handleStream(stream network.Stream) {
	defer stream.Close()

	var req request

	dec := gob.NewDecoder(stream)
	if err := dec.Decode(&req); err != nil {
		log.Printf("netfs: decode request: %v", err)
		return
	}

	resp := s.handle(req)

	enc := gob.NewEncoder(stream)
	if err := enc.Encode(&resp); err != nil {
		log.Printf("netfs: encode response: %v", err)
	}
}

func (s *Server) handle(req request) response {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Op {
	case opOpen:
		return s.handleOpen(req.Path, req.Name)
	case opStat:
		return s.handleOpen(pathDir(req.Path), pathBase(req.Path))
	case opRead:
		return s.handleRead(req.Path, req.Offset, req.Length)
	case opWrite:
		return s.handleWrite(req.Path, req.Offset, req.Data)
	case opMkdir:
		return s.handleMkdir(req.Path, req.Name)
	case opMkfile:
		return s.handleMkfile(req.Path, req.Name)
	case opClose:
		if n := s.ns.Open(req.Path); n != nil {
			s.ns.Close(n)
		}

		return response{Found: true}
	default:
		return response{Err: "netfs: unknown op"}
	}
}

func infoResponse(n *vfscore.Node) response {
	return response{
		Found:      true,
		IsDir:      n.Info.Type == vfscore.TypeDirectory,
		IsSymlink:  n.Info.Type == vfscore.TypeSymlink,
		Size:       n.Info.Size,
		CreateTime: n.Info.CreateTime,
		WriteTime:  n.Info.WriteTime,
	}
}

func (s *Server) handleOpen(dir, name string) response {
	path := joinRemote(dir, name)

	n := s.ns.Open(path)
	if n == nil {
		return response{Found: false}
	}

	return infoResponse(n)
}

func (s *Server) handleRead(path string, offset int64, length int) response {
	n := s.ns.Open(path)
	if n == nil {
		return response{Err: vfscore.ErrNotFound.Error()}
	}

	if length <= 0 {
		length = 32 * 1024
	}

	buf := make([]byte, length)

	read, err := s.ns.Read(n, buf, offset)
	if err != nil {
		return response{Err: err.Error()}
	}

	return response{Found: true, N: read, Data: buf[:read]}
}

func (s *Server) handleWrite(path string, offset int64, data []byte) response {
	n := s.ns.Open(path)
	if n == nil {
		return response{Err: vfscore.ErrNotFound.Error()}
	}

	written, err := s.ns.Write(n, data, offset)
	if err != nil {
		return response{Err: err.Error()}
	}

	return response{Found: true, N: written}
}

func (s *Server) handleMkdir(dir, name string) response {
	path := joinRemote(dir, name)

	if err := s.ns.Mkdir(path); err != nil {
		return response{Err: err.Error()}
	}

	n := s.ns.Open(path)
	if n == nil {
		return response{Err: vfscore.ErrNotFound.Error()}
	}

	return infoResponse(n)
}

func (s *Server) handleMkfile(dir, name string) response {
	path := joinRemote(dir, name)

	if err := s.ns.Mkfile(path); err != nil {
		return response{Err: err.Error()}
	}

	n := s.ns.Open(path)
	if n == nil {
		return response{Err: vfscore.ErrNotFound.Error()}
	}

	return infoResponse(n)
}

func joinRemote(dir, name string) string {
	if dir == "/" || dir == "" {
		return "/" + name
	}

	return dir + "/" + name
}

func pathDir(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}

	if i <= 0 {
		return "/"
	}

	return path[:i]
}

func pathBase(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}

	return path[i+1:]
}
