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

// Package netfs is a network-backed example Backend: it proxies the
// Backend Contract's nine operations to a remote peer over a libp2p
// stream, one request per call, in the one-message-per-stream style of
// the retrieved p2pNode example (hello/chat handlers that read one
// message, reply once, and close).
package netfs

// ProtocolID identifies the libp2p stream protocol this package speaks.
const ProtocolID = "/vfscore/netfs/1.0.0"

// opCode names the remote operation a request carries.
type opCode string

const (
	opOpen   opCode = "open"
	opStat   opCode = "stat"
	opRead   opCode = "read"
	opWrite  opCode = "write"
	opMkdir  opCode = "mkdir"
	opMkfile opCode = "mkfile"
	opClose  opCode = "close"
)

// request is the single message sent on a request stream. Path is a
// remote-namespace absolute path: for Open, Mkdir and Mkfile it is the
// parent directory's path and Name is the final component; for the other
// operations it is the target's own path.
type request struct {
	Op     opCode
	Path   string
	Name   string
	Offset int64
	Length int
	Data   []byte
}

// response is the single message returned on the same stream before it is
// closed. Found distinguishes "the path resolved, here is its info" from
// "operation failed" for Open (which, per the Backend contract, reports a
// miss by leaving Handle nil rather than erroring).
type response struct {
	Found      bool
	IsDir      bool
	IsSymlink  bool
	Size       int64
	CreateTime int64
	WriteTime  int64
	Data       []byte
	N          int
	Err        string
}
