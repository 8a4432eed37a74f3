/*
Copyright 2025 The Mysqlbulk Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mysql

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/quillmesh/mysqlbulk/go/bucketpool"
	"github.com/quillmesh/mysqlbulk/go/log"
)

// The client half of the LOAD DATA LOCAL INFILE sub-protocol. After the
// statement is sent the server either answers directly (OK or ERR), or
// asks for the file with a LocalInfilePacket. From that point the
// server is owed a byte stream and a terminating empty packet, no
// matter what goes wrong on our side: only the empty packet returns the
// session to the command-ready state. Failures are therefore surfaced
// only after the final server reply has been drained.

// byteSource opens the stream of file bytes to send. Opening is
// deferred until the server actually asks for data.
type byteSource func() (io.ReadCloser, error)

// chunkPool recycles the staging buffers packets are accumulated in.
var chunkPool = bucketpool.New(connBufferSize, MaxPacketSize)

// runLocalInfile sends query and answers the server's local file
// request from open. It returns the affected row count of the final OK
// packet.
func runLocalInfile(ctx context.Context, sess Session, query string, open byteSource) (uint64, error) {
	if err := sess.SendCommand(ctx, query); err != nil {
		return 0, err
	}
	reply, err := sess.ReceivePacket(ctx)
	if err != nil {
		return 0, err
	}
	switch r := reply.(type) {
	case *ReplyOK:
		// The server did not ask for local data. Unusual, but the
		// statement is done.
		return r.AffectedRows, nil
	case *ReplyErr:
		r.Err.Query = query
		return 0, r.Err
	case *ReplyLocalInfile:
		// The echoed filename is advisory: the source was fixed
		// when the statement was built.
		if log.V(2) {
			log.Infof("server requested local infile %q", r.Filename)
		}
		return streamLocalInfile(ctx, sess, open)
	}
	return 0, newProtocolError("unexpected reply %T to LOAD DATA", reply)
}

// streamLocalInfile runs the STREAMING state: file bytes out in
// max-payload packets, then the empty trailer, then the final reply.
func streamLocalInfile(ctx context.Context, sess Session, open byteSource) (uint64, error) {
	src, err := open()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = newBulkError(ErrFileNotFound, err)
		}
		return finishLocalInfile(ctx, sess, err)
	}
	defer src.Close()

	chunkSize := effectivePacketSize(sess)
	buf := chunkPool.Get(chunkSize)
	defer chunkPool.Put(buf)

	for {
		n, rerr := io.ReadFull(src, *buf)
		// A cancellation or an expired deadline truncates the
		// transfer at a packet boundary: unsent bytes are dropped,
		// the trailer still goes out.
		if err := ctx.Err(); err != nil {
			return finishLocalInfile(ctx, sess, err)
		}
		if n > 0 {
			if werr := sess.WriteFileChunk(ctx, (*buf)[:n]); werr != nil {
				// The transport is broken; there is no
				// sub-protocol left to unwind.
				return 0, werr
			}
		}
		switch {
		case rerr == nil:
			// Full chunk, keep going.
		case rerr == io.EOF || rerr == io.ErrUnexpectedEOF:
			return finishLocalInfile(ctx, sess, nil)
		default:
			return finishLocalInfile(ctx, sess, rerr)
		}
	}
}

// finishLocalInfile sends the empty trailer and drains the final
// reply, then reports cause (or the server's verdict when the
// streaming side succeeded). The drain runs outside the operation's
// deadline: it is the only way back to command-ready.
func finishLocalInfile(ctx context.Context, sess Session, cause error) (uint64, error) {
	drainCtx := context.WithoutCancel(ctx)
	if err := sess.WriteFileEnd(drainCtx); err != nil {
		return 0, err
	}
	reply, err := sess.ReceivePacket(drainCtx)
	if err != nil {
		return 0, err
	}
	switch r := reply.(type) {
	case *ReplyOK:
		if cause != nil {
			return 0, cause
		}
		return r.AffectedRows, nil
	case *ReplyErr:
		if cause != nil {
			// The local failure started the unwind; the server
			// error is a consequence of the truncated stream.
			return 0, cause
		}
		return 0, r.Err
	}
	return 0, newProtocolError("unexpected reply %T to LOCAL INFILE trailer", reply)
}

// effectivePacketSize is the biggest payload the session can carry in
// one packet.
func effectivePacketSize(sess Session) int {
	max := sess.MaxAllowedPacket()
	if max == 0 || max > MaxPacketSize {
		return MaxPacketSize
	}
	if max <= packetHeaderSize {
		return 1
	}
	return int(max) - packetHeaderSize
}
