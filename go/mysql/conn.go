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
	"bufio"
	"io"
	"sync"

	"github.com/quillmesh/mysqlbulk/go/bucketpool"
)

// Conn frames payloads into MySQL packets over an underlying stream.
// A packet is a 3 byte little-endian payload length, a sequence byte,
// and the payload. Payloads longer than MaxPacketSize are split across
// packets, and an exact multiple of MaxPacketSize is terminated by an
// empty packet.
//
// Conn is not safe for concurrent use: the protocol is half-duplex and
// the caller serializes operations.
type Conn struct {
	conn io.ReadWriteCloser

	// sequence is the packet sequence of the ongoing command cycle.
	// Both sides increment it per packet; it resets when a new
	// command starts.
	sequence uint8

	reader *bufio.Reader

	// writer is only held between the first write of a protocol
	// exchange and the flush that ends it; in between it lives in
	// writersPool. Every write path here ends in flush, so writers
	// always find their way back.
	writer *bufio.Writer

	// currentEphemeralBuffer holds the pooled buffer of the last
	// readEphemeralPacket, until recycleReadPacket returns it.
	currentEphemeralBuffer *[]byte
}

// bufPool holds read buffers for whole packets.
var bufPool = bucketpool.New(connBufferSize, MaxPacketSize)

// writersPool recycles write buffers across conns.
var writersPool = sync.Pool{New: func() any { return bufio.NewWriterSize(nil, connBufferSize) }}

func newConn(conn io.ReadWriteCloser) *Conn {
	return &Conn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, connBufferSize),
	}
}

// write buffers b, taking a pooled writer on first use.
func (c *Conn) write(b []byte) (int, error) {
	if c.writer == nil {
		c.writer = writersPool.Get().(*bufio.Writer)
		c.writer.Reset(c.conn)
	}
	return c.writer.Write(b)
}

// putWriter returns the held writer, if any, to the pool.
func (c *Conn) putWriter() {
	if c.writer == nil {
		return
	}
	// remove the stream reference before pooling
	c.writer.Reset(nil)
	writersPool.Put(c.writer)
	c.writer = nil
}

// resetSequence starts a new command cycle.
func (c *Conn) resetSequence() {
	c.sequence = 0
}

// readHeader reads the 4 byte packet header and returns the payload
// length. It enforces the sequence contract: a skew means client and
// server disagree about the protocol state.
func (c *Conn) readHeader() (int, error) {
	var header [packetHeaderSize]byte
	if _, err := io.ReadFull(c.reader, header[:]); err != nil {
		return 0, err
	}
	sequence := header[3]
	if sequence != c.sequence {
		return 0, newProtocolError("invalid sequence, expected %v got %v", c.sequence, sequence)
	}
	c.sequence++
	return int(header[0]) | int(header[1])<<8 | int(header[2])<<16, nil
}

// readOnePacket reads a single packet into a newly allocated buffer.
func (c *Conn) readOnePacket() ([]byte, error) {
	length, err := c.readHeader()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(c.reader, data); err != nil {
		return nil, newProtocolError("error reading packet body: %v", err)
	}
	return data, nil
}

// ReadPacket reads the next logical payload, reassembling packets that
// were split at the MaxPacketSize boundary.
func (c *Conn) ReadPacket() ([]byte, error) {
	data, err := c.readOnePacket()
	if err != nil {
		return nil, err
	}
	if len(data) < MaxPacketSize {
		return data, nil
	}
	for {
		next, err := c.readOnePacket()
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			// Successful end of a multi-packet payload.
			break
		}
		data = append(data, next...)
		if len(next) < MaxPacketSize {
			break
		}
	}
	return data, nil
}

// readEphemeralPacket is the same as ReadPacket, but the buffer comes
// from a pool. The result is only valid until recycleReadPacket.
func (c *Conn) readEphemeralPacket() ([]byte, error) {
	if c.currentEphemeralBuffer != nil {
		panic("readEphemeralPacket: previous buffer was not recycled")
	}
	length, err := c.readHeader()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	if length < MaxPacketSize {
		c.currentEphemeralBuffer = bufPool.Get(length)
		if _, err := io.ReadFull(c.reader, *c.currentEphemeralBuffer); err != nil {
			return nil, newProtocolError("error reading packet body: %v", err)
		}
		return *c.currentEphemeralBuffer, nil
	}

	// Large payload: fall back to a plain allocation for the
	// reassembled result.
	data := make([]byte, length)
	if _, err := io.ReadFull(c.reader, data); err != nil {
		return nil, newProtocolError("error reading packet body: %v", err)
	}
	for {
		next, err := c.readOnePacket()
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			break
		}
		data = append(data, next...)
		if len(next) < MaxPacketSize {
			break
		}
	}
	return data, nil
}

// recycleReadPacket returns the buffer of the previous
// readEphemeralPacket to the pool.
func (c *Conn) recycleReadPacket() {
	if c.currentEphemeralBuffer != nil {
		bufPool.Put(c.currentEphemeralBuffer)
		c.currentEphemeralBuffer = nil
	}
}

// writeHeader writes one packet header for a payload of the given
// length, and advances the sequence.
func (c *Conn) writeHeader(length int) error {
	var header [packetHeaderSize]byte
	header[0] = byte(length)
	header[1] = byte(length >> 8)
	header[2] = byte(length >> 16)
	header[3] = c.sequence
	if _, err := c.write(header[:]); err != nil {
		return err
	}
	c.sequence++
	return nil
}

// writePacket writes a logical payload, splitting it at the
// MaxPacketSize boundary. A payload that is an exact multiple of
// MaxPacketSize (including empty) gets a trailing empty packet.
func (c *Conn) writePacket(data []byte) error {
	for {
		chunk := data
		if len(chunk) > MaxPacketSize {
			chunk = chunk[:MaxPacketSize]
		}
		if err := c.writeHeader(len(chunk)); err != nil {
			return err
		}
		if len(chunk) > 0 {
			if _, err := c.write(chunk); err != nil {
				return err
			}
		}
		data = data[len(chunk):]
		if len(data) == 0 {
			if len(chunk) == MaxPacketSize {
				// The receiver needs an empty packet to know
				// the payload is complete.
				return c.writeHeader(0)
			}
			return nil
		}
	}
}

// writeFramedChunk writes payload as exactly one packet. The caller
// picks the frame boundaries; len(payload) must not exceed
// MaxPacketSize.
func (c *Conn) writeFramedChunk(payload []byte) error {
	if len(payload) > MaxPacketSize {
		panic("writeFramedChunk: payload exceeds MaxPacketSize")
	}
	if err := c.writeHeader(len(payload)); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := c.write(payload); err != nil {
			return err
		}
	}
	return nil
}

// writeEmptyPacket writes an empty packet, the end-of-stream marker of
// the LOCAL INFILE sub-protocol.
func (c *Conn) writeEmptyPacket() error {
	return c.writeFramedChunk(nil)
}

// flush pushes any buffered bytes to the underlying stream and returns
// the held writer to its pool.
func (c *Conn) flush() error {
	if c.writer == nil {
		return nil
	}
	err := c.writer.Flush()
	c.putWriter()
	return err
}

// Close closes the underlying stream. Buffered but unflushed bytes are
// dropped.
func (c *Conn) Close() error {
	c.putWriter()
	return c.conn.Close()
}
