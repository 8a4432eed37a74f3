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
	"io"
	"time"

	"github.com/quillmesh/mysqlbulk/go/sqltypes"
)

// connSession binds the Session contract to packet framing over a raw
// stream. Connection establishment and authentication happen elsewhere;
// this takes over an already-negotiated stream.
type connSession struct {
	conn             *Conn
	capabilities     uint32
	maxAllowedPacket uint64
}

// deadliner is the optional deadline surface of the underlying stream
// (a net.Conn has it, an in-memory pipe may not).
type deadliner interface {
	SetDeadline(t time.Time) error
}

// NewSession wraps an established, authenticated stream into a Session.
// capabilities are the flags negotiated during the handshake;
// maxAllowedPacket is the server's advertised bound (0 picks the
// default).
func NewSession(stream io.ReadWriteCloser, capabilities uint32, maxAllowedPacket uint64) Session {
	if maxAllowedPacket == 0 {
		maxAllowedPacket = DefaultMaxAllowedPacket
	}
	return &connSession{
		conn:             newConn(stream),
		capabilities:     capabilities,
		maxAllowedPacket: maxAllowedPacket,
	}
}

// applyDeadline propagates the context deadline, if any, to the
// underlying stream. Cooperative cancellation happens at these
// suspension points; there is no watcher goroutine.
func (s *connSession) applyDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, ok := s.conn.conn.(deadliner)
	if !ok {
		return nil
	}
	if deadline, has := ctx.Deadline(); has {
		return d.SetDeadline(deadline)
	}
	return d.SetDeadline(time.Time{})
}

func (s *connSession) SendCommand(ctx context.Context, query string) error {
	if err := s.applyDeadline(ctx); err != nil {
		return err
	}
	s.conn.resetSequence()
	data := make([]byte, 0, 1+len(query))
	data = append(data, ComQuery)
	data = append(data, query...)
	if err := s.conn.writePacket(data); err != nil {
		return err
	}
	return s.conn.flush()
}

func (s *connSession) ReceivePacket(ctx context.Context) (Reply, error) {
	if err := s.applyDeadline(ctx); err != nil {
		return nil, err
	}
	data, err := s.conn.ReadPacket()
	if err != nil {
		return nil, err
	}
	return parseReply(data)
}

func (s *connSession) WriteFileChunk(ctx context.Context, payload []byte) error {
	if err := s.applyDeadline(ctx); err != nil {
		return err
	}
	return s.conn.writeFramedChunk(payload)
}

func (s *connSession) WriteFileEnd(ctx context.Context) error {
	if err := s.applyDeadline(ctx); err != nil {
		return err
	}
	if err := s.conn.writeEmptyPacket(); err != nil {
		return err
	}
	return s.conn.flush()
}

func (s *connSession) Capabilities() uint32 {
	return s.capabilities
}

func (s *connSession) MaxAllowedPacket() uint64 {
	return s.maxAllowedPacket
}

// Query implements the minimal text-protocol result reader the bulk
// paths need: the metadata probe and small control queries. Large
// result sets are not its job.
func (s *connSession) Query(ctx context.Context, sql string) (*Result, error) {
	if err := s.SendCommand(ctx, sql); err != nil {
		return nil, err
	}
	reply, err := s.ReceivePacket(ctx)
	if err != nil {
		return nil, err
	}
	switch r := reply.(type) {
	case *ReplyOK:
		return &Result{AffectedRows: r.AffectedRows, InsertID: r.LastInsertID}, nil
	case *ReplyErr:
		r.Err.Query = sql
		return nil, r.Err
	case *ReplyRaw:
		return s.readResultSet(ctx, r.Data)
	}
	return nil, newProtocolError("unexpected reply to query")
}

func (s *connSession) readResultSet(ctx context.Context, first []byte) (*Result, error) {
	colCount, _, ok := readLenEncInt(first, 0)
	if !ok {
		return nil, newProtocolError("invalid column count packet: %v", first)
	}

	result := &Result{Fields: make([]*Field, 0, colCount)}
	for i := uint64(0); i < colCount; i++ {
		data, err := s.conn.ReadPacket()
		if err != nil {
			return nil, err
		}
		field, err := parseColumnDefinition(data)
		if err != nil {
			return nil, err
		}
		result.Fields = append(result.Fields, field)
	}

	if s.capabilities&CapabilityClientDeprecateEOF == 0 {
		data, err := s.conn.ReadPacket()
		if err != nil {
			return nil, err
		}
		if !isEOFPacket(data) {
			return nil, newProtocolError("expected EOF after column definitions, got %v", data)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.conn.ReadPacket()
		if err != nil {
			return nil, err
		}
		switch {
		case isEOFPacket(data):
			return result, nil
		case len(data) > 0 && data[0] == ErrPacket:
			serr := ParseErrorPacket(data)
			return nil, serr
		case len(data) > 0 && data[0] == OKPacket && s.capabilities&CapabilityClientDeprecateEOF != 0:
			return result, nil
		}
		row, err := parseTextRow(data, result.Fields)
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, row)
	}
}

// parseColumnDefinition parses a ColumnDefinition41 packet into a
// Field.
func parseColumnDefinition(data []byte) (*Field, error) {
	pos := 0
	ok := false
	// catalog, schema, table, org_table
	for i := 0; i < 4; i++ {
		pos, ok = skipLenEncString(data, pos)
		if !ok {
			return nil, newProtocolError("invalid column definition: %v", data)
		}
	}
	name, pos, ok := readLenEncString(data, pos)
	if !ok {
		return nil, newProtocolError("invalid column definition name: %v", data)
	}
	// org_name
	pos, ok = skipLenEncString(data, pos)
	if !ok {
		return nil, newProtocolError("invalid column definition org_name: %v", data)
	}
	// length of the fixed fields, always 0x0c
	_, pos, ok = readLenEncInt(data, pos)
	if !ok {
		return nil, newProtocolError("invalid column definition length: %v", data)
	}
	charset, pos, ok := readUint16(data, pos)
	if !ok {
		return nil, newProtocolError("invalid column definition charset: %v", data)
	}
	// column length
	_, pos, ok = readUint32(data, pos)
	if !ok {
		return nil, newProtocolError("invalid column definition column length: %v", data)
	}
	typeByte, pos, ok := readByte(data, pos)
	if !ok {
		return nil, newProtocolError("invalid column definition type: %v", data)
	}
	flags, _, ok := readUint16(data, pos)
	if !ok {
		return nil, newProtocolError("invalid column definition flags: %v", data)
	}

	return &Field{
		Name:    name,
		Type:    sqltypes.MySQLToType(int64(typeByte), int64(charset), int64(flags)),
		Charset: charset,
		Flags:   flags,
	}, nil
}

// parseTextRow parses one text-protocol row packet.
func parseTextRow(data []byte, fields []*Field) ([]sqltypes.Value, error) {
	row := make([]sqltypes.Value, 0, len(fields))
	pos := 0
	for _, field := range fields {
		if pos < len(data) && data[pos] == NullValue {
			pos++
			row = append(row, sqltypes.NULL)
			continue
		}
		val, next, ok := readLenEncStringAsBytesCopy(data, pos)
		if !ok {
			return nil, newProtocolError("invalid row packet for column %v: %v", field.Name, data)
		}
		pos = next
		// The server only sends values that conform to the column
		// type.
		row = append(row, sqltypes.MakeTrusted(field.Type, val))
	}
	return row, nil
}
