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

	"github.com/quillmesh/mysqlbulk/go/sqltypes"
)

// Field describes one column of a result or a row source.
type Field struct {
	Name    string
	Type    sqltypes.Type
	Charset uint16
	Flags   uint16
}

// Result is a query result.
type Result struct {
	Fields       []*Field
	AffectedRows uint64
	InsertID     uint64
	Rows         [][]sqltypes.Value
}

// Session is the connected, authenticated protocol session a bulk
// operation borrows. It is exclusively held for the duration of one
// operation; the wire protocol is half-duplex and the caller must
// serialize operations on it.
type Session interface {
	// SendCommand sends query as a COM_QUERY, starting a new command
	// cycle.
	SendCommand(ctx context.Context, query string) error

	// ReceivePacket reads and classifies the next server packet of
	// the ongoing command cycle.
	ReceivePacket(ctx context.Context) (Reply, error)

	// WriteFileChunk sends one packet of file bytes during the LOCAL
	// INFILE sub-protocol. len(payload) must not exceed
	// MaxPacketSize.
	WriteFileChunk(ctx context.Context, payload []byte) error

	// WriteFileEnd sends the empty packet that ends the LOCAL INFILE
	// sub-protocol and flushes the stream.
	WriteFileEnd(ctx context.Context) error

	// Capabilities returns the negotiated capability flags.
	Capabilities() uint32

	// MaxAllowedPacket returns the server-advertised bound on a
	// single packet, or 0 if unknown.
	MaxAllowedPacket() uint64

	// Query runs a query and reads its full result. Bulk operations
	// use it for the destination metadata probe.
	Query(ctx context.Context, sql string) (*Result, error)
}
