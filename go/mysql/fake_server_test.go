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
	"bytes"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/quillmesh/mysqlbulk/go/sqltypes"
)

// This file contains an in-process MySQL server understanding just
// enough of the protocol to exercise the bulk paths: metadata probes,
// LOAD DATA with and without LOCAL, and simple control queries.

func createSocketPair(t *testing.T) (net.Listener, *Conn, *Conn) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := listener.Addr().String()

	// Dial a client, Accept a server.
	wg := sync.WaitGroup{}

	var clientConn net.Conn
	var clientErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		clientConn, clientErr = net.Dial("tcp", addr)
	}()

	var serverConn net.Conn
	var serverErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		serverConn, serverErr = listener.Accept()
	}()

	wg.Wait()
	if clientErr != nil {
		t.Fatalf("Dial failed: %v", clientErr)
	}
	if serverErr != nil {
		t.Fatalf("Accept failed: %v", serverErr)
	}

	return listener, newConn(serverConn), newConn(clientConn)
}

//
// Server-side packet builders.
//

func writeOKPacket(c *Conn, affectedRows, lastInsertID uint64, flags, warnings uint16) error {
	length := 1 +
		lenEncIntSize(affectedRows) +
		lenEncIntSize(lastInsertID) +
		2 + 2
	data := make([]byte, length)
	pos := writeByte(data, 0, OKPacket)
	pos = writeLenEncInt(data, pos, affectedRows)
	pos = writeLenEncInt(data, pos, lastInsertID)
	pos = writeUint16(data, pos, flags)
	writeUint16(data, pos, warnings)
	if err := c.writePacket(data); err != nil {
		return err
	}
	return c.flush()
}

func writeErrorPacket(c *Conn, errorCode uint16, sqlState string, format string, args ...any) error {
	errorMessage := fmt.Sprintf(format, args...)
	length := 1 + 2 + 1 + 5 + len(errorMessage)
	data := make([]byte, length)
	pos := writeByte(data, 0, ErrPacket)
	pos = writeUint16(data, pos, errorCode)
	pos = writeByte(data, pos, '#')
	if sqlState == "" {
		sqlState = SSUnknownSQLState
	}
	pos = writeEOFString(data, pos, sqlState)
	writeEOFString(data, pos, errorMessage)
	if err := c.writePacket(data); err != nil {
		return err
	}
	return c.flush()
}

func writeEOFPacket(c *Conn, flags, warnings uint16) error {
	data := make([]byte, 5)
	pos := writeByte(data, 0, EOFPacket)
	pos = writeUint16(data, pos, warnings)
	writeUint16(data, pos, flags)
	if err := c.writePacket(data); err != nil {
		return err
	}
	return c.flush()
}

func writeLocalInfileRequest(c *Conn, filename string) error {
	data := make([]byte, 1+len(filename))
	pos := writeByte(data, 0, LocalInfilePacket)
	writeEOFString(data, pos, filename)
	if err := c.writePacket(data); err != nil {
		return err
	}
	return c.flush()
}

// typeToMySQL maps the types the tests use back to the column
// definition wire triple.
func typeToMySQL(typ sqltypes.Type) (typeByte byte, charset uint16, flags uint16) {
	switch typ {
	case sqltypes.Int8:
		return 1, 63, 0
	case sqltypes.Int32:
		return 3, 63, 0
	case sqltypes.Int64:
		return 8, 63, 0
	case sqltypes.Uint64:
		return 8, 63, 32
	case sqltypes.Float64:
		return 5, 63, 0
	case sqltypes.Decimal:
		return 246, 63, 0
	case sqltypes.Timestamp:
		return 7, 63, 0
	case sqltypes.Date:
		return 10, 63, 0
	case sqltypes.Time:
		return 11, 63, 0
	case sqltypes.Datetime:
		return 12, 63, 0
	case sqltypes.Text:
		return 252, 45, 0
	case sqltypes.Blob:
		return 252, 63, 0
	case sqltypes.VarChar:
		return 253, 45, 0
	case sqltypes.VarBinary:
		return 253, 63, 0
	case sqltypes.Char:
		return 254, 45, 0
	case sqltypes.Binary:
		return 254, 63, 0
	case sqltypes.Enum:
		return 247, 45, 0
	}
	panic(fmt.Sprintf("typeToMySQL: unhandled type %v", typ))
}

func writeColumnDefinition(c *Conn, field *Field) error {
	typeByte, charset, flags := typeToMySQL(field.Type)
	// schema-level flags (NOT NULL, auto-increment) come from the
	// Field itself
	flags |= field.Flags
	length := lenEncStringSize("def") +
		lenEncStringSize("") +
		lenEncStringSize("t") +
		lenEncStringSize("t") +
		lenEncStringSize(field.Name) +
		lenEncStringSize(field.Name) +
		1 + // length of fixed fields
		2 + // charset
		4 + // column length
		1 + // type
		2 + // flags
		1 + // decimals
		2 // filler
	data := make([]byte, length)
	pos := writeLenEncString(data, 0, "def")
	pos = writeLenEncString(data, pos, "")
	pos = writeLenEncString(data, pos, "t")
	pos = writeLenEncString(data, pos, "t")
	pos = writeLenEncString(data, pos, field.Name)
	pos = writeLenEncString(data, pos, field.Name)
	pos = writeByte(data, pos, 0x0c)
	pos = writeUint16(data, pos, charset)
	pos = writeUint32(data, pos, 0)
	pos = writeByte(data, pos, typeByte)
	pos = writeUint16(data, pos, flags)
	pos = writeByte(data, pos, 0)
	writeUint16(data, pos, 0)
	if err := c.writePacket(data); err != nil {
		return err
	}
	return c.flush()
}

func writeTextRow(c *Conn, values []string) error {
	length := 0
	for _, v := range values {
		length += lenEncStringSize(v)
	}
	data := make([]byte, length)
	pos := 0
	for _, v := range values {
		pos = writeLenEncString(data, pos, v)
	}
	if err := c.writePacket(data); err != nil {
		return err
	}
	return c.flush()
}

//
// The fake server.
//

type fakeServer struct {
	t        *testing.T
	listener net.Listener
	conn     *Conn

	mu sync.Mutex

	// schema maps table names to their columns.
	schema map[string][]*Field

	// serverFiles maps server-side file paths to the row count a
	// non-local load of them reports.
	serverFiles map[string]uint64

	// queryErr fails a specific query with a scripted error.
	queryErr map[string]*SQLError

	// infileErr, when set, fails the LOCAL INFILE statement after
	// the file bytes were consumed.
	infileErr *SQLError

	// lineTerminator is what a received infile's rows end with.
	lineTerminator []byte

	// State of the last LOCAL INFILE exchange.
	lastInfile     []byte
	lastFrameSizes []int
}

// newTestSession starts a fake server and returns a client Session
// speaking to it.
func newTestSession(t *testing.T, capabilities uint32, maxAllowedPacket uint64) (Session, *fakeServer) {
	listener, sConn, cConn := createSocketPair(t)
	fs := &fakeServer{
		t:              t,
		listener:       listener,
		conn:           sConn,
		schema:         make(map[string][]*Field),
		serverFiles:    make(map[string]uint64),
		queryErr:       make(map[string]*SQLError),
		lineTerminator: []byte("\n"),
	}
	go fs.serve()
	t.Cleanup(func() {
		listener.Close()
		sConn.Close()
		cConn.Close()
	})
	return &connSession{
		conn:             cConn,
		capabilities:     capabilities,
		maxAllowedPacket: maxAllowedPacket,
	}, fs
}

func (fs *fakeServer) serve() {
	for {
		fs.conn.resetSequence()
		data, err := fs.conn.ReadPacket()
		if err != nil {
			return
		}
		if len(data) == 0 || data[0] != ComQuery {
			_ = writeErrorPacket(fs.conn, ERUnknownError, SSUnknownSQLState, "unexpected command")
			continue
		}
		if err := fs.handleQuery(string(data[1:])); err != nil {
			return
		}
	}
}

func (fs *fakeServer) handleQuery(query string) error {
	fs.mu.Lock()
	serr := fs.queryErr[query]
	fs.mu.Unlock()
	if serr != nil {
		return writeErrorPacket(fs.conn, uint16(serr.Num), serr.State, "%s", serr.Message)
	}

	upper := strings.ToUpper(query)
	switch {
	case strings.HasPrefix(upper, "SELECT * FROM"):
		return fs.handleProbe(query)
	case strings.HasPrefix(upper, "SELECT 1"):
		return fs.handleSelectOne()
	case strings.HasPrefix(upper, "LOAD DATA"):
		if strings.Contains(upper, " LOCAL ") {
			return fs.handleLocalInfile(query)
		}
		return fs.handleServerInfile(query)
	}
	return writeOKPacket(fs.conn, 0, 0, ServerStatusAutocommit, 0)
}

// handleProbe serves the SELECT * FROM t LIMIT 0 metadata probe.
func (fs *fakeServer) handleProbe(query string) error {
	rest := query[len("SELECT * FROM "):]
	table := rest
	if idx := strings.Index(rest, " LIMIT"); idx >= 0 {
		table = rest[:idx]
	}
	table = strings.Trim(table, "`")

	fs.mu.Lock()
	fields := fs.schema[table]
	fs.mu.Unlock()
	if fields == nil {
		return writeErrorPacket(fs.conn, ERNoSuchTable, SSUnknownTable, "Table '%s' doesn't exist", table)
	}

	data := make([]byte, lenEncIntSize(uint64(len(fields))))
	writeLenEncInt(data, 0, uint64(len(fields)))
	if err := fs.conn.writePacket(data); err != nil {
		return err
	}
	if err := fs.conn.flush(); err != nil {
		return err
	}
	for _, field := range fields {
		if err := writeColumnDefinition(fs.conn, field); err != nil {
			return err
		}
	}
	if err := writeEOFPacket(fs.conn, ServerStatusAutocommit, 0); err != nil {
		return err
	}
	// no rows with LIMIT 0
	return writeEOFPacket(fs.conn, ServerStatusAutocommit, 0)
}

// handleSelectOne serves SELECT 1, the session liveness check.
func (fs *fakeServer) handleSelectOne() error {
	data := make([]byte, 1)
	writeLenEncInt(data, 0, 1)
	if err := fs.conn.writePacket(data); err != nil {
		return err
	}
	if err := fs.conn.flush(); err != nil {
		return err
	}
	if err := writeColumnDefinition(fs.conn, &Field{Name: "1", Type: sqltypes.Int64}); err != nil {
		return err
	}
	if err := writeEOFPacket(fs.conn, ServerStatusAutocommit, 0); err != nil {
		return err
	}
	if err := writeTextRow(fs.conn, []string{"1"}); err != nil {
		return err
	}
	return writeEOFPacket(fs.conn, ServerStatusAutocommit, 0)
}

// handleLocalInfile requests the file, consumes it packet by packet
// until the empty trailer, and reports one affected row per line.
func (fs *fakeServer) handleLocalInfile(query string) error {
	if err := writeLocalInfileRequest(fs.conn, infileName(query)); err != nil {
		return err
	}

	received := []byte{}
	var sizes []int
	for {
		data, err := fs.conn.readOnePacket()
		if err != nil {
			return err
		}
		sizes = append(sizes, len(data))
		if len(data) == 0 {
			break
		}
		received = append(received, data...)
	}

	fs.mu.Lock()
	fs.lastInfile = received
	fs.lastFrameSizes = sizes
	rows := uint64(bytes.Count(received, fs.lineTerminator))
	infileErr := fs.infileErr
	fs.mu.Unlock()

	if infileErr != nil {
		return writeErrorPacket(fs.conn, uint16(infileErr.Num), infileErr.State, "%s", infileErr.Message)
	}
	return writeOKPacket(fs.conn, rows, 0, ServerStatusAutocommit, 0)
}

// handleServerInfile serves a non-LOCAL load from the configured fake
// filesystem.
func (fs *fakeServer) handleServerInfile(query string) error {
	name := infileName(query)
	fs.mu.Lock()
	rows, ok := fs.serverFiles[name]
	fs.mu.Unlock()
	if !ok {
		return writeErrorPacket(fs.conn, ERFileNotFound, SSUnknownSQLState,
			"File '%s' not found (Errcode: 2 \"No such file or directory\")", name)
	}
	return writeOKPacket(fs.conn, rows, 0, ServerStatusAutocommit, 0)
}

// infileName pulls the filename literal out of a LOAD DATA statement.
func infileName(query string) string {
	idx := strings.Index(query, "INFILE '")
	if idx < 0 {
		return ""
	}
	rest := query[idx+len("INFILE '"):]
	end := strings.IndexByte(rest, '\'')
	if end < 0 {
		return rest
	}
	return rest[:end]
}

func (fs *fakeServer) receivedInfile() []byte {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lastInfile
}

func (fs *fakeServer) receivedFrameSizes() []int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lastFrameSizes
}

func (fs *fakeServer) setTable(name string, fields []*Field) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.schema[name] = fields
}

func (fs *fakeServer) setServerFile(name string, rows uint64) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.serverFiles[name] = rows
}

func (fs *fakeServer) setLineTerminator(term string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.lineTerminator = []byte(term)
}
