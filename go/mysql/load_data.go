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
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/quillmesh/mysqlbulk/go/sqlescape"
)

// LoadPriority selects the priority clause of a LOAD DATA statement.
type LoadPriority int

const (
	// LoadPriorityNone emits no priority clause.
	LoadPriorityNone LoadPriority = iota
	// LoadPriorityLow waits until no other clients read the table.
	LoadPriorityLow
	// LoadPriorityConcurrent allows concurrent reads on MyISAM.
	LoadPriorityConcurrent
)

// LoadConflict selects how input rows that collide with existing keys
// are handled.
type LoadConflict int

const (
	// LoadConflictNone emits no conflict clause; duplicates error.
	LoadConflictNone LoadConflict = iota
	// LoadConflictIgnore skips conflicting input rows.
	LoadConflictIgnore
	// LoadConflictReplace replaces existing rows.
	LoadConflictReplace
)

// BulkLoader drives a LOAD DATA [LOCAL] INFILE statement. Configure
// it, then call Load once; the configuration is frozen when the load
// begins.
type BulkLoader struct {
	session Session

	// FileName is the path of the source file. For non-local loads
	// the path is on the server's filesystem.
	FileName string

	// SourceStream streams the file bytes instead of a file. Only
	// valid with Local, and mutually exclusive with FileName.
	SourceStream io.Reader

	// TableName is the destination table. Required.
	TableName string

	// CharacterSet names the character set of the file, if any.
	CharacterSet string

	// Local streams the file from this client instead of reading a
	// server-side path. Requires the session capability.
	Local bool

	Priority LoadPriority
	Conflict LoadConflict

	// Field and line framing. Defaults: tab-separated fields escaped
	// with backslash, newline-terminated lines, no enclosing.
	FieldTerminator         string
	LineTerminator          string
	FieldQuotationCharacter byte
	FieldQuotationOptional  bool
	EscapeCharacter         byte

	// LinePrefix skips everything up to it on each input line.
	LinePrefix string

	// NumberOfLinesToSkip ignores leading lines, usually a header.
	NumberOfLinesToSkip int

	// Columns maps input fields to columns. Entries starting with
	// '@' are user variables.
	Columns []string

	// Expressions are SET assignments appended to the statement.
	Expressions []string

	// Timeout bounds the whole load. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration
}

// NewBulkLoader returns a loader with the default TSV framing.
func NewBulkLoader(session Session) *BulkLoader {
	return &BulkLoader{
		session:         session,
		FieldTerminator: "\t",
		LineTerminator:  "\n",
		EscapeCharacter: '\\',
	}
}

// streamSentinelName is the filename placed in the statement when the
// source is a stream. The server echoes it back; it is never opened.
const streamSentinelName = "stream"

func (l *BulkLoader) validate() error {
	if l.TableName == "" {
		return bulkErrorf(ErrConfiguration, "table name is required")
	}
	if l.FieldTerminator == "" || l.LineTerminator == "" {
		return bulkErrorf(ErrConfiguration, "field and line terminators must not be empty")
	}
	if l.NumberOfLinesToSkip < 0 {
		return bulkErrorf(ErrConfiguration, "number of lines to skip cannot be negative")
	}
	if l.SourceStream != nil {
		if !l.Local {
			return bulkErrorf(ErrConfiguration, "a source stream requires a LOCAL load")
		}
		if l.FileName != "" {
			return bulkErrorf(ErrConfiguration, "file name and source stream are mutually exclusive")
		}
	} else if l.FileName == "" {
		return bulkErrorf(ErrConfiguration, "either a file name or a source stream is required")
	}
	if l.Local && l.session.Capabilities()&CapabilityClientLocalFiles == 0 {
		return bulkErrorf(ErrConfiguration, "LOCAL INFILE is not enabled on this session")
	}
	return nil
}

// buildQuery composes the statement text. Identifiers are backtick
// escaped, string literals are MySQL escaped.
func (l *BulkLoader) buildQuery() (string, error) {
	if err := l.validate(); err != nil {
		return "", err
	}

	var buf strings.Builder
	buf.WriteString("LOAD DATA ")
	switch l.Priority {
	case LoadPriorityLow:
		buf.WriteString("LOW_PRIORITY ")
	case LoadPriorityConcurrent:
		buf.WriteString("CONCURRENT ")
	}
	if l.Local {
		buf.WriteString("LOCAL ")
	}
	buf.WriteString("INFILE ")
	name := l.FileName
	if l.SourceStream != nil {
		name = streamSentinelName
	}
	sqlescape.WriteEscapeString(&buf, name)
	switch l.Conflict {
	case LoadConflictReplace:
		buf.WriteString(" REPLACE")
	case LoadConflictIgnore:
		buf.WriteString(" IGNORE")
	}
	buf.WriteString(" INTO TABLE ")
	sqlescape.WriteEscapeID(&buf, l.TableName)
	if l.CharacterSet != "" {
		buf.WriteString(" CHARACTER SET ")
		sqlescape.WriteEscapeID(&buf, l.CharacterSet)
	}

	buf.WriteString(" FIELDS TERMINATED BY ")
	sqlescape.WriteEscapeString(&buf, l.FieldTerminator)
	if l.FieldQuotationCharacter != 0 {
		if l.FieldQuotationOptional {
			buf.WriteString(" OPTIONALLY")
		}
		buf.WriteString(" ENCLOSED BY ")
		sqlescape.WriteEscapeString(&buf, string(l.FieldQuotationCharacter))
	}
	if l.EscapeCharacter != 0 {
		buf.WriteString(" ESCAPED BY ")
		sqlescape.WriteEscapeString(&buf, string(l.EscapeCharacter))
	}

	buf.WriteString(" LINES")
	if l.LinePrefix != "" {
		buf.WriteString(" STARTING BY ")
		sqlescape.WriteEscapeString(&buf, l.LinePrefix)
	}
	buf.WriteString(" TERMINATED BY ")
	sqlescape.WriteEscapeString(&buf, l.LineTerminator)

	if l.NumberOfLinesToSkip > 0 {
		fmt.Fprintf(&buf, " IGNORE %d LINES", l.NumberOfLinesToSkip)
	}

	if len(l.Columns) > 0 {
		buf.WriteString(" (")
		for i, col := range l.Columns {
			if i > 0 {
				buf.WriteString(", ")
			}
			if strings.HasPrefix(col, "@") {
				buf.WriteString(col)
			} else {
				sqlescape.WriteEscapeID(&buf, col)
			}
		}
		buf.WriteString(")")
	}

	if len(l.Expressions) > 0 {
		buf.WriteString(" SET ")
		for i, expr := range l.Expressions {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(expr)
		}
	}

	return buf.String(), nil
}

// Load runs the statement and returns the number of rows the server
// reports as affected. The context carries cancellation; Timeout, when
// set, bounds the whole operation on top of it.
func (l *BulkLoader) Load(ctx context.Context) (uint64, error) {
	query, err := l.buildQuery()
	if err != nil {
		return 0, err
	}
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	if !l.Local {
		return l.loadServerSide(ctx, query)
	}
	return runLocalInfile(ctx, l.session, query, l.openSource)
}

// openSource picks the byte source for a LOCAL load.
func (l *BulkLoader) openSource() (io.ReadCloser, error) {
	if l.SourceStream != nil {
		return io.NopCloser(l.SourceStream), nil
	}
	return os.Open(l.FileName)
}

// loadServerSide sends the statement for a file the server reads from
// its own filesystem.
func (l *BulkLoader) loadServerSide(ctx context.Context, query string) (uint64, error) {
	if err := l.session.SendCommand(ctx, query); err != nil {
		return 0, err
	}
	reply, err := l.session.ReceivePacket(ctx)
	if err != nil {
		return 0, err
	}
	switch r := reply.(type) {
	case *ReplyOK:
		return r.AffectedRows, nil
	case *ReplyErr:
		r.Err.Query = query
		if r.Err.Num == ERFileNotFound {
			return 0, newBulkError(ErrFileNotFound, r.Err)
		}
		return 0, r.Err
	case *ReplyLocalInfile:
		// A non-LOCAL statement must not trigger the sub-protocol.
		// Terminate it anyway so the session stays usable, then
		// complain.
		_, ferr := finishLocalInfile(ctx, l.session, newProtocolError("server requested local file for a non-LOCAL load"))
		return 0, ferr
	}
	return 0, newProtocolError("unexpected reply %T to LOAD DATA", reply)
}
