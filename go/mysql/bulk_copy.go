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
	"strings"
	"time"

	"github.com/quillmesh/mysqlbulk/go/sqlescape"
	"github.com/quillmesh/mysqlbulk/go/sqltypes"
)

// BulkCopyColumnMapping maps one source column, by ordinal, to a
// destination column, by name.
type BulkCopyColumnMapping struct {
	SourceOrdinal     int
	DestinationColumn string
}

// RowsCopiedEvent is passed to the progress handler. Setting Abort
// stops the copy after the current row; the rows already streamed are
// committed by the server.
type RowsCopiedEvent struct {
	RowsCopied int64
	Abort      bool
}

// BulkCopyResult reports the outcome of a bulk copy.
type BulkCopyResult struct {
	// RowsInserted is the affected row count the server reported.
	RowsInserted uint64
}

// BulkCopy streams the rows of a RowSource into a destination table
// through a synthesized LOAD DATA LOCAL INFILE session.
type BulkCopy struct {
	session Session

	// DestinationTableName is the table rows are written to.
	// Required.
	DestinationTableName string

	// Timeout bounds the whole copy. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration

	// NotifyAfter fires the progress handler every NotifyAfter rows.
	// Zero disables progress.
	NotifyAfter int

	// ColumnMappings pairs source ordinals with destination columns.
	// Empty maps by ordinal.
	ColumnMappings []BulkCopyColumnMapping

	// OnRowsCopied is the progress handler.
	OnRowsCopied func(*RowsCopiedEvent)

	rowsCopied int64
}

// NewBulkCopy returns a BulkCopy bound to session.
func NewBulkCopy(session Session) *BulkCopy {
	return &BulkCopy{session: session}
}

// RowsCopied returns the number of rows handed to the wire so far. It
// grows monotonically during a copy; after a successful copy it is the
// server's affected row count.
func (b *BulkCopy) RowsCopied() int64 {
	return b.rowsCopied
}

// mappedColumn is one resolved destination of the generated stream.
type mappedColumn struct {
	sourceOrdinal int
	dest          *Field
}

// WriteToServer streams all rows of src into the destination table.
func (b *BulkCopy) WriteToServer(ctx context.Context, src RowSource) (*BulkCopyResult, error) {
	if b.DestinationTableName == "" {
		return nil, bulkErrorf(ErrConfiguration, "destination table name is required")
	}
	if b.NotifyAfter < 0 {
		return nil, bulkErrorf(ErrConfiguration, "notify after cannot be negative")
	}
	if b.session.Capabilities()&CapabilityClientLocalFiles == 0 {
		return nil, bulkErrorf(ErrConfiguration, "LOCAL INFILE is not enabled on this session")
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	dest, err := b.destinationColumns(ctx)
	if err != nil {
		return nil, err
	}
	mapping, err := b.resolveMapping(src, dest)
	if err != nil {
		return nil, err
	}
	query := b.buildQuery(mapping)

	// The framing must match the FIELDS/LINES clauses of the
	// generated statement: tab separated, backslash escaped, not
	// enclosed.
	enc := newTextEncoding("\t", "\n", 0, false, '\\')

	ordinals := make([]int, len(mapping))
	for i, m := range mapping {
		ordinals[i] = m.sourceOrdinal
	}

	b.rowsCopied = 0
	stream := newRowStream(src, ordinals, enc, effectivePacketSize(b.session), b.progress)

	affected, err := runLocalInfile(ctx, b.session, query, func() (io.ReadCloser, error) {
		return io.NopCloser(stream), nil
	})
	if err != nil {
		return nil, err
	}
	b.rowsCopied = int64(affected)
	return &BulkCopyResult{RowsInserted: affected}, nil
}

// WriteTableToServer streams the rows of an in-memory result.
func (b *BulkCopy) WriteTableToServer(ctx context.Context, table *Result) (*BulkCopyResult, error) {
	return b.WriteToServer(ctx, SourceFromResult(table))
}

// progress counts a fully encoded row and fires the handler on
// NotifyAfter boundaries. The count is updated before the handler runs;
// a handler that sets Abort stops the stream after the current row.
func (b *BulkCopy) progress() bool {
	b.rowsCopied++
	if b.NotifyAfter <= 0 || b.OnRowsCopied == nil {
		return false
	}
	if b.rowsCopied%int64(b.NotifyAfter) != 0 {
		return false
	}
	event := &RowsCopiedEvent{RowsCopied: b.rowsCopied}
	b.OnRowsCopied(event)
	return event.Abort
}

// destinationColumns fetches the destination's column metadata. The
// result is used for this call only.
func (b *BulkCopy) destinationColumns(ctx context.Context) ([]*Field, error) {
	probe := fmt.Sprintf("SELECT * FROM %s LIMIT 0", sqlescape.EscapeID(b.DestinationTableName))
	result, err := b.session.Query(ctx, probe)
	if err != nil {
		return nil, err
	}
	if len(result.Fields) == 0 {
		return nil, bulkErrorf(ErrConfiguration, "table %v has no columns", b.DestinationTableName)
	}
	return result.Fields, nil
}

// resolveMapping pairs source ordinals with destination columns. With
// no configured mappings the pairing is by ordinal; extra source
// columns are ignored. Configured mappings are honored in order.
// Destination columns left out of the mapping get their SQL defaults,
// so a NOT NULL column without one must not be left out.
func (b *BulkCopy) resolveMapping(src RowSource, dest []*Field) ([]mappedColumn, error) {
	if len(b.ColumnMappings) == 0 {
		n := min(src.ColumnCount(), len(dest))
		mapping := make([]mappedColumn, n)
		for i := 0; i < n; i++ {
			mapping[i] = mappedColumn{sourceOrdinal: i, dest: dest[i]}
		}
		if err := checkRequiredColumns(dest, mapping); err != nil {
			return nil, err
		}
		return mapping, nil
	}

	mapping := make([]mappedColumn, 0, len(b.ColumnMappings))
	seen := make(map[string]bool, len(b.ColumnMappings))
	for _, m := range b.ColumnMappings {
		if m.SourceOrdinal < 0 {
			return nil, bulkErrorf(ErrConfiguration, "source ordinal %v is negative", m.SourceOrdinal)
		}
		if m.SourceOrdinal >= src.ColumnCount() {
			return nil, bulkErrorf(ErrConfiguration,
				"column count mismatch: mapping wants source column %v, the source has %v",
				m.SourceOrdinal, src.ColumnCount())
		}
		key := strings.ToLower(m.DestinationColumn)
		if seen[key] {
			return nil, bulkErrorf(ErrConfiguration, "destination column %v is mapped twice", m.DestinationColumn)
		}
		seen[key] = true
		field := findField(dest, m.DestinationColumn)
		if field == nil {
			return nil, bulkErrorf(ErrConfiguration, "destination column %v does not exist", m.DestinationColumn)
		}
		mapping = append(mapping, mappedColumn{sourceOrdinal: m.SourceOrdinal, dest: field})
	}
	if err := checkRequiredColumns(dest, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// checkRequiredColumns rejects a mapping that leaves out a NOT NULL
// destination column. Auto-increment columns are exempt: the server
// fills them in.
func checkRequiredColumns(dest []*Field, mapping []mappedColumn) error {
	mapped := make(map[string]bool, len(mapping))
	for _, m := range mapping {
		mapped[strings.ToLower(m.dest.Name)] = true
	}
	for _, f := range dest {
		if mapped[strings.ToLower(f.Name)] {
			continue
		}
		if f.Flags&NotNullFlag != 0 && f.Flags&AutoIncrementFlag == 0 {
			return bulkErrorf(ErrConfiguration, "destination column %v is NOT NULL but not mapped", f.Name)
		}
	}
	return nil
}

func findField(fields []*Field, name string) *Field {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// bulkCopyFileName is the advisory filename embedded in the
// synthesized statement.
const bulkCopyFileName = "bulk_copy.csv"

// buildQuery composes the synthesized LOAD DATA LOCAL INFILE
// statement. Binary destinations receive hex text through a user
// variable and an UNHEX assignment; everything else is loaded
// directly.
func (b *BulkCopy) buildQuery(mapping []mappedColumn) string {
	var buf strings.Builder
	buf.WriteString("LOAD DATA LOCAL INFILE ")
	sqlescape.WriteEscapeString(&buf, bulkCopyFileName)
	buf.WriteString(" INTO TABLE ")
	sqlescape.WriteEscapeID(&buf, b.DestinationTableName)
	buf.WriteString(` CHARACTER SET utf8mb4 FIELDS TERMINATED BY '\t' ESCAPED BY '\\' LINES TERMINATED BY '\n' (`)

	var setClauses []string
	for i, m := range mapping {
		if i > 0 {
			buf.WriteString(", ")
		}
		if sqltypes.IsBinary(m.dest.Type) || m.dest.Type == sqltypes.Bit {
			variable := fmt.Sprintf("@col%d", i+1)
			buf.WriteString(variable)
			setClauses = append(setClauses,
				fmt.Sprintf("%s = UNHEX(%s)", sqlescape.EscapeID(m.dest.Name), variable))
		} else {
			sqlescape.WriteEscapeID(&buf, m.dest.Name)
		}
	}
	buf.WriteString(")")

	if len(setClauses) > 0 {
		buf.WriteString(" SET ")
		buf.WriteString(strings.Join(setClauses, ", "))
	}
	return buf.String()
}
