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
	"errors"
	"fmt"
	"io"

	"github.com/quillmesh/mysqlbulk/go/sqltypes"
)

// RowSource yields the rows a bulk copy streams to the server. It is
// forward-only and borrowed for the duration of one operation.
type RowSource interface {
	// Next advances to the next row. It returns false when the
	// source is exhausted.
	Next() (bool, error)

	// ColumnCount returns the number of columns per row.
	ColumnCount() int

	// ColumnName returns the name of column i.
	ColumnName(i int) string

	// ColumnType returns the logical type of column i.
	ColumnType(i int) sqltypes.Type

	// Field returns the value of column i of the current row.
	Field(i int) (sqltypes.Value, error)
}

// TableSource is a RowSource over an in-memory set of rows.
type TableSource struct {
	fields []*Field
	rows   [][]sqltypes.Value
	index  int
}

// NewTableSource builds a TableSource. Every row must have one value
// per field.
func NewTableSource(fields []*Field, rows [][]sqltypes.Value) *TableSource {
	return &TableSource{
		fields: fields,
		rows:   rows,
		index:  -1,
	}
}

// SourceFromResult adapts a query Result into a RowSource.
func SourceFromResult(r *Result) *TableSource {
	return NewTableSource(r.Fields, r.Rows)
}

// Next is part of RowSource.
func (ts *TableSource) Next() (bool, error) {
	if ts.index+1 >= len(ts.rows) {
		return false, nil
	}
	ts.index++
	return true, nil
}

// ColumnCount is part of RowSource.
func (ts *TableSource) ColumnCount() int {
	return len(ts.fields)
}

// ColumnName is part of RowSource.
func (ts *TableSource) ColumnName(i int) string {
	return ts.fields[i].Name
}

// ColumnType is part of RowSource.
func (ts *TableSource) ColumnType(i int) sqltypes.Type {
	return ts.fields[i].Type
}

// Field is part of RowSource.
func (ts *TableSource) Field(i int) (sqltypes.Value, error) {
	row := ts.rows[ts.index]
	if i >= len(row) {
		return sqltypes.NULL, fmt.Errorf("row %v has %v fields, want at least %v", ts.index, len(row), i+1)
	}
	return row[i], nil
}

// CursorSource adapts a forward-only cursor function into a RowSource.
// The function returns io.EOF when the cursor is exhausted.
type CursorSource struct {
	fields  []*Field
	advance func() ([]sqltypes.Value, error)
	current []sqltypes.Value
}

// NewCursorSource builds a CursorSource over advance.
func NewCursorSource(fields []*Field, advance func() ([]sqltypes.Value, error)) *CursorSource {
	return &CursorSource{
		fields:  fields,
		advance: advance,
	}
}

// Next is part of RowSource.
func (cs *CursorSource) Next() (bool, error) {
	row, err := cs.advance()
	if errors.Is(err, io.EOF) {
		cs.current = nil
		return false, nil
	}
	if err != nil {
		return false, err
	}
	cs.current = row
	return true, nil
}

// ColumnCount is part of RowSource.
func (cs *CursorSource) ColumnCount() int {
	return len(cs.fields)
}

// ColumnName is part of RowSource.
func (cs *CursorSource) ColumnName(i int) string {
	return cs.fields[i].Name
}

// ColumnType is part of RowSource.
func (cs *CursorSource) ColumnType(i int) sqltypes.Type {
	return cs.fields[i].Type
}

// Field is part of RowSource.
func (cs *CursorSource) Field(i int) (sqltypes.Value, error) {
	if cs.current == nil {
		return sqltypes.NULL, errors.New("no current row")
	}
	if i >= len(cs.current) {
		return sqltypes.NULL, fmt.Errorf("row has %v fields, want at least %v", len(cs.current), i+1)
	}
	return cs.current[i], nil
}
