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
	"io"
)

// rowStream lazily renders rows from a RowSource into the byte stream
// a LOAD DATA LOCAL INFILE session consumes. It is pull-driven: the
// packet writer reads from it, one row is encoded at a time, and at no
// point is more than one row buffered.
type rowStream struct {
	src      RowSource
	ordinals []int // source ordinal of each emitted field
	enc      textEncoding

	// maxRowSize bounds one encoded row: a row must fit in a single
	// packet, rows are never split.
	maxRowSize int

	// onRow runs after each fully encoded row. Returning true stops
	// the stream before the next row.
	onRow func() (stop bool)

	buf      []byte
	off      int
	rowIndex int64
	done     bool
	err      error
}

func newRowStream(src RowSource, ordinals []int, enc textEncoding, maxRowSize int, onRow func() bool) *rowStream {
	return &rowStream{
		src:        src,
		ordinals:   ordinals,
		enc:        enc,
		maxRowSize: maxRowSize,
		onRow:      onRow,
	}
}

// Read implements io.Reader.
func (rs *rowStream) Read(p []byte) (int, error) {
	for rs.off == len(rs.buf) {
		if rs.err != nil {
			return 0, rs.err
		}
		if rs.done {
			return 0, io.EOF
		}
		rs.fillRow()
	}
	n := copy(p, rs.buf[rs.off:])
	rs.off += n
	return n, nil
}

// fillRow encodes the next source row into the buffer. On failure the
// stream carries no partial row: the buffer is only published once the
// whole row encoded.
func (rs *rowStream) fillRow() {
	ok, err := rs.src.Next()
	if err != nil {
		rs.err = withRow(err, rs.rowIndex, "")
		return
	}
	if !ok {
		rs.done = true
		return
	}

	row := rs.buf[:0]
	for j, ord := range rs.ordinals {
		if j > 0 {
			row = append(row, rs.enc.fieldTerminator...)
		}
		column := rs.src.ColumnName(ord)
		v, err := rs.src.Field(ord)
		if err != nil {
			rs.err = withRow(err, rs.rowIndex, column)
			return
		}
		row, err = rs.enc.appendValue(row, v)
		if err != nil {
			rs.err = withRow(err, rs.rowIndex, column)
			return
		}
		if len(row)+len(rs.enc.lineTerminator) > rs.maxRowSize {
			rs.err = withRow(newBulkError(ErrRowTooLarge, ErrValueUnsupported), rs.rowIndex, column)
			return
		}
	}
	row = append(row, rs.enc.lineTerminator...)

	rs.buf = row
	rs.off = 0
	rs.rowIndex++
	if rs.onRow != nil && rs.onRow() {
		rs.done = true
	}
}

// RowsEncoded returns how many rows have been fully encoded into the
// stream.
func (rs *rowStream) RowsEncoded() int64 {
	return rs.rowIndex
}
