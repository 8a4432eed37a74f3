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
	"encoding/hex"
	"math"
	"strconv"

	"github.com/quillmesh/mysqlbulk/go/mysql/datetime"
	"github.com/quillmesh/mysqlbulk/go/sqltypes"
)

// textEncoding describes the field and line framing of a generated
// LOAD DATA stream, mirroring the FIELDS/LINES clauses of the
// statement that announces it.
type textEncoding struct {
	fieldTerminator []byte
	lineTerminator  []byte
	// quote is the enclosing character, 0 when fields are not
	// enclosed.
	quote byte
	// quoteOptional encloses only string-ish fields, the way
	// OPTIONALLY ENCLOSED BY writes them.
	quoteOptional bool
	// escape is the escape character, 0 to disable escaping.
	escape byte
}

func newTextEncoding(fieldTerm, lineTerm string, quote byte, quoteOptional bool, escape byte) textEncoding {
	return textEncoding{
		fieldTerminator: []byte(fieldTerm),
		lineTerminator:  []byte(lineTerm),
		quote:           quote,
		quoteOptional:   quoteOptional,
		escape:          escape,
	}
}

// appendNull appends the NULL marker: the escaped \N form when an
// escape character is configured, the literal NULL word otherwise.
func (e *textEncoding) appendNull(b []byte) []byte {
	if e.escape != 0 {
		return append(b, e.escape, 'N')
	}
	return append(b, "NULL"...)
}

// appendValue appends the LOAD DATA rendering of v.
func (e *textEncoding) appendValue(b []byte, v sqltypes.Value) ([]byte, error) {
	switch {
	case v.IsNull():
		return e.appendNull(b), nil

	case v.IsFloat():
		// Infinities and NaN have no LOAD DATA representation. A
		// trusted Value may carry them, so check here.
		f, err := strconv.ParseFloat(v.ToString(), 64)
		if err != nil {
			return b, newBulkError(ErrTypeMismatch, err)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return b, newBulkError(ErrTypeMismatch, ErrValueUnsupported)
		}
		return e.appendRaw(b, v.Raw()), nil

	case v.IsIntegral() || v.Type() == sqltypes.Decimal:
		return e.appendRaw(b, v.Raw()), nil

	case v.Type() == sqltypes.Date:
		if _, ok := datetime.ParseDate(v.ToString()); !ok {
			return b, bulkErrorf(ErrTypeMismatch, "%q is not a valid DATE", v.ToString())
		}
		return e.appendRaw(b, v.Raw()), nil

	case v.Type() == sqltypes.Time:
		if _, ok := datetime.ParseTime(v.ToString()); !ok {
			return b, bulkErrorf(ErrTypeMismatch, "%q is not a valid TIME", v.ToString())
		}
		return e.appendRaw(b, v.Raw()), nil

	case v.Type() == sqltypes.Datetime || v.Type() == sqltypes.Timestamp:
		if _, ok := datetime.ParseDateTime(v.ToString()); !ok {
			return b, bulkErrorf(ErrTypeMismatch, "%q is not a valid DATETIME", v.ToString())
		}
		return e.appendRaw(b, v.Raw()), nil

	case v.IsBinary():
		// Binary values travel hex-encoded; the statement unwraps
		// them with UNHEX. Hex text never needs escaping.
		return e.appendHex(b, v.Raw()), nil

	case v.Type() == sqltypes.Bit:
		return e.appendHex(b, v.Raw()), nil

	default:
		// Text, char, enum, set and anything string-shaped.
		return e.appendQuoted(b, v.Raw()), nil
	}
}

// appendRaw appends an unquoted field, quoting it anyway when the
// framing encloses every field.
func (e *textEncoding) appendRaw(b, val []byte) []byte {
	if e.quote != 0 && !e.quoteOptional {
		b = append(b, e.quote)
		b = e.appendEscaped(b, val)
		return append(b, e.quote)
	}
	return append(b, val...)
}

// appendHex appends the lowercase hex encoding of val.
func (e *textEncoding) appendHex(b, val []byte) []byte {
	if e.quote != 0 && !e.quoteOptional {
		b = append(b, e.quote)
		b = hexAppendEncode(b, val)
		return append(b, e.quote)
	}
	return hexAppendEncode(b, val)
}

// hexAppendEncode appends the lowercase hex encoding of src to dst,
// equivalent to hex.AppendEncode (added in a newer standard library
// than the toolchain this module builds with).
func hexAppendEncode(dst, src []byte) []byte {
	n := len(dst)
	dst = append(dst, make([]byte, hex.EncodedLen(len(src)))...)
	hex.Encode(dst[n:], src)
	return dst
}

// appendQuoted appends a string field, enclosed when a quote character
// is configured.
func (e *textEncoding) appendQuoted(b, val []byte) []byte {
	if e.quote != 0 {
		b = append(b, e.quote)
		b = e.appendEscaped(b, val)
		return append(b, e.quote)
	}
	return e.appendEscaped(b, val)
}

// appendEscaped appends val with the escape character applied to the
// characters the server's field parser treats specially: the escape
// character itself, the quote character, NUL, newline, carriage
// return, tab, and the first byte of the field and line terminators.
func (e *textEncoding) appendEscaped(b, val []byte) []byte {
	if e.escape == 0 {
		return append(b, val...)
	}
	var fieldTerm byte
	if len(e.fieldTerminator) > 0 {
		fieldTerm = e.fieldTerminator[0]
	}
	var lineTerm byte
	if len(e.lineTerminator) > 0 {
		lineTerm = e.lineTerminator[0]
	}
	for _, c := range val {
		switch c {
		case 0:
			b = append(b, e.escape, '0')
		case '\n':
			b = append(b, e.escape, 'n')
		case '\r':
			b = append(b, e.escape, 'r')
		case '\t':
			b = append(b, e.escape, 't')
		case e.escape:
			b = append(b, e.escape, e.escape)
		default:
			if (e.quote != 0 && c == e.quote) || c == fieldTerm || c == lineTerm {
				b = append(b, e.escape, c)
			} else {
				b = append(b, c)
			}
		}
	}
	return b
}

