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

// Package sqltypes implements the tagged Value type used to carry field
// values between row sources and the wire encoders.
package sqltypes

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillmesh/mysqlbulk/go/hack"
	"github.com/quillmesh/mysqlbulk/go/mysql/datetime"
	"github.com/quillmesh/mysqlbulk/go/mysql/format"
)

var (
	// NULL represents the NULL value.
	NULL = Value{}

	// ErrIncompatibleValue is returned when a Go value has no MySQL
	// representation.
	ErrIncompatibleValue = errors.New("value is incompatible with the MySQL type system")
)

// Value carries a typed field value. The internal representation is the
// canonical MySQL textual form for the type; binary types carry raw
// bytes. Values are immutable once built: use the constructors.
type Value struct {
	typ Type
	val []byte
}

// NewValue builds a Value after validating val against typ.
func NewValue(typ Type, val []byte) (v Value, err error) {
	switch {
	case IsSigned(typ):
		if _, err := strconv.ParseInt(hack.String(val), 10, 64); err != nil {
			return NULL, err
		}
		return MakeTrusted(typ, val), nil
	case IsUnsigned(typ):
		if _, err := strconv.ParseUint(hack.String(val), 10, 64); err != nil {
			return NULL, err
		}
		return MakeTrusted(typ, val), nil
	case IsFloat(typ) || typ == Decimal:
		if _, err := strconv.ParseFloat(hack.String(val), 64); err != nil {
			return NULL, err
		}
		return MakeTrusted(typ, val), nil
	case IsQuoted(typ) || typ == Bit || typ == Null:
		return MakeTrusted(typ, val), nil
	}
	return NULL, fmt.Errorf("invalid type specified for MakeValue: %v", typ)
}

// MakeTrusted makes a new Value based on the type.
// This function should only be used if you know the value
// and type conform to the rules. Every place this function is
// called, a comment is needed that explains why it's justified.
func MakeTrusted(typ Type, val []byte) Value {
	if typ == Null {
		return NULL
	}
	return Value{typ: typ, val: val}
}

// NewInt64 builds an Int64 Value.
func NewInt64(v int64) Value {
	return MakeTrusted(Int64, strconv.AppendInt(nil, v, 10))
}

// NewUint64 builds an Uint64 Value.
func NewUint64(v uint64) Value {
	return MakeTrusted(Uint64, strconv.AppendUint(nil, v, 10))
}

// NewFloat64 builds a Float64 Value. Infinities and NaN have no MySQL
// representation and are rejected.
func NewFloat64(v float64) (Value, error) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return NULL, fmt.Errorf("%w: %v", ErrIncompatibleValue, v)
	}
	return MakeTrusted(Float64, format.FormatFloat(v)), nil
}

// NewDecimal builds a Decimal Value from its textual form.
func NewDecimal(v string) (Value, error) {
	return NewValue(Decimal, []byte(v))
}

// NewVarChar builds a VarChar Value.
func NewVarChar(v string) Value {
	return MakeTrusted(VarChar, []byte(v))
}

// NewVarBinary builds a VarBinary Value.
func NewVarBinary(v []byte) Value {
	return MakeTrusted(VarBinary, v)
}

// NewBoolean builds the MySQL rendering of a boolean, a 1 or 0 tinyint.
func NewBoolean(v bool) Value {
	if v {
		return MakeTrusted(Int8, []byte{'1'})
	}
	return MakeTrusted(Int8, []byte{'0'})
}

// NewGUID builds the canonical lowercase 8-4-4-4-12 rendering of a UUID
// as a Char value.
func NewGUID(u uuid.UUID) Value {
	return MakeTrusted(Char, []byte(u.String()))
}

// InterfaceToValue builds a Value from a native Go value.
func InterfaceToValue(goval any) (Value, error) {
	switch goval := goval.(type) {
	case nil:
		return NULL, nil
	case []byte:
		return MakeTrusted(VarBinary, goval), nil
	case string:
		return NewVarChar(goval), nil
	case bool:
		return NewBoolean(goval), nil
	case int:
		return NewInt64(int64(goval)), nil
	case int8:
		return NewInt64(int64(goval)), nil
	case int16:
		return NewInt64(int64(goval)), nil
	case int32:
		return NewInt64(int64(goval)), nil
	case int64:
		return NewInt64(goval), nil
	case uint:
		return NewUint64(uint64(goval)), nil
	case uint8:
		return NewUint64(uint64(goval)), nil
	case uint16:
		return NewUint64(uint64(goval)), nil
	case uint32:
		return NewUint64(uint64(goval)), nil
	case uint64:
		return NewUint64(goval), nil
	case float32:
		return NewFloat64(float64(goval))
	case float64:
		return NewFloat64(goval)
	case time.Time:
		return timeToValue(goval), nil
	case uuid.UUID:
		return NewGUID(goval), nil
	default:
		return NULL, fmt.Errorf("%w: %T", ErrIncompatibleValue, goval)
	}
}

// timeToValue renders a time.Time the way LOAD DATA wants it: a DATE if
// the clock reads midnight with no fractional part, a DATETIME with up
// to microsecond precision otherwise.
func timeToValue(t time.Time) Value {
	dt := datetime.FromStdTime(t)
	if dt.Time.IsZero() {
		return MakeTrusted(Date, dt.Date.AppendFormat(nil))
	}
	return MakeTrusted(Datetime, dt.AppendFormat(nil, 6))
}

// Type returns the type of Value.
func (v Value) Type() Type {
	return v.typ
}

// Raw returns the internal representation of the value. For newer types,
// this may not match MySQL's internal representation.
func (v Value) Raw() []byte {
	return v.val
}

// ToBytes returns the value it represents as a byte slice.
func (v Value) ToBytes() []byte {
	return v.val
}

// ToString returns the value as a string. Empty for NULL values.
func (v Value) ToString() string {
	if v.typ == Null {
		return ""
	}
	return hack.String(v.val)
}

// Len returns the length of the raw representation.
func (v Value) Len() int {
	return len(v.val)
}

// IsNull returns true if Value is null.
func (v Value) IsNull() bool {
	return v.typ == Null
}

// IsIntegral returns true if Value is an integral.
func (v Value) IsIntegral() bool {
	return IsIntegral(v.typ)
}

// IsSigned returns true if Value is a signed integral.
func (v Value) IsSigned() bool {
	return IsSigned(v.typ)
}

// IsUnsigned returns true if Value is an unsigned integral.
func (v Value) IsUnsigned() bool {
	return IsUnsigned(v.typ)
}

// IsFloat returns true if Value is a float.
func (v Value) IsFloat() bool {
	return IsFloat(v.typ)
}

// IsQuoted returns true if Value must be SQL-quoted.
func (v Value) IsQuoted() bool {
	return IsQuoted(v.typ)
}

// IsText returns true if Value is a character string.
func (v Value) IsText() bool {
	return IsText(v.typ)
}

// IsBinary returns true if Value is a byte string.
func (v Value) IsBinary() bool {
	return IsBinary(v.typ)
}

// String returns a printable version of the value, for debug purposes.
func (v Value) String() string {
	if v.typ == Null {
		return "NULL"
	}
	if v.IsQuoted() {
		return fmt.Sprintf("%v(%q)", v.typ, v.val)
	}
	return fmt.Sprintf("%v(%s)", v.typ, v.val)
}

// RowString prints a row of values for debug purposes.
func RowString(row []Value) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range row {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}
