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

package sqltypes

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVal builds a Value without validation, for expected values only.
func testVal(typ Type, val string) Value {
	return Value{typ: typ, val: []byte(val)}
}

func TestNewValue(t *testing.T) {
	testcases := []struct {
		inType Type
		inVal  string
		outVal Value
		outErr string
	}{{
		inType: Null,
		inVal:  "",
		outVal: NULL,
	}, {
		inType: Int8,
		inVal:  "1",
		outVal: testVal(Int8, "1"),
	}, {
		inType: Int64,
		inVal:  "-12345",
		outVal: testVal(Int64, "-12345"),
	}, {
		inType: Uint64,
		inVal:  "18446744073709551615",
		outVal: testVal(Uint64, "18446744073709551615"),
	}, {
		inType: Float64,
		inVal:  "1.00",
		outVal: testVal(Float64, "1.00"),
	}, {
		inType: Decimal,
		inVal:  "1.00",
		outVal: testVal(Decimal, "1.00"),
	}, {
		inType: Timestamp,
		inVal:  "2012-02-24 23:19:43",
		outVal: testVal(Timestamp, "2012-02-24 23:19:43"),
	}, {
		inType: Date,
		inVal:  "2012-02-24",
		outVal: testVal(Date, "2012-02-24"),
	}, {
		inType: Time,
		inVal:  "23:19:43",
		outVal: testVal(Time, "23:19:43"),
	}, {
		inType: VarChar,
		inVal:  "a",
		outVal: testVal(VarChar, "a"),
	}, {
		inType: VarBinary,
		inVal:  "a",
		outVal: testVal(VarBinary, "a"),
	}, {
		inType: Enum,
		inVal:  "a",
		outVal: testVal(Enum, "a"),
	}, {
		inType: Bit,
		inVal:  "1",
		outVal: testVal(Bit, "1"),
	}, {
		inType: Int64,
		inVal:  "9223372036854775808",
		outErr: "out of range",
	}, {
		inType: Uint64,
		inVal:  "-1",
		outErr: "invalid syntax",
	}, {
		inType: Float64,
		inVal:  "a",
		outErr: "invalid syntax",
	}}
	for _, tcase := range testcases {
		v, err := NewValue(tcase.inType, []byte(tcase.inVal))
		if tcase.outErr != "" {
			require.Error(t, err)
			assert.Contains(t, err.Error(), tcase.outErr)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tcase.outVal, v)
	}
}

func TestInterfaceToValue(t *testing.T) {
	testcases := []struct {
		in  any
		out Value
	}{{
		in:  nil,
		out: NULL,
	}, {
		in:  []byte("a"),
		out: testVal(VarBinary, "a"),
	}, {
		in:  "a",
		out: testVal(VarChar, "a"),
	}, {
		in:  true,
		out: testVal(Int8, "1"),
	}, {
		in:  false,
		out: testVal(Int8, "0"),
	}, {
		in:  int(-1),
		out: testVal(Int64, "-1"),
	}, {
		in:  int64(-12345),
		out: testVal(Int64, "-12345"),
	}, {
		in:  uint64(1),
		out: testVal(Uint64, "1"),
	}, {
		in:  float64(1.5),
		out: testVal(Float64, "1.5"),
	}, {
		in:  time.Date(2012, 2, 24, 0, 0, 0, 0, time.UTC),
		out: testVal(Date, "2012-02-24"),
	}, {
		in:  time.Date(2012, 2, 24, 23, 19, 43, 0, time.UTC),
		out: testVal(Datetime, "2012-02-24 23:19:43"),
	}, {
		in:  time.Date(2012, 2, 24, 23, 19, 43, 123456000, time.UTC),
		out: testVal(Datetime, "2012-02-24 23:19:43.123456"),
	}, {
		in:  uuid.MustParse("6F9619FF-8B86-D011-B42D-00C04FC964FF"),
		out: testVal(Char, "6f9619ff-8b86-d011-b42d-00c04fc964ff"),
	}}
	for _, tcase := range testcases {
		v, err := InterfaceToValue(tcase.in)
		require.NoError(t, err, "InterfaceToValue(%v)", tcase.in)
		assert.Equal(t, tcase.out, v, "InterfaceToValue(%v)", tcase.in)
	}

	_, err := InterfaceToValue(make(chan int))
	require.ErrorIs(t, err, ErrIncompatibleValue)
}

func TestNewFloat64(t *testing.T) {
	v, err := NewFloat64(123.456)
	require.NoError(t, err)
	assert.Equal(t, testVal(Float64, "123.456"), v)

	for _, f := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := NewFloat64(f)
		require.ErrorIs(t, err, ErrIncompatibleValue, "NewFloat64(%v)", f)
	}
}

func TestValueAccessors(t *testing.T) {
	v := testVal(VarChar, "a")
	assert.Equal(t, VarChar, v.Type())
	assert.Equal(t, "a", v.ToString())
	assert.Equal(t, []byte("a"), v.ToBytes())
	assert.Equal(t, 1, v.Len())
	assert.True(t, v.IsQuoted())
	assert.True(t, v.IsText())
	assert.False(t, v.IsBinary())
	assert.False(t, v.IsNull())

	assert.True(t, NULL.IsNull())
	assert.Equal(t, "", NULL.ToString())

	n := NewInt64(-1)
	assert.True(t, n.IsIntegral())
	assert.True(t, n.IsSigned())
	assert.False(t, n.IsUnsigned())

	u := NewUint64(1)
	assert.True(t, u.IsUnsigned())

	b := NewVarBinary([]byte{0x00, 0xff})
	assert.True(t, b.IsBinary())
	assert.False(t, b.IsText())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NULL", NULL.String())
	assert.Equal(t, `VARCHAR("a")`, testVal(VarChar, "a").String())
	assert.Equal(t, "INT64(-1)", NewInt64(-1).String())
	assert.Equal(t, `[INT64(1) VARCHAR("a")]`, RowString([]Value{NewInt64(1), NewVarChar("a")}))
}
