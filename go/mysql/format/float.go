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

package format

import (
	"bytes"
	"strconv"
)

const expUpperThreshold = 1e15
const expLowerThreshold = 1e-15

// FormatFloat formats a float64 as a byte string in a similar way to
// what MySQL does.
func FormatFloat(v float64) []byte {
	return AppendFloat(nil, v)
}

// AppendFloat appends the MySQL rendering of f to buf. MySQL switches
// to scientific notation outside [1e-15, 1e15) and never prints a '+'
// before the exponent, unlike Go's formatter.
func AppendFloat(buf []byte, f float64) []byte {
	format := byte('f')
	if f >= expUpperThreshold || f <= -expUpperThreshold || (f < expLowerThreshold && f > -expLowerThreshold && f != 0.0) {
		format = 'g'
	}
	fstr := strconv.AppendFloat(buf, f, format, -1, 64)
	if idx := bytes.IndexByte(fstr, 'e'); idx >= 0 {
		if fstr[idx+1] == '+' {
			fstr = append(fstr[:idx+1], fstr[idx+2:]...)
		}
	}
	return fstr
}
