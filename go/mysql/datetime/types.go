// Package datetime implements the packed date and time types used in
// the textual MySQL formats, without timezone or calendar semantics.
package datetime

import "time"

const negMask = uint16(1 << 15)

// Time is a wall-clock interval. MySQL TIME values may be negative and
// the hour field ranges past 24, up to 838.
type Time struct {
	hour       uint16
	minute     uint8
	second     uint8
	nanosecond uint32
}

// Date is a calendar date without a time component.
type Date struct {
	year  uint16
	month uint8
	day   uint8
}

// DateTime is a Date with a Time of day.
type DateTime struct {
	Date Date
	Time Time
}

// AppendFormat appends the canonical HH:MM:SS[.ffffff] rendering of t,
// with prec fractional digits emitted only when the value has a
// fractional part.
func (t Time) AppendFormat(b []byte, prec uint8) []byte {
	if t.Neg() {
		b = append(b, '-')
	}

	b = appendInt(b, t.Hour(), 2)
	b = append(b, ':')
	b = appendInt(b, t.Minute(), 2)
	b = append(b, ':')
	b = appendInt(b, t.Second(), 2)
	if prec > 0 && t.Nanosecond() != 0 {
		b = append(b, '.')
		b = appendNsec(b, t.Nanosecond(), int(prec))
	}
	return b
}

// IsZero returns true for the all-zero time.
func (t Time) IsZero() bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// Hour returns the hour component, always non-negative.
func (t Time) Hour() int {
	return int(t.hour & ^negMask)
}

// Minute returns the minute component.
func (t Time) Minute() int {
	return int(t.minute)
}

// Second returns the second component.
func (t Time) Second() int {
	return int(t.second)
}

// Nanosecond returns the fractional component in nanoseconds.
func (t Time) Nanosecond() int {
	return int(t.nanosecond)
}

// Neg returns true for negative intervals.
func (t Time) Neg() bool {
	return t.hour&negMask != 0
}

// AppendFormat appends the canonical YYYY-MM-DD rendering of d.
func (d Date) AppendFormat(b []byte) []byte {
	b = appendInt(b, d.Year(), 4)
	b = append(b, '-')
	b = appendInt(b, d.Month(), 2)
	b = append(b, '-')
	b = appendInt(b, d.Day(), 2)
	return b
}

// IsZero returns true for the all-zero date.
func (d Date) IsZero() bool {
	return d.Year() == 0 && d.Month() == 0 && d.Day() == 0
}

// Year returns the year component.
func (d Date) Year() int {
	return int(d.year)
}

// Month returns the month component.
func (d Date) Month() int {
	return int(d.month)
}

// Day returns the day component.
func (d Date) Day() int {
	return int(d.day)
}

// AppendFormat appends the canonical
// YYYY-MM-DD HH:MM:SS[.ffffff] rendering of dt.
func (dt DateTime) AppendFormat(b []byte, prec uint8) []byte {
	b = dt.Date.AppendFormat(b)
	b = append(b, ' ')
	b = dt.Time.AppendFormat(b, prec)
	return b
}

// IsZero returns true when both components are zero.
func (dt DateTime) IsZero() bool {
	return dt.Date.IsZero() && dt.Time.IsZero()
}

// FromStdTime converts a time.Time into a DateTime, dropping the
// location. Sub-microsecond precision is truncated: MySQL temporal
// types carry at most 6 fractional digits.
func FromStdTime(t time.Time) DateTime {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	nsec := t.Nanosecond() / 1000 * 1000

	return DateTime{
		Date: Date{
			year:  uint16(year),
			month: uint8(month),
			day:   uint8(day),
		},
		Time: Time{
			hour:       uint16(hour),
			minute:     uint8(min),
			second:     uint8(sec),
			nanosecond: uint32(nsec),
		},
	}
}
