package datetime

// Parsers for the canonical textual forms. They accept the shapes the
// encoders emit and also numeric fields without zero padding (such as
// "2012-2-4"): no leading or trailing garbage, '-' or ':' separators,
// an optional fractional part of at most 9 digits.

// getnum reads digits from s until a non-digit or maxDigits digits.
func getnum(s string, maxDigits int) (int, string, bool) {
	var v, n int
	for n = 0; n < len(s) && n < maxDigits; n++ {
		if s[n] < '0' || s[n] > '9' {
			break
		}
		v = v*10 + int(s[n]-'0')
	}
	if n == 0 {
		return 0, s, false
	}
	return v, s[n:], true
}

func expect(s string, c byte) (string, bool) {
	if len(s) == 0 || s[0] != c {
		return s, false
	}
	return s[1:], true
}

// parseNsec reads a fractional part of up to 9 digits and scales it to
// nanoseconds.
func parseNsec(s string) (int, string, bool) {
	var v, n int
	for n = 0; n < len(s) && n < 9; n++ {
		if s[n] < '0' || s[n] > '9' {
			break
		}
		v = v*10 + int(s[n]-'0')
	}
	if n == 0 {
		return 0, s, false
	}
	for i := n; i < 9; i++ {
		v *= 10
	}
	return v, s[n:], true
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, bool) {
	var d Date
	year, s, ok := getnum(s, 4)
	if !ok || year > 9999 {
		return d, false
	}
	s, ok = expect(s, '-')
	if !ok {
		return d, false
	}
	month, s, ok := getnum(s, 2)
	if !ok || month < 1 || month > 12 {
		return d, false
	}
	s, ok = expect(s, '-')
	if !ok {
		return d, false
	}
	day, s, ok := getnum(s, 2)
	if !ok || day < 1 || day > 31 || len(s) != 0 {
		return d, false
	}
	d.year = uint16(year)
	d.month = uint8(month)
	d.day = uint8(day)
	return d, true
}

// ParseTime parses a [-]HH:MM:SS[.ffffff] string. The hour field may
// run to 838 per the MySQL TIME range.
func ParseTime(s string) (Time, bool) {
	var t Time
	var neg bool
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	hour, s, ok := getnum(s, 3)
	if !ok || hour > 838 {
		return t, false
	}
	s, ok = expect(s, ':')
	if !ok {
		return t, false
	}
	minute, s, ok := getnum(s, 2)
	if !ok || minute > 59 {
		return t, false
	}
	s, ok = expect(s, ':')
	if !ok {
		return t, false
	}
	second, s, ok := getnum(s, 2)
	if !ok || second > 59 {
		return t, false
	}
	var nsec int
	if len(s) > 0 {
		s, ok = expect(s, '.')
		if !ok {
			return t, false
		}
		nsec, s, ok = parseNsec(s)
		if !ok || len(s) != 0 {
			return t, false
		}
	}
	t.hour = uint16(hour)
	if neg {
		t.hour |= negMask
	}
	t.minute = uint8(minute)
	t.second = uint8(second)
	t.nanosecond = uint32(nsec)
	return t, true
}

// ParseDateTime parses a YYYY-MM-DD HH:MM:SS[.ffffff] string.
func ParseDateTime(s string) (DateTime, bool) {
	var dt DateTime
	sep := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			sep = i
			break
		}
	}
	if sep < 0 {
		return dt, false
	}
	date, ok := ParseDate(s[:sep])
	if !ok {
		return dt, false
	}
	t, ok := ParseTime(s[sep+1:])
	if !ok || t.Neg() || t.Hour() > 23 {
		return dt, false
	}
	dt.Date = date
	dt.Time = t
	return dt, true
}
