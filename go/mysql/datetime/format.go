package datetime

// appendInt appends v zero-padded to at least width digits. Values
// wider than width keep all their digits.
func appendInt(b []byte, v int, width int) []byte {
	var digits [20]byte
	pos := len(digits)
	if v == 0 {
		pos--
		digits[pos] = '0'
	}
	for v > 0 {
		pos--
		digits[pos] = byte('0' + v%10)
		v /= 10
	}
	for len(digits)-pos < width {
		pos--
		digits[pos] = '0'
	}
	return append(b, digits[pos:]...)
}

// appendNsec appends the first prec digits of the fractional part nsec,
// which is interpreted as nanoseconds.
func appendNsec(b []byte, nsec int, prec int) []byte {
	var digits [9]byte
	for i := 8; i >= 0; i-- {
		digits[i] = byte('0' + nsec%10)
		nsec /= 10
	}
	if prec > 9 {
		prec = 9
	}
	return append(b, digits[:prec]...)
}
