// Package hack gives you some efficient functionality at the cost of
// breaking some Go rules.
package hack

import "unsafe"

// String force casts a []byte to a string. The caller must guarantee
// the bytes are never modified afterwards.
// USE AT YOUR OWN RISK
func String(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringBytes returns the underlying bytes for a string. Modifying this
// byte slice will lead to undefined behavior.
func StringBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
