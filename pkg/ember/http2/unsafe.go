package http2

import "unsafe"

// bytesToString views b as a string without copying. The caller must not
// hold onto the result past the point where b's decoder copies it into a
// HeaderField, since the decoder reuses its string scratch buffer.
//
//go:inline
func bytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// stringToBytes views s as a byte slice without copying. The result must
// never be written to.
//
//go:inline
func stringToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
