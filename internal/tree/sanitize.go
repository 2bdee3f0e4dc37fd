// internal/tree/sanitize.go
package tree

import "unicode/utf8"

// SanitizeUTF8 replaces every invalid UTF-8 sequence with a single space.
// A broken multi-byte sequence (lead byte plus the continuation bytes that
// belong to it) collapses to one space, as does a run of stray continuation
// bytes. Valid input is returned unchanged without copying.
func SanitizeUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}

	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r != utf8.RuneError || size > 1 {
			out = append(out, b[i:i+size]...)
			i += size
			continue
		}

		i += invalidSpan(b[i:])
		out = append(out, ' ')
	}
	return out
}

// invalidSpan returns how many bytes at the start of b form one invalid sequence.
// b[0] is known to start an invalid sequence.
func invalidSpan(b []byte) int {
	lead := b[0]

	// stray continuation bytes: swallow the whole run
	if isContinuation(lead) {
		n := 1
		for n < len(b) && isContinuation(b[n]) {
			n++
		}
		return n
	}

	want := sequenceLen(lead)
	n := 1
	for n < want && n < len(b) && isContinuation(b[n]) {
		n++
	}
	return n
}

func isContinuation(c byte) bool { return c&0xC0 == 0x80 }

// sequenceLen is the byte length announced by a lead byte (1 for bytes that
// cannot start a multi-byte sequence).
func sequenceLen(lead byte) int {
	switch {
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}
