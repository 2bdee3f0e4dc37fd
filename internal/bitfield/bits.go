// internal/bitfield/bits.go
package bitfield

import (
	"strconv"
	"strings"

	"github.com/tamzrod/printer-mirror/internal/tree"
)

// Bit-range readers for packed telemetry fields.
// Every function is total: malformed sources and out-of-range windows read as 0.

// MaxCount is the widest window a single read may return.
const MaxCount = 32

func mask(count int) uint64 {
	return (uint64(1) << uint(count)) - 1
}

func validWindow(start, count int) bool {
	return start >= 0 && start < 64 && count > 0 && count <= MaxCount
}

// Extract parses the whole of hex as a base-16 number and returns count bits
// starting at bit start. Whitespace around the digits is tolerated; nothing
// else is.
func Extract(hex string, start, count int) uint32 {
	if !validWindow(start, count) {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(hex), 16, 64)
	if err != nil {
		return 0
	}
	return uint32((v >> uint(start)) & mask(count))
}

// ExtractInt reads count bits starting at start from a native integer.
// Negative inputs are read in two's complement.
func ExtractInt(num int64, start, count int) uint32 {
	return ExtractIntBase(num, start, count, 10)
}

// ExtractIntBase is ExtractInt with digit reinterpretation.
//
// base 16 takes the decimal digits of num and reads them as hexadecimal:
// the number 1003 is treated as 0x1003. Some firmware sends hex bitfields
// as JSON numbers written with the hex digits, so this is load-bearing.
// Any other base reads num directly.
func ExtractIntBase(num int64, start, count, base int) uint32 {
	if !validWindow(start, count) {
		return 0
	}

	v := uint64(num)
	if base == 16 {
		if num < 0 {
			return 0
		}
		parsed, err := strconv.ParseUint(strconv.FormatInt(num, 10), 16, 64)
		if err != nil {
			return 0
		}
		v = parsed
	}
	return uint32((v >> uint(start)) & mask(count))
}

// ExtractNoBorder reads count bits starting at start from a hex string of any
// length, addressed from the least significant end.
//
// Surrounding whitespace and a 0x/0X prefix are removed and non-hex characters
// are dropped. Only the nibbles that cover the window are parsed, so strings
// wider than 64 bits are fine. A window reaching past the last digit reads 0.
func ExtractNoBorder(hex string, start, count int) uint32 {
	if start < 0 || count <= 0 || count > MaxCount {
		return 0
	}

	digits := cleanHex(hex)
	if digits == "" {
		return 0
	}

	total := len(digits) * 4
	if start >= total || count > total-start {
		return 0
	}

	lo := start / 4
	hi := (start + count - 1) / 4

	// nibble i (from the right) lives at digits[len-1-i]
	sub := digits[len(digits)-1-hi : len(digits)-lo]
	v, err := strconv.ParseUint(sub, 16, 64)
	if err != nil {
		return 0
	}
	return uint32((v >> uint(start%4)) & mask(count))
}

func cleanHex(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Bits reads a window from a document value that may arrive either as a hex
// string or as a JSON integer. Other kinds read as 0.
func Bits(v tree.Value, start, count int) uint32 {
	if s, ok := v.Str(); ok {
		return ExtractNoBorder(s, start, count)
	}
	if n, ok := v.IntValue(); ok {
		return ExtractInt(n, start, count)
	}
	return 0
}

// Flag reads a single bit as a bool.
func Flag(v tree.Value, bit int) bool {
	return Bits(v, bit, 1) != 0
}
