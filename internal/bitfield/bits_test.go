// internal/bitfield/bits_test.go
package bitfield

import (
	"testing"

	"github.com/tamzrod/printer-mirror/internal/tree"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		hex          string
		start, count int
		want         uint32
	}{
		{"0F", 0, 4, 15},
		{"0F", 4, 4, 0},
		{"FF00", 8, 8, 255},
		{"zz", 0, 4, 0},
		{"", 0, 4, 0},
		{"0x0F", 0, 4, 0}, // prefix is not part of the whole-string form
		{" 0F ", 0, 4, 15},
		{"FFFFFFFFFFFFFFFF", 60, 4, 15},
		{"FFFFFFFFFFFFFFFFF", 0, 4, 0}, // overflows 64 bits
		{"0F", 0, 0, 0},
		{"0F", -1, 4, 0},
		{"0F", 0, 33, 0},
	}
	for _, tc := range cases {
		if got := Extract(tc.hex, tc.start, tc.count); got != tc.want {
			t.Fatalf("Extract(%q,%d,%d): got=%d want=%d", tc.hex, tc.start, tc.count, got, tc.want)
		}
	}
}

func TestExtractIntBase(t *testing.T) {
	// plain numeric read
	if got := ExtractInt(0b1011_0000, 4, 4); got != 0b1011 {
		t.Fatalf("ExtractInt: got=%b", got)
	}
	// 1003 read as 0x1003: low nibble 3, bits 12-15 = 1
	if got := ExtractIntBase(1003, 0, 4, 16); got != 3 {
		t.Fatalf("base16 low nibble: got=%d want=3", got)
	}
	if got := ExtractIntBase(1003, 12, 4, 16); got != 1 {
		t.Fatalf("base16 high nibble: got=%d want=1", got)
	}
	// same number without reinterpretation: 1003 = 0x3EB
	if got := ExtractIntBase(1003, 0, 4, 10); got != 0xB {
		t.Fatalf("base10 low nibble: got=%d want=11", got)
	}
	if got := ExtractIntBase(-5, 0, 4, 16); got != 0 {
		t.Fatalf("negative digit reinterpretation must read 0, got=%d", got)
	}
	if got := ExtractInt(-1, 0, 8); got != 0xFF {
		t.Fatalf("two's complement read: got=%d", got)
	}
}

func TestExtractNoBorder(t *testing.T) {
	long := "0x1" + "00000000" + "0000000F" // 68 bits: bit 64 set, low nibble F

	cases := []struct {
		name         string
		hex          string
		start, count int
		want         uint32
	}{
		{"prefix", "0x1F", 0, 5, 31},
		{"upper prefix", "0X1F", 0, 5, 31},
		{"whitespace", "  1F\t", 0, 5, 31},
		{"junk dropped", "1-F", 0, 5, 31},
		{"straddles nibbles", "0x0FF0", 2, 8, 0xFC},
		{"beyond 64 bits", long, 64, 1, 1},
		{"low bits of long", long, 0, 4, 15},
		{"straddles 32-bit border", "0x00000003" + "C0000000", 30, 4, 0xF},
		{"window past end", "0F", 4, 8, 0},
		{"start past end", "0F", 8, 1, 0},
		{"empty", "", 0, 1, 0},
		{"only prefix", "0x", 0, 1, 0},
		{"no hex at all", "zz", 0, 1, 0},
		{"zero count", "FF", 0, 0, 0},
		{"negative start", "FF", -1, 2, 0},
	}
	for _, tc := range cases {
		if got := ExtractNoBorder(tc.hex, tc.start, tc.count); got != tc.want {
			t.Fatalf("%s: ExtractNoBorder(%q,%d,%d) got=%d want=%d", tc.name, tc.hex, tc.start, tc.count, got, tc.want)
		}
	}
}

func TestBitsFromDocumentValue(t *testing.T) {
	if got := Bits(tree.String("0x30"), 4, 2); got != 3 {
		t.Fatalf("string source: got=%d", got)
	}
	if got := Bits(tree.Int(0x30), 4, 2); got != 3 {
		t.Fatalf("number source: got=%d", got)
	}
	if got := Bits(tree.Bool(true), 0, 1); got != 0 {
		t.Fatalf("bool source must read 0, got=%d", got)
	}
	if !Flag(tree.Int(1<<7), 7) {
		t.Fatalf("Flag bit 7 not set")
	}
}
