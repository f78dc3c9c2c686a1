package amqpdata

import (
	"encoding/hex"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func encodedHex(d *Data) string {
	return hex.EncodeToString(must(d.Encoded()))
}

func decodedTree(s string) *Data {
	d := New(0)
	ensure(d.DecodeAll(must(hex.DecodeString(s))))
	return d
}

func TestEncodePrimitives(t *testing.T) {
	tests := []struct {
		name     string
		build    func(d *Data)
		expected string
	}{
		{"null", func(d *Data) { d.PutNull() }, "40"},
		{"true", func(d *Data) { d.PutBool(true) }, "41"},
		{"false", func(d *Data) { d.PutBool(false) }, "42"},
		{"ubyte 0", func(d *Data) { d.PutUByte(0) }, "5000"},
		{"ubyte 255", func(d *Data) { d.PutUByte(255) }, "50ff"},
		{"byte -128", func(d *Data) { d.PutByte(-128) }, "5180"},
		{"byte -1", func(d *Data) { d.PutByte(-1) }, "51ff"},
		{"byte 127", func(d *Data) { d.PutByte(127) }, "517f"},
		{"ushort 0", func(d *Data) { d.PutUShort(0) }, "600000"},
		{"ushort max", func(d *Data) { d.PutUShort(65535) }, "60ffff"},
		{"short min", func(d *Data) { d.PutShort(-32768) }, "618000"},
		{"short -1", func(d *Data) { d.PutShort(-1) }, "61ffff"},
		{"short max", func(d *Data) { d.PutShort(32767) }, "617fff"},
		{"uint 0", func(d *Data) { d.PutUInt(0) }, "43"},
		{"uint 1", func(d *Data) { d.PutUInt(1) }, "5201"},
		{"uint 255", func(d *Data) { d.PutUInt(255) }, "52ff"},
		{"uint 256", func(d *Data) { d.PutUInt(256) }, "7000000100"},
		{"uint max", func(d *Data) { d.PutUInt(4294967295) }, "70ffffffff"},
		{"int 0", func(d *Data) { d.PutInt(0) }, "5400"},
		{"int -1", func(d *Data) { d.PutInt(-1) }, "54ff"},
		{"int 127", func(d *Data) { d.PutInt(127) }, "547f"},
		{"int -128", func(d *Data) { d.PutInt(-128) }, "5480"},
		{"int 128", func(d *Data) { d.PutInt(128) }, "7100000080"},
		{"int -129", func(d *Data) { d.PutInt(-129) }, "71ffffff7f"},
		{"int min", func(d *Data) { d.PutInt(math.MinInt32) }, "7180000000"},
		{"char A", func(d *Data) { d.PutChar('A') }, "7300000041"},
		{"ulong 0", func(d *Data) { d.PutULong(0) }, "44"},
		{"ulong 255", func(d *Data) { d.PutULong(255) }, "53ff"},
		{"ulong 256", func(d *Data) { d.PutULong(256) }, "800000000000000100"},
		{"ulong max", func(d *Data) { d.PutULong(math.MaxUint64) }, "80ffffffffffffffff"},
		{"long 0", func(d *Data) { d.PutLong(0) }, "5500"},
		{"long -1", func(d *Data) { d.PutLong(-1) }, "55ff"},
		{"long 128", func(d *Data) { d.PutLong(128) }, "810000000000000080"},
		{"long -129", func(d *Data) { d.PutLong(-129) }, "81ffffffffffffff7f"},
		{"long min", func(d *Data) { d.PutLong(math.MinInt64) }, "818000000000000000"},
		{"timestamp 0", func(d *Data) { d.PutTimestamp(0) }, "830000000000000000"},
		{"timestamp", func(d *Data) { d.PutTimestamp(1700000000000) }, "830000018bcfe56800"},
		{"float 1.5", func(d *Data) { d.PutFloat(1.5) }, "723fc00000"},
		{"float subnormal", func(d *Data) { d.PutFloat(math.Float32frombits(1)) }, "7200000001"},
		{"double 1.5", func(d *Data) { d.PutDouble(1.5) }, "823ff8000000000000"},
		{"double nan", func(d *Data) { d.PutDouble(math.Float64frombits(0x7FF8000000000001)) }, "827ff8000000000001"},
		{"decimal32", func(d *Data) { d.PutDecimal32(0x01020304) }, "7401020304"},
		{"decimal64", func(d *Data) { d.PutDecimal64(0x0102030405060708) }, "840102030405060708"},
		{"decimal128", func(d *Data) { d.PutDecimal128([16]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}) }, "94000102030405060708090a0b0c0d0e0f"},
		{"uuid", func(d *Data) {
			d.PutUUID(uuid.UUID{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})
		}, "98000102030405060708090a0b0c0d0e0f"},
		{"binary empty", func(d *Data) { d.PutBinary([]byte{}) }, "a000"},
		{"binary ab", func(d *Data) { d.PutBinary([]byte("ab")) }, "a0026162"},
		{"string empty", func(d *Data) { d.PutString("") }, "a100"},
		{"string hello", func(d *Data) { d.PutString("hello") }, "a10568656c6c6f"},
		{"symbol", func(d *Data) { d.PutSymbol("amqp") }, "a304616d7170"},
		{"empty list", func(d *Data) { d.PutList() }, "45"},
		{"empty map", func(d *Data) { d.PutMap() }, "c10100"},
	}
	for _, tt := range tests {
		d := New(0)
		tt.build(d)
		got := encodedHex(d)
		if got != tt.expected {
			t.Errorf("** %s: encoded %s, wanted %s", tt.name, got, tt.expected)
			continue
		}
		back := decodedTree(tt.expected)
		if !d.Equal(back) {
			t.Errorf("** %s: decode(encode) differs:\n%s\nvs\n%s", tt.name, d.Dump(), back.Dump())
		}
	}
}

func TestRoundTripBinaryBoundaries(t *testing.T) {
	for _, n := range []int{0, 1, 254, 255, 256, 1000} {
		payload := make([]byte, n)
		for i := range payload {
			payload[i] = byte(i)
		}
		d := New(0)
		d.PutBinary(payload)
		encoded := must(d.Encoded())

		var expected []byte
		if n < 256 {
			expected = append([]byte{0xA0, byte(n)}, payload...)
		} else {
			expected = append([]byte{0xB0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}, payload...)
		}
		if hex.EncodeToString(encoded) != hex.EncodeToString(expected) {
			t.Errorf("** binary[%d]: wrong encoding", n)
			continue
		}

		back := New(0)
		ensure(back.DecodeAll(encoded))
		if !d.Equal(back) {
			t.Errorf("** binary[%d]: decode(encode) differs", n)
		}
	}
}

func TestDecodeAcceptsAllWidths(t *testing.T) {
	tests := []struct {
		input string
		build func(d *Data)
	}{
		{"5600", func(d *Data) { d.PutBool(false) }},
		{"5601", func(d *Data) { d.PutBool(true) }},
		{"56ff", func(d *Data) { d.PutBool(true) }},
		{"43", func(d *Data) { d.PutUInt(0) }},
		{"7000000000", func(d *Data) { d.PutUInt(0) }},
		{"520a", func(d *Data) { d.PutUInt(10) }},
		{"700000000a", func(d *Data) { d.PutUInt(10) }},
		{"44", func(d *Data) { d.PutULong(0) }},
		{"800000000000000000", func(d *Data) { d.PutULong(0) }},
		{"54ff", func(d *Data) { d.PutInt(-1) }},
		{"71ffffffff", func(d *Data) { d.PutInt(-1) }},
		{"55ff", func(d *Data) { d.PutLong(-1) }},
		{"81ffffffffffffffff", func(d *Data) { d.PutLong(-1) }},
		{"45", func(d *Data) { d.PutList() }},
		{"c00100", func(d *Data) { d.PutList() }},
		{"d00000000400000000", func(d *Data) { d.PutList() }},
		{"c10100", func(d *Data) { d.PutMap() }},
		{"d10000000400000000", func(d *Data) { d.PutMap() }},
		{"b000000000", func(d *Data) { d.PutBinary([]byte{}) }},
		{"b10000000568656c6c6f", func(d *Data) { d.PutString("hello") }},
		{"b300000004616d7170", func(d *Data) { d.PutSymbol("amqp") }},
		{"c003015201", func(d *Data) { d.PutList(); d.Enter(); d.PutUInt(1); d.Exit() }},
		{"d0000000090000000170000000 01", func(d *Data) { d.PutList(); d.Enter(); d.PutUInt(1); d.Exit() }},
	}
	for _, tt := range tests {
		input := strings.ReplaceAll(tt.input, " ", "")
		got := decodedTree(input)
		expected := New(0)
		tt.build(expected)
		if !got.Equal(expected) {
			t.Errorf("** decode(%s) differs:\n%s\nvs\n%s", input, got.Dump(), expected.Dump())
		}
	}
}

func TestCompositeSizeBoundary(t *testing.T) {
	// Short composites carry (size:u8, count:u8) and the size byte covers
	// the count byte plus the contents, so with one-byte elements the form
	// flips between 254 and 255 children.
	build := func(n int) *Data {
		d := New(0)
		d.PutList()
		d.Enter()
		for i := 0; i < n; i++ {
			d.PutBool(false)
		}
		d.Exit()
		return d
	}

	short := must(build(254).Encoded())
	if short[0] != codeList8 || short[1] != 255 || short[2] != 254 {
		t.Errorf("** 254 bools: got % x...", short[:3])
	}
	long := must(build(255).Encoded())
	if long[0] != codeList32 {
		t.Errorf("** 255 bools: got code %02x, wanted d0", long[0])
	}

	for _, n := range []int{254, 255, 256} {
		d := build(n)
		back := New(0)
		ensure(back.DecodeAll(must(d.Encoded())))
		if !d.Equal(back) {
			t.Errorf("** %d bools: decode(encode) differs", n)
		}
		if back.Rewind(); !back.Next() || back.GetList() != n {
			t.Errorf("** %d bools: decoded %d children", n, back.GetList())
		}
	}
}

func TestRoundTripNesting(t *testing.T) {
	d := New(0)
	for depth := 1; depth <= 8; depth++ {
		for i := 0; i < depth; i++ {
			d.PutList()
			d.Enter()
		}
		d.PutMap()
		d.Enter()
		d.PutString("k")
		d.PutUInt(uint32(depth))
		d.Exit()
		for i := 0; i < depth; i++ {
			d.Exit()
		}
	}

	back := New(0)
	ensure(back.DecodeAll(must(d.Encoded())))
	if !d.Equal(back) {
		t.Errorf("** nesting to depth 8 did not round-trip:\n%s\nvs\n%s", d.Dump(), back.Dump())
	}
}

func TestRoundTripDescribed(t *testing.T) {
	d := New(0)
	d.PutDescribed()
	d.Enter()
	d.PutULong(16)
	d.PutList()
	d.Enter()
	d.PutString("a")
	d.PutString("b")
	d.Exit()
	d.Exit()

	got := encodedHex(d)
	expected := "005310c007 02 a10161 a10162"
	if got != strings.ReplaceAll(expected, " ", "") {
		t.Errorf("** encoded %s, wanted %s", got, expected)
	}
	if back := decodedTree(got); !d.Equal(back) {
		t.Errorf("** described value did not round-trip")
	}
}

func TestRoundTripRecursiveDescriptor(t *testing.T) {
	// The descriptor of a described value is itself described.
	d := New(0)
	ensure(d.Fill("DDLSS", uint64(1), "inner", "outer"))

	encoded := must(d.Encoded())
	if encoded[0] != 0x00 || encoded[1] != 0x00 {
		t.Errorf("** expected nested descriptor prefixes, got % x", encoded[:2])
	}
	back := New(0)
	ensure(back.DecodeAll(encoded))
	if !d.Equal(back) {
		t.Errorf("** recursive descriptor did not round-trip:\n%s\nvs\n%s", d.Dump(), back.Dump())
	}
}

func TestRoundTripArray(t *testing.T) {
	d := New(0)
	d.PutArray(false, TypeUInt)
	d.Enter()
	d.PutUInt(1)
	d.PutUInt(2)
	d.PutUInt(3)
	d.Exit()

	got := encodedHex(d)
	if got != "e00e0370000000010000000200000003" {
		t.Errorf("** encoded %s", got)
	}

	back := decodedTree(got)
	if !d.Equal(back) {
		t.Errorf("** array did not round-trip")
	}
	back.Rewind()
	back.Next()
	if back.GetArrayType() != TypeUInt || back.GetArray() != 3 || back.IsArrayDescribed() {
		t.Errorf("** decoded array: type=%v count=%d described=%v",
			back.GetArrayType(), back.GetArray(), back.IsArrayDescribed())
	}
}

func TestRoundTripEmptyArray(t *testing.T) {
	d := New(0)
	d.PutArray(false, TypeUInt)
	got := encodedHex(d)
	if got != "e0020070" {
		t.Errorf("** encoded %s, wanted e0020070", got)
	}
	if back := decodedTree(got); !d.Equal(back) {
		t.Errorf("** empty array did not round-trip")
	}
}

func TestRoundTripDescribedArrayDescriptorOnly(t *testing.T) {
	// A described array holding only its descriptor still emits the
	// element typecode after the descriptor.
	d := New(0)
	d.PutArray(true, TypeUInt)
	d.Enter()
	d.PutUInt(7)
	d.Exit()

	got := encodedHex(d)
	if got != "e00800007000000007"+"70" {
		t.Errorf("** encoded %s", got)
	}

	back := decodedTree(got)
	if !d.Equal(back) {
		t.Errorf("** did not round-trip:\n%s\nvs\n%s", d.Dump(), back.Dump())
	}
	back.Rewind()
	back.Next()
	if !back.IsArrayDescribed() || back.GetArrayType() != TypeUInt || back.GetArray() != 0 {
		t.Errorf("** decoded: described=%v type=%v count=%d",
			back.IsArrayDescribed(), back.GetArrayType(), back.GetArray())
	}
}

func TestRoundTripDescribedArrayWithElements(t *testing.T) {
	d := New(0)
	d.PutArray(true, TypeUInt)
	d.Enter()
	d.PutUInt(7) // descriptor
	d.PutUInt(1)
	d.PutUInt(2)
	d.Exit()

	encoded := must(d.Encoded())
	back := New(0)
	ensure(back.DecodeAll(encoded))
	if !d.Equal(back) {
		t.Errorf("** described array did not round-trip:\n%s\nvs\n%s", d.Dump(), back.Dump())
	}
}

func TestRoundTripArrayOfLists(t *testing.T) {
	d := New(0)
	d.PutArray(false, TypeList)
	d.Enter()
	for i := 0; i < 2; i++ {
		d.PutList()
		d.Enter()
		d.PutUInt(uint32(i))
		d.Exit()
	}
	d.Exit()

	encoded := must(d.Encoded())
	back := New(0)
	ensure(back.DecodeAll(encoded))
	if !d.Equal(back) {
		t.Errorf("** array of lists did not round-trip:\n%s\nvs\n%s", d.Dump(), back.Dump())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		input string
		code  ErrorCode
	}{
		{"", ErrUnderflow},
		{"70", ErrUnderflow},
		{"7000", ErrUnderflow},
		{"a105686f", ErrUnderflow},
		{"c002", ErrUnderflow},
		{"3f", ErrArg},
		{"ff", ErrArg},
		{"e002003f", ErrArg},
	}
	for _, tt := range tests {
		d := New(0)
		_, err := d.Decode(must(hex.DecodeString(tt.input)))
		if errCode(err) != tt.code {
			t.Errorf("** decode(%s): got %v, wanted %v", tt.input, err, tt.code)
		}
		if d.LastError() == nil {
			t.Errorf("** decode(%s): last error not recorded", tt.input)
		}
	}
}

func TestDecodePrefixSurvivesError(t *testing.T) {
	d := New(0)
	err := d.DecodeAll(must(hex.DecodeString("41" + "5205" + "ff")))
	if errCode(err) != ErrArg {
		t.Errorf("** got %v", err)
	}
	expected := New(0)
	expected.PutBool(true)
	expected.PutUInt(5)
	if !d.Equal(expected) {
		t.Errorf("** decoded prefix differs:\n%s", d.Dump())
	}
}

func TestEncodeOverflow(t *testing.T) {
	d := New(0)
	d.PutString("hello world")
	buf := make([]byte, 4)
	if _, err := d.Encode(buf); errCode(err) != ErrOverflow {
		t.Errorf("** got %v", err)
	}

	// A failed encode leaves the tree usable.
	if got := encodedHex(d); got != "a10b68656c6c6f20776f726c64" {
		t.Errorf("** re-encode got %s", got)
	}
}

func TestDecodeConsumedBytes(t *testing.T) {
	input := must(hex.DecodeString("41" + "42"))
	d := New(0)
	n := must(d.Decode(input))
	if n != 1 {
		t.Errorf("** consumed %d bytes, wanted 1", n)
	}
	n = must(d.Decode(input[n:]))
	if n != 1 {
		t.Errorf("** consumed %d bytes, wanted 1", n)
	}
	if d.Size() != 2 {
		t.Errorf("** size = %d", d.Size())
	}
}
