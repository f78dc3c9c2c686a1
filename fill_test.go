package amqpdata

import (
	"strings"
	"testing"
)

func TestFillDescribedList(t *testing.T) {
	d := New(0)
	ensure(d.Fill("DL[SSI]", uint64(0x70), "hello", "world", 42))

	got := encodedHex(d)
	expected := "005370" + "c01103" + "a10568656c6c6f" + "a105776f726c64" + "522a"
	if got != expected {
		t.Errorf("** encoded %s, wanted %s", got, expected)
	}
	if !strings.HasPrefix(got, "005370c0") {
		t.Errorf("** missing descriptor framing prefix")
	}

	if back := decodedTree(got); !d.Equal(back) {
		t.Errorf("** did not round-trip")
	}
}

func TestFillTypedArray(t *testing.T) {
	d := New(0)
	ensure(d.Fill("@T[III]", TypeUInt, uint32(1), uint32(2), uint32(3)))

	got := encodedHex(d)
	if got != "e00e0370000000010000000200000003" {
		t.Errorf("** encoded %s", got)
	}

	back := decodedTree(got)
	back.Rewind()
	back.Next()
	if back.GetArrayType() != TypeUInt || back.GetArray() != 3 {
		t.Errorf("** decoded array: type=%v count=%d", back.GetArrayType(), back.GetArray())
	}
}

func TestFillDescribedArray(t *testing.T) {
	d := New(0)
	ensure(d.Fill("@DT[LII]", TypeUInt, uint64(5), uint32(1), uint32(2)))

	d.Rewind()
	d.Next()
	if !d.IsArrayDescribed() || d.GetArrayType() != TypeUInt || d.GetArray() != 2 {
		t.Errorf("** described=%v type=%v count=%d", d.IsArrayDescribed(), d.GetArrayType(), d.GetArray())
	}
	d.Enter()
	d.Next()
	if d.Type() != TypeULong || d.GetULong() != 5 {
		t.Errorf("** descriptor is %v %d", d.Type(), d.GetULong())
	}
}

func TestFillMap(t *testing.T) {
	d := New(0)
	ensure(d.Fill("{SISI}", "a", uint32(1), "b", uint32(2)))

	d.Rewind()
	d.Next()
	if d.Type() != TypeMap || d.GetMap() != 4 {
		t.Fatalf("** map children = %d", d.GetMap())
	}
}

func TestFillConditional(t *testing.T) {
	// A false before ? emits a null in place of the conditional value and
	// discards whatever the skipped codes build.
	d := New(0)
	ensure(d.Fill("[?DL[S]I]", false, uint64(9), "skipped", uint32(7)))

	expected := New(0)
	expected.PutList()
	expected.Enter()
	expected.PutNull()
	expected.PutUInt(7)
	expected.Exit()
	if !d.Equal(expected) {
		t.Errorf("** filled:\n%s\nwanted:\n%s", d.Dump(), expected.Dump())
	}

	d2 := New(0)
	ensure(d2.Fill("[?DL[S]I]", true, uint64(9), "kept", uint32(7)))
	d2.Rewind()
	d2.Next()
	d2.Enter()
	d2.Next()
	if d2.Type() != TypeDescribed {
		t.Errorf("** true branch produced %v", d2.Type())
	}
}

func TestFillAutoExitDescribed(t *testing.T) {
	// D closes itself after two children, so values keep landing at the
	// outer level without explicit brackets.
	d := New(0)
	ensure(d.Fill("DLSI", uint64(1), "x", uint32(2)))

	expected := New(0)
	expected.PutDescribed()
	expected.Enter()
	expected.PutULong(1)
	expected.PutString("x")
	expected.Exit()
	expected.PutUInt(2)
	if !d.Equal(expected) {
		t.Errorf("** filled:\n%s\nwanted:\n%s", d.Dump(), expected.Dump())
	}
}

func TestFillSymbolRepeat(t *testing.T) {
	d := New(0)
	ensure(d.Fill("@T[*s]", TypeSymbol, 2, []string{"amqp", "mqtt"}))

	d.Rewind()
	d.Next()
	if d.GetArray() != 2 || d.GetArrayType() != TypeSymbol {
		t.Fatalf("** array: count=%d type=%v", d.GetArray(), d.GetArrayType())
	}
	d.Enter()
	d.Next()
	if d.GetSymbol() != "amqp" {
		t.Errorf("** first symbol %q", d.GetSymbol())
	}
	d.Next()
	if d.GetSymbol() != "mqtt" {
		t.Errorf("** second symbol %q", d.GetSymbol())
	}
}

func TestFillNilBinary(t *testing.T) {
	d := New(0)
	ensure(d.Fill("z", nil))
	d.Rewind()
	d.Next()
	if d.Type() != TypeNull {
		t.Errorf("** nil binary filled as %v", d.Type())
	}
}

func TestFillSubtreeCopy(t *testing.T) {
	src := New(0)
	src.PutList()
	src.Enter()
	src.PutString("inner")
	src.Exit()

	d := New(0)
	ensure(d.Fill("[IC]", uint32(1), src))

	expected := New(0)
	expected.PutList()
	expected.Enter()
	expected.PutUInt(1)
	expected.PutList()
	expected.Enter()
	expected.PutString("inner")
	expected.Exit()
	expected.Exit()
	if !d.Equal(expected) {
		t.Errorf("** filled:\n%s\nwanted:\n%s", d.Dump(), expected.Dump())
	}

	// An empty source degrades to null.
	d2 := New(0)
	ensure(d2.Fill("C", New(0)))
	d2.Rewind()
	d2.Next()
	if d2.Type() != TypeNull {
		t.Errorf("** empty source filled as %v", d2.Type())
	}
}

func TestFillErrors(t *testing.T) {
	tests := []struct {
		fmt  string
		args []any
	}{
		{"Q", nil},
		{"I", nil},
		{"I", []any{"nope"}},
		{"I", []any{-1}},
		{"B", []any{256}},
		{"T", []any{TypeUInt}},
		{"]", nil},
	}
	for _, tt := range tests {
		d := New(0)
		if err := d.Fill(tt.fmt, tt.args...); err == nil {
			t.Errorf("** Fill(%q, %v) succeeded", tt.fmt, tt.args)
		} else if d.LastError() == nil {
			t.Errorf("** Fill(%q): last error not recorded", tt.fmt)
		}
	}
}
