package bsondoc

import (
	"math"
	"testing"

	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

func TestScalarRoundTrip(t *testing.T) {
	w := NewWriter()
	w.AppendDouble("d", 21.5)
	w.AppendString("s", "hello")
	w.AppendBinary("b", []byte{1, 2, 3})
	w.AppendBoolean("t", true)
	w.AppendBoolean("f", false)
	w.AppendDateTime("dt", 1700000000000)
	w.AppendInt32("i32", -42)
	w.AppendInt64("i64", 1<<40)
	doc := w.End()

	if d, err := ReadDouble(doc, "d"); err != nil || d != 21.5 {
		t.Fatalf("ReadDouble = %v, %v", d, err)
	}
	if s, err := ReadString(doc, "s"); err != nil || s != "hello" {
		t.Fatalf("ReadString = %q, %v", s, err)
	}
	if b, err := ReadBinary(doc, "b"); err != nil || len(b) != 3 || b[0] != 1 {
		t.Fatalf("ReadBinary = %v, %v", b, err)
	}
	if v, err := ReadBoolean(doc, "t"); err != nil || !v {
		t.Fatalf("ReadBoolean(t) = %v, %v", v, err)
	}
	if v, err := ReadBoolean(doc, "f"); err != nil || v {
		t.Fatalf("ReadBoolean(f) = %v, %v", v, err)
	}
	if dt, err := ReadDateTime(doc, "dt"); err != nil || dt != 1700000000000 {
		t.Fatalf("ReadDateTime = %v, %v", dt, err)
	}
	if i, err := ReadInt32(doc, "i32"); err != nil || i != -42 {
		t.Fatalf("ReadInt32 = %v, %v", i, err)
	}
	if i, err := ReadInt64(doc, "i64"); err != nil || i != 1<<40 {
		t.Fatalf("ReadInt64 = %v, %v", i, err)
	}
}

func TestInt32WidensToInt64(t *testing.T) {
	w := NewWriter()
	w.AppendInt32("v", 7)
	doc := w.End()

	got, err := ReadInt64(doc, "v")
	if err != nil || got != 7 {
		t.Fatalf("ReadInt64 widening = %v, %v", got, err)
	}
}

func TestInt64DoesNotNarrowToInt32(t *testing.T) {
	w := NewWriter()
	w.AppendInt64("v", 7)
	doc := w.End()

	if _, err := ReadInt32(doc, "v"); errcode.Of(err) != errcode.CodecTypeMismatch {
		t.Fatalf("ReadInt32 on Int64 element: got err %v, want CodecTypeMismatch", err)
	}
}

func TestTypeMismatch(t *testing.T) {
	w := NewWriter()
	w.AppendString("v", "not a number")
	doc := w.End()

	if _, err := ReadInt32(doc, "v"); errcode.Of(err) != errcode.CodecTypeMismatch {
		t.Fatalf("expected CodecTypeMismatch, got %v", err)
	}
}

func TestEmptyArrayRoundTrip(t *testing.T) {
	sub := NewWriter()
	doc := func() []byte {
		w := NewWriter()
		w.AppendArray("v", sub.End())
		return w.End()
	}()

	got, err := ReadDoubleArray(doc, "v")
	if err != nil {
		t.Fatalf("ReadDoubleArray: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected zero-length array, got %v", got)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	sub := NewWriter()
	sub.AppendString(IndexKey(0), "a")
	sub.AppendString(IndexKey(1), "b")
	sub.AppendString(IndexKey(2), "c")

	w := NewWriter()
	w.AppendArray("v", sub.End())
	doc := w.End()

	got, err := ReadStringArray(doc, "v")
	if err != nil {
		t.Fatalf("ReadStringArray: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInt64ArrayPerElementWidening(t *testing.T) {
	sub := NewWriter()
	sub.AppendInt32(IndexKey(0), 1)
	sub.AppendInt64(IndexKey(1), 1<<40)

	w := NewWriter()
	w.AppendArray("v", sub.End())
	doc := w.End()

	got, err := ReadInt64Array(doc, "v")
	if err != nil {
		t.Fatalf("ReadInt64Array: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 1<<40 {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestMalformedDocumentLength(t *testing.T) {
	doc := []byte{5, 0, 0, 0, 0, 0xff}
	if _, err := ReadDouble(doc, "x"); errcode.Of(err) != errcode.CodecMalformed {
		t.Fatalf("expected CodecMalformed, got %v", err)
	}
}

func TestTruncatedPayload(t *testing.T) {
	w := NewWriter()
	w.AppendDouble("d", 1.0)
	doc := w.End()
	truncated := doc[:len(doc)-3]

	if _, err := ReadDouble(truncated, "d"); errcode.Of(err) != errcode.CodecMalformed {
		t.Fatalf("expected CodecMalformed on truncated doc, got %v", err)
	}
}

func TestNaNIsNotEqualToItself(t *testing.T) {
	w := NewWriter()
	w.AppendDouble("v", math.NaN())
	doc := w.End()

	got, err := ReadDouble(doc, "v")
	if err != nil {
		t.Fatalf("ReadDouble: %v", err)
	}
	if got == got {
		t.Fatal("expected NaN to compare unequal to itself under IEEE 754 semantics")
	}
}
