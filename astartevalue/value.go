// Package astartevalue implements the fourteen-shape tagged union of
// interface-mapping values: the seven scalar/array pairs an Astarte mapping
// type can carry, plus structural equality and the serialize/deserialize
// glue tying the model to the bsondoc wire codec.
//
// Grounded directly on lib/astarte_device_sdk/data.c (one constructor and
// one converter per tag) and e2e/src/utilities.c's astarte_data_equal /
// astarte_object_equal (bitset-based duplicate detection for object
// equality, ported to a Go []bool presence slice since there is no
// sys_bitarray analogue).
package astartevalue

import (
	"math"

	"github.com/lucaato/astarte-device-sdk-go/bsondoc"
	"github.com/lucaato/astarte-device-sdk-go/errcode"
)

// MT identifies one of the fourteen concrete value shapes.
type MT byte

const (
	Bool MT = iota
	DateTime
	Double
	Int32
	Int64
	String
	Binary
	BoolArray
	DateTimeArray
	DoubleArray
	Int32Array
	Int64Array
	StringArray
	BinaryArray
)

// IsArray reports whether mt is one of the six array shapes.
func (mt MT) IsArray() bool { return mt >= BoolArray }

// String names the MT, for logging and error messages.
func (mt MT) String() string {
	switch mt {
	case Bool:
		return "boolean"
	case DateTime:
		return "datetime"
	case Double:
		return "double"
	case Int32:
		return "integer"
	case Int64:
		return "longinteger"
	case String:
		return "string"
	case Binary:
		return "binaryblob"
	case BoolArray:
		return "booleanarray"
	case DateTimeArray:
		return "datetimearray"
	case DoubleArray:
		return "doublearray"
	case Int32Array:
		return "integerarray"
	case Int64Array:
		return "longintegerarray"
	case StringArray:
		return "stringarray"
	case BinaryArray:
		return "binaryblobarray"
	default:
		return "unknown"
	}
}

// Value is a closed discriminated union over MT. Only the field(s)
// matching mt are meaningful; Go's GC reclaims array/string/binary payloads
// once the last reference drops, so Release is a documented no-op kept for
// call-site parity with the original one-destructor-per-variant API.
type Value struct {
	mt MT

	b    bool
	i32  int32
	i64  int64
	f64  float64
	s    string
	bin  []byte

	boolArr []bool
	dtArr   []int64
	f64Arr  []float64
	i32Arr  []int32
	i64Arr  []int64
	strArr  []string
	binArr  [][]byte
}

// MT returns the value's tag.
func (v Value) MT() MT { return v.mt }

// Release is a no-op kept for API-shape parity with the ported SDK; Go's
// garbage collector owns Value's backing storage (see DESIGN.md).
func (v Value) Release() {}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func FromBool(b bool) Value              { return Value{mt: Bool, b: b} }
func FromDateTime(ms int64) Value        { return Value{mt: DateTime, i64: ms} }
func FromDouble(f float64) Value         { return Value{mt: Double, f64: f} }
func FromInt32(i int32) Value            { return Value{mt: Int32, i32: i} }
func FromInt64(i int64) Value            { return Value{mt: Int64, i64: i} }
func FromString(s string) Value          { return Value{mt: String, s: s} }
func FromBinary(b []byte) Value          { return Value{mt: Binary, bin: b} }
func FromBoolArray(a []bool) Value       { return Value{mt: BoolArray, boolArr: a} }
func FromDateTimeArray(a []int64) Value  { return Value{mt: DateTimeArray, dtArr: a} }
func FromDoubleArray(a []float64) Value  { return Value{mt: DoubleArray, f64Arr: a} }
func FromInt32Array(a []int32) Value     { return Value{mt: Int32Array, i32Arr: a} }
func FromInt64Array(a []int64) Value     { return Value{mt: Int64Array, i64Arr: a} }
func FromStringArray(a []string) Value   { return Value{mt: StringArray, strArr: a} }
func FromBinaryArray(a [][]byte) Value   { return Value{mt: BinaryArray, binArr: a} }

// -----------------------------------------------------------------------------
// Converters
// -----------------------------------------------------------------------------

func mismatch(op string) error { return errcode.New(errcode.InvalidParam, op) }

func (v Value) ToBool() (bool, error) {
	if v.mt != Bool {
		return false, mismatch("astartevalue.ToBool")
	}
	return v.b, nil
}

func (v Value) ToDateTime() (int64, error) {
	if v.mt != DateTime {
		return 0, mismatch("astartevalue.ToDateTime")
	}
	return v.i64, nil
}

func (v Value) ToDouble() (float64, error) {
	if v.mt != Double {
		return 0, mismatch("astartevalue.ToDouble")
	}
	return v.f64, nil
}

func (v Value) ToInt32() (int32, error) {
	if v.mt != Int32 {
		return 0, mismatch("astartevalue.ToInt32")
	}
	return v.i32, nil
}

func (v Value) ToInt64() (int64, error) {
	if v.mt != Int64 {
		return 0, mismatch("astartevalue.ToInt64")
	}
	return v.i64, nil
}

func (v Value) ToString() (string, error) {
	if v.mt != String {
		return "", mismatch("astartevalue.ToString")
	}
	return v.s, nil
}

func (v Value) ToBinary() ([]byte, error) {
	if v.mt != Binary {
		return nil, mismatch("astartevalue.ToBinary")
	}
	return v.bin, nil
}

func (v Value) ToBoolArray() ([]bool, error) {
	if v.mt != BoolArray {
		return nil, mismatch("astartevalue.ToBoolArray")
	}
	return v.boolArr, nil
}

func (v Value) ToDateTimeArray() ([]int64, error) {
	if v.mt != DateTimeArray {
		return nil, mismatch("astartevalue.ToDateTimeArray")
	}
	return v.dtArr, nil
}

func (v Value) ToDoubleArray() ([]float64, error) {
	if v.mt != DoubleArray {
		return nil, mismatch("astartevalue.ToDoubleArray")
	}
	return v.f64Arr, nil
}

func (v Value) ToInt32Array() ([]int32, error) {
	if v.mt != Int32Array {
		return nil, mismatch("astartevalue.ToInt32Array")
	}
	return v.i32Arr, nil
}

func (v Value) ToInt64Array() ([]int64, error) {
	if v.mt != Int64Array {
		return nil, mismatch("astartevalue.ToInt64Array")
	}
	return v.i64Arr, nil
}

func (v Value) ToStringArray() ([]string, error) {
	if v.mt != StringArray {
		return nil, mismatch("astartevalue.ToStringArray")
	}
	return v.strArr, nil
}

func (v Value) ToBinaryArray() ([][]byte, error) {
	if v.mt != BinaryArray {
		return nil, mismatch("astartevalue.ToBinaryArray")
	}
	return v.binArr, nil
}

// -----------------------------------------------------------------------------
// Equality
// -----------------------------------------------------------------------------

// Equal implements the structural comparison of §3: same tag, then
// element-wise compare. Double (and DoubleArray) use Go's IEEE 754 ==
// plus a sign-bit check, so +0 and -0 differ and NaN != NaN.
func Equal(a, b Value) bool {
	if a.mt != b.mt {
		return false
	}
	switch a.mt {
	case Bool:
		return a.b == b.b
	case DateTime:
		return a.i64 == b.i64
	case Double:
		return a.f64 == b.f64 && math.Signbit(a.f64) == math.Signbit(b.f64)
	case Int32:
		return a.i32 == b.i32
	case Int64:
		return a.i64 == b.i64
	case String:
		return a.s == b.s
	case Binary:
		return bytesEqual(a.bin, b.bin)
	case BoolArray:
		if len(a.boolArr) != len(b.boolArr) {
			return false
		}
		for i := range a.boolArr {
			if a.boolArr[i] != b.boolArr[i] {
				return false
			}
		}
		return true
	case DateTimeArray:
		return int64SliceEqual(a.dtArr, b.dtArr)
	case DoubleArray:
		if len(a.f64Arr) != len(b.f64Arr) {
			return false
		}
		for i := range a.f64Arr {
			if a.f64Arr[i] != b.f64Arr[i] || math.Signbit(a.f64Arr[i]) != math.Signbit(b.f64Arr[i]) {
				return false
			}
		}
		return true
	case Int32Array:
		if len(a.i32Arr) != len(b.i32Arr) {
			return false
		}
		for i := range a.i32Arr {
			if a.i32Arr[i] != b.i32Arr[i] {
				return false
			}
		}
		return true
	case Int64Array:
		return int64SliceEqual(a.i64Arr, b.i64Arr)
	case StringArray:
		if len(a.strArr) != len(b.strArr) {
			return false
		}
		for i := range a.strArr {
			if a.strArr[i] != b.strArr[i] {
				return false
			}
		}
		return true
	case BinaryArray:
		if len(a.binArr) != len(b.binArr) {
			return false
		}
		for i := range a.binArr {
			if !bytesEqual(a.binArr[i], b.binArr[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------
// Object entries and equality (§3, §4.4)
// -----------------------------------------------------------------------------

// MaxObjectEntries is the cap enforced on both producer and verifier sides.
const MaxObjectEntries = 1024

// Entry is one (path_component, Value) pair within an aggregate publish.
type Entry struct {
	Path  string
	Value Value
}

// ObjectEqual implements §4.4's object equality rule: same entry count,
// within the 1024 cap, and every left-hand path resolved against the
// fixed *first* right-hand entry of that name — the lookup never
// advances past it, even once claimed. A bool presence slice over b
// plays the role of the original's presence bitset: if a second
// left-hand entry resolves to that same already-claimed index (a
// duplicate name on either side), the objects compare unequal
// regardless of whether some other pairing of the same values would
// have matched.
func ObjectEqual(a, b []Entry) (bool, error) {
	if len(a) > MaxObjectEntries || len(b) > MaxObjectEntries {
		return false, errcode.New(errcode.InvalidParam, "astartevalue.ObjectEqual")
	}
	if len(a) != len(b) {
		return false, nil
	}

	used := make([]bool, len(b))
	for _, ea := range a {
		j, ok := firstByPath(b, ea.Path)
		if !ok {
			return false, nil
		}
		if used[j] {
			return false, nil
		}
		used[j] = true
		if !Equal(ea.Value, b[j].Value) {
			return false, nil
		}
	}
	return true, nil
}

// firstByPath returns the index of the first entry in b with the given
// path, ignoring whether it has already been claimed.
func firstByPath(b []Entry, path string) (int, bool) {
	for j, eb := range b {
		if eb.Path == path {
			return j, true
		}
	}
	return 0, false
}

// -----------------------------------------------------------------------------
// Wire glue (bsondoc)
// -----------------------------------------------------------------------------

// AppendTo serializes v under key into w, dispatching on its tag.
func (v Value) AppendTo(w *bsondoc.Writer, key string) {
	switch v.mt {
	case Bool:
		w.AppendBoolean(key, v.b)
	case DateTime:
		w.AppendDateTime(key, v.i64)
	case Double:
		w.AppendDouble(key, v.f64)
	case Int32:
		w.AppendInt32(key, v.i32)
	case Int64:
		w.AppendInt64(key, v.i64)
	case String:
		w.AppendString(key, v.s)
	case Binary:
		w.AppendBinary(key, v.bin)
	case BoolArray:
		sub := bsondoc.NewWriter()
		for i, b := range v.boolArr {
			sub.AppendBoolean(bsondoc.IndexKey(i), b)
		}
		w.AppendArray(key, sub.End())
	case DateTimeArray:
		sub := bsondoc.NewWriter()
		for i, x := range v.dtArr {
			sub.AppendDateTime(bsondoc.IndexKey(i), x)
		}
		w.AppendArray(key, sub.End())
	case DoubleArray:
		sub := bsondoc.NewWriter()
		for i, x := range v.f64Arr {
			sub.AppendDouble(bsondoc.IndexKey(i), x)
		}
		w.AppendArray(key, sub.End())
	case Int32Array:
		sub := bsondoc.NewWriter()
		for i, x := range v.i32Arr {
			sub.AppendInt32(bsondoc.IndexKey(i), x)
		}
		w.AppendArray(key, sub.End())
	case Int64Array:
		sub := bsondoc.NewWriter()
		for i, x := range v.i64Arr {
			sub.AppendInt64(bsondoc.IndexKey(i), x)
		}
		w.AppendArray(key, sub.End())
	case StringArray:
		sub := bsondoc.NewWriter()
		for i, x := range v.strArr {
			sub.AppendString(bsondoc.IndexKey(i), x)
		}
		w.AppendArray(key, sub.End())
	case BinaryArray:
		sub := bsondoc.NewWriter()
		for i, x := range v.binArr {
			sub.AppendBinary(bsondoc.IndexKey(i), x)
		}
		w.AppendArray(key, sub.End())
	}
}

// Decode deserializes the element under key in doc according to mt, the
// schema-directed entry point C6/C7 call with the mapping type resolved
// from an Interface/Mapping lookup.
func Decode(doc []byte, key string, mt MT) (Value, error) {
	switch mt {
	case Bool:
		x, err := bsondoc.ReadBoolean(doc, key)
		return FromBool(x), err
	case DateTime:
		x, err := bsondoc.ReadDateTime(doc, key)
		return FromDateTime(x), err
	case Double:
		x, err := bsondoc.ReadDouble(doc, key)
		return FromDouble(x), err
	case Int32:
		x, err := bsondoc.ReadInt32(doc, key)
		return FromInt32(x), err
	case Int64:
		x, err := bsondoc.ReadInt64(doc, key)
		return FromInt64(x), err
	case String:
		x, err := bsondoc.ReadString(doc, key)
		return FromString(x), err
	case Binary:
		x, err := bsondoc.ReadBinary(doc, key)
		return FromBinary(x), err
	case BoolArray:
		x, err := bsondoc.ReadBooleanArray(doc, key)
		return FromBoolArray(x), err
	case DateTimeArray:
		x, err := bsondoc.ReadDateTimeArray(doc, key)
		return FromDateTimeArray(x), err
	case DoubleArray:
		x, err := bsondoc.ReadDoubleArray(doc, key)
		return FromDoubleArray(x), err
	case Int32Array:
		x, err := bsondoc.ReadInt32Array(doc, key)
		return FromInt32Array(x), err
	case Int64Array:
		x, err := bsondoc.ReadInt64Array(doc, key)
		return FromInt64Array(x), err
	case StringArray:
		x, err := bsondoc.ReadStringArray(doc, key)
		return FromStringArray(x), err
	case BinaryArray:
		x, err := bsondoc.ReadBinaryArray(doc, key)
		return FromBinaryArray(x), err
	default:
		return Value{}, errcode.New(errcode.InvalidParam, "astartevalue.Decode")
	}
}
