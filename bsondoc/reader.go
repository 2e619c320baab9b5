package bsondoc

import (
	"encoding/binary"
	"math"
)

// element is one decoded key/value pair; body is the slice of doc holding
// the value's raw bytes (its extent depends on typ).
type element struct {
	key  string
	typ  byte
	body []byte
}

// parseElements walks a complete document (length prefix through
// terminator) and returns every top-level element. Used both to count an
// array's length and to populate it, per the schema-directed two-pass
// decode the codec specifies; a single scan serves both passes since a Go
// slice has no pre-allocation ordering constraint the caller can observe.
func parseElements(doc []byte) ([]element, error) {
	if len(doc) < 5 {
		return nil, errMalformed("bsondoc.parseElements")
	}
	total := binary.LittleEndian.Uint32(doc[0:4])
	if int(total) != len(doc) {
		return nil, errMalformed("bsondoc.parseElements")
	}
	if doc[len(doc)-1] != 0 {
		return nil, errMalformed("bsondoc.parseElements")
	}

	var elems []element
	pos := 4
	end := len(doc) - 1
	for pos < end {
		typ := doc[pos]
		pos++

		start := pos
		for pos < end && doc[pos] != 0 {
			pos++
		}
		if pos >= end {
			return nil, errMalformed("bsondoc.parseElements")
		}
		key := string(doc[start:pos])
		pos++

		valLen, err := elementValueLen(typ, doc[pos:end])
		if err != nil {
			return nil, err
		}
		if pos+valLen > end {
			return nil, errMalformed("bsondoc.parseElements")
		}
		elems = append(elems, element{key: key, typ: typ, body: doc[pos : pos+valLen]})
		pos += valLen
	}
	if pos != end {
		return nil, errMalformed("bsondoc.parseElements")
	}
	return elems, nil
}

func elementValueLen(typ byte, rest []byte) (int, error) {
	switch typ {
	case TypeDouble, TypeDateTime, TypeInt64:
		return 8, nil
	case TypeInt32:
		return 4, nil
	case TypeBoolean:
		return 1, nil
	case TypeString:
		if len(rest) < 4 {
			return 0, errMalformed("bsondoc.elementValueLen")
		}
		l := int(binary.LittleEndian.Uint32(rest[0:4]))
		return 4 + l, nil
	case TypeDocument, TypeArray:
		if len(rest) < 4 {
			return 0, errMalformed("bsondoc.elementValueLen")
		}
		l := int(binary.LittleEndian.Uint32(rest[0:4]))
		return l, nil
	case TypeBinary:
		if len(rest) < 4 {
			return 0, errMalformed("bsondoc.elementValueLen")
		}
		l := int(binary.LittleEndian.Uint32(rest[0:4]))
		return 4 + 1 + l, nil
	default:
		return 0, errMalformed("bsondoc.elementValueLen")
	}
}

func findElement(doc []byte, key string) (element, error) {
	elems, err := parseElements(doc)
	if err != nil {
		return element{}, err
	}
	for _, e := range elems {
		if e.key == key {
			return e, nil
		}
	}
	return element{}, errMalformed("bsondoc.findElement")
}

// -----------------------------------------------------------------------------
// Scalar reads
// -----------------------------------------------------------------------------

func ReadDouble(doc []byte, key string) (float64, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return 0, err
	}
	if e.typ != TypeDouble {
		return 0, errTypeMismatch("bsondoc.ReadDouble")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(e.body)), nil
}

func ReadString(doc []byte, key string) (string, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return "", err
	}
	if e.typ != TypeString {
		return "", errTypeMismatch("bsondoc.ReadString")
	}
	if len(e.body) < 5 {
		return "", errMalformed("bsondoc.ReadString")
	}
	return string(e.body[4 : len(e.body)-1]), nil
}

func ReadBinary(doc []byte, key string) ([]byte, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return nil, err
	}
	if e.typ != TypeBinary {
		return nil, errTypeMismatch("bsondoc.ReadBinary")
	}
	if len(e.body) < 5 {
		return nil, errMalformed("bsondoc.ReadBinary")
	}
	out := make([]byte, len(e.body)-5)
	copy(out, e.body[5:])
	return out, nil
}

func ReadBoolean(doc []byte, key string) (bool, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return false, err
	}
	if e.typ != TypeBoolean {
		return false, errTypeMismatch("bsondoc.ReadBoolean")
	}
	return e.body[0] != 0, nil
}

func ReadDateTime(doc []byte, key string) (int64, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return 0, err
	}
	if e.typ != TypeDateTime {
		return 0, errTypeMismatch("bsondoc.ReadDateTime")
	}
	return int64(binary.LittleEndian.Uint64(e.body)), nil
}

func ReadInt32(doc []byte, key string) (int32, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return 0, err
	}
	if e.typ != TypeInt32 {
		return 0, errTypeMismatch("bsondoc.ReadInt32")
	}
	return int32(binary.LittleEndian.Uint32(e.body)), nil
}

// ReadInt64 accepts an encoded Int64 directly, or widens an encoded Int32 —
// the one documented compatibility exception in the scalar decode path.
func ReadInt64(doc []byte, key string) (int64, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return 0, err
	}
	switch e.typ {
	case TypeInt64:
		return int64(binary.LittleEndian.Uint64(e.body)), nil
	case TypeInt32:
		return int64(int32(binary.LittleEndian.Uint32(e.body))), nil
	default:
		return 0, errTypeMismatch("bsondoc.ReadInt64")
	}
}

// ElementType reports the wire type tag stored under key, for callers (the
// typed-value layer) that need to pick a decode path before committing to
// one of the Read* functions above.
func ElementType(doc []byte, key string) (byte, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return 0, err
	}
	return e.typ, nil
}

// HasKey reports whether doc contains a top-level element under key.
func HasKey(doc []byte, key string) bool {
	_, err := findElement(doc, key)
	return err == nil
}

// Keys returns every top-level key in doc, in wire order. Used to decode
// an aggregate object document, whose field names aren't known ahead of
// decode time the way a scalar "v" element's are.
func Keys(doc []byte) ([]string, error) {
	elems, err := parseElements(doc)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(elems))
	for i, e := range elems {
		keys[i] = e.key
	}
	return keys, nil
}

// -----------------------------------------------------------------------------
// Array reads
// -----------------------------------------------------------------------------

func readArrayBody(doc []byte, key string) ([]element, error) {
	e, err := findElement(doc, key)
	if err != nil {
		return nil, err
	}
	if e.typ != TypeArray {
		return nil, errTypeMismatch("bsondoc.readArrayBody")
	}
	return parseElements(e.body)
}

func ReadBooleanArray(doc []byte, key string) ([]bool, error) {
	elems, err := readArrayBody(doc, key)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(elems))
	for i, e := range elems {
		if e.typ != TypeBoolean {
			return nil, errTypeMismatch("bsondoc.ReadBooleanArray")
		}
		out[i] = e.body[0] != 0
	}
	return out, nil
}

func ReadDateTimeArray(doc []byte, key string) ([]int64, error) {
	elems, err := readArrayBody(doc, key)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(elems))
	for i, e := range elems {
		if e.typ != TypeDateTime {
			return nil, errTypeMismatch("bsondoc.ReadDateTimeArray")
		}
		out[i] = int64(binary.LittleEndian.Uint64(e.body))
	}
	return out, nil
}

func ReadDoubleArray(doc []byte, key string) ([]float64, error) {
	elems, err := readArrayBody(doc, key)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(elems))
	for i, e := range elems {
		if e.typ != TypeDouble {
			return nil, errTypeMismatch("bsondoc.ReadDoubleArray")
		}
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(e.body))
	}
	return out, nil
}

func ReadInt32Array(doc []byte, key string) ([]int32, error) {
	elems, err := readArrayBody(doc, key)
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(elems))
	for i, e := range elems {
		if e.typ != TypeInt32 {
			return nil, errTypeMismatch("bsondoc.ReadInt32Array")
		}
		out[i] = int32(binary.LittleEndian.Uint32(e.body))
	}
	return out, nil
}

// ReadInt64Array applies the same per-element Int32-widening exception as
// ReadInt64, element by element; the original source's permissive
// mixed-type behavior inside an array is preserved deliberately (see
// DESIGN.md).
func ReadInt64Array(doc []byte, key string) ([]int64, error) {
	elems, err := readArrayBody(doc, key)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(elems))
	for i, e := range elems {
		switch e.typ {
		case TypeInt64:
			out[i] = int64(binary.LittleEndian.Uint64(e.body))
		case TypeInt32:
			out[i] = int64(int32(binary.LittleEndian.Uint32(e.body)))
		default:
			return nil, errTypeMismatch("bsondoc.ReadInt64Array")
		}
	}
	return out, nil
}

func ReadStringArray(doc []byte, key string) ([]string, error) {
	elems, err := readArrayBody(doc, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		if e.typ != TypeString {
			return nil, errTypeMismatch("bsondoc.ReadStringArray")
		}
		if len(e.body) < 5 {
			return nil, errMalformed("bsondoc.ReadStringArray")
		}
		out[i] = string(e.body[4 : len(e.body)-1])
	}
	return out, nil
}

func ReadBinaryArray(doc []byte, key string) ([][]byte, error) {
	elems, err := readArrayBody(doc, key)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(elems))
	for i, e := range elems {
		if e.typ != TypeBinary {
			return nil, errTypeMismatch("bsondoc.ReadBinaryArray")
		}
		if len(e.body) < 5 {
			return nil, errMalformed("bsondoc.ReadBinaryArray")
		}
		b := make([]byte, len(e.body)-5)
		copy(b, e.body[5:])
		out[i] = b
	}
	return out, nil
}
