package bsondoc

import (
	"encoding/binary"
	"math"

	"github.com/lucaato/astarte-device-sdk-go/x/conv"
)

// Writer builds a document by appending typed key/value elements, closing
// with End, which back-patches the total-length prefix reserved at Begin.
type Writer struct {
	buf []byte
}

// NewWriter starts a new document, reserving the 4-byte length prefix.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 4, 64)}
}

// Begin resets w to an empty document, reusing its backing storage.
func (w *Writer) Begin() {
	w.buf = append(w.buf[:0], 0, 0, 0, 0)
}

func (w *Writer) appendKey(key string) {
	w.buf = append(w.buf, key...)
	w.buf = append(w.buf, 0)
}

func (w *Writer) appendHeader(typ byte, key string) {
	w.buf = append(w.buf, typ)
	w.appendKey(key)
}

// AppendDouble appends an IEEE 754 64-bit float element.
func (w *Writer) AppendDouble(key string, v float64) {
	w.appendHeader(TypeDouble, key)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf = append(w.buf, b[:]...)
}

// AppendString appends a UTF-8 string element. The wire length includes the
// trailing NUL.
func (w *Writer) AppendString(key, v string) {
	w.appendHeader(TypeString, key)
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(v)+1))
	w.buf = append(w.buf, lb[:]...)
	w.buf = append(w.buf, v...)
	w.buf = append(w.buf, 0)
}

// AppendBinary appends an opaque byte sequence with the generic subtype.
func (w *Writer) AppendBinary(key string, v []byte) {
	w.appendHeader(TypeBinary, key)
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(v)))
	w.buf = append(w.buf, lb[:]...)
	w.buf = append(w.buf, BinarySubtypeGeneric)
	w.buf = append(w.buf, v...)
}

// AppendBoolean appends a single-byte boolean element.
func (w *Writer) AppendBoolean(key string, v bool) {
	w.appendHeader(TypeBoolean, key)
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// AppendDateTime appends an int64 epoch-millisecond element.
func (w *Writer) AppendDateTime(key string, ms int64) {
	w.appendHeader(TypeDateTime, key)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(ms))
	w.buf = append(w.buf, b[:]...)
}

// AppendInt32 appends a signed 32-bit integer element.
func (w *Writer) AppendInt32(key string, v int32) {
	w.appendHeader(TypeInt32, key)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

// AppendInt64 appends a signed 64-bit integer element.
func (w *Writer) AppendInt64(key string, v int64) {
	w.appendHeader(TypeInt64, key)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

// AppendDocument embeds an already-finished sub-document (its bytes, as
// returned by (*Writer).End) under key.
func (w *Writer) AppendDocument(key string, doc []byte) {
	w.appendHeader(TypeDocument, key)
	w.buf = append(w.buf, doc...)
}

// AppendArray embeds an already-finished sub-document under key, tagged as
// an array. The sub-document's keys are expected to be the decimal indices
// produced by IndexKey.
func (w *Writer) AppendArray(key string, doc []byte) {
	w.appendHeader(TypeArray, key)
	w.buf = append(w.buf, doc...)
}

// End writes the terminator byte, back-patches the length prefix, and
// returns the finished document. w may be reused via Begin afterward.
func (w *Writer) End() []byte {
	w.buf = append(w.buf, 0)
	binary.LittleEndian.PutUint32(w.buf[0:4], uint32(len(w.buf)))
	return w.buf
}

// IndexKey renders i as the decimal array-index key BSON arrays use
// ("0", "1", ...), reusing the teacher's allocation-light integer
// formatting instead of fmt.Sprintf.
func IndexKey(i int) string {
	var buf [20]byte
	return string(conv.Utoa(buf[:], uint64(i)))
}
