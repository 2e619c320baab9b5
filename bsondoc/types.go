// Package bsondoc implements the self-describing binary document format
// used on the wire: a length-prefixed sequence of typed key/value elements
// terminated by a zero byte, with a fixed set of nine element types.
//
// Ported line-for-line from lib/astarte_device_sdk/bson_serializer.c (the
// writer side) and the BSON-reading half of lib/astarte_device_sdk/data.c
// (the reader side), in the teacher's low-allocation, manual byte-buffer
// style seen in drivers/ltc4015/codec.go.
package bsondoc

// Element type codes, matching the wire format exactly.
const (
	TypeDouble   byte = 0x01
	TypeString   byte = 0x02
	TypeDocument byte = 0x03
	TypeArray    byte = 0x04
	TypeBinary   byte = 0x05
	TypeBoolean  byte = 0x08
	TypeDateTime byte = 0x09
	TypeInt32    byte = 0x10
	TypeInt64    byte = 0x12
)

// BinarySubtypeGeneric is the only binary subtype this codec emits or
// accepts.
const BinarySubtypeGeneric byte = 0x00
