// Package identifier generates and parses RFC 4122 128-bit identifiers,
// versions 4 (random) and 5 (namespaced SHA-1), in the canonical hex string,
// base64, and base64url forms used throughout the device library (device
// IDs, E2E harness correlation IDs).
//
// Ported from lib/astarte_device_sdk/uuid.c: same field layout, same
// version/variant bit overwrite, same string offsets. Go's crypto/rand and
// crypto/sha1 stand in for sys_rand_get and mbedtls_md, since both are
// stdlib primitives with no domain-specific alternative in the examples
// corpus (see DESIGN.md).
package identifier

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"

	"github.com/lucaato/astarte-device-sdk-go/errcode"
	"github.com/lucaato/astarte-device-sdk-go/x/conv"
)

// Size is the length of an identifier in bytes.
const Size = 16

// ID is a 128-bit identifier.
type ID [Size]byte

const (
	offsetTimeHiAndVersion = 6
	offsetClockSeqHiRes    = 8

	maskTimeHiAndVersionTime = 0x0FFF
	versionShift             = 12

	maskClockSeqHiResKeep = 0x3F
	maskClockSeqHiResSet  = 0x80
)

func setVersionAndVariant(b *ID, version byte) {
	hi := (uint16(b[offsetTimeHiAndVersion])<<8 | uint16(b[offsetTimeHiAndVersion+1]))
	hi &= maskTimeHiAndVersionTime
	hi |= uint16(version) << versionShift
	b[offsetTimeHiAndVersion] = byte(hi >> 8)
	b[offsetTimeHiAndVersion+1] = byte(hi)

	b[offsetClockSeqHiRes] = (b[offsetClockSeqHiRes] & maskClockSeqHiResKeep) | maskClockSeqHiResSet
}

// V4 generates a random (version 4) identifier.
func V4() (ID, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return ID{}, errcode.Wrap(errcode.Internal, "identifier.V4", err)
	}
	setVersionAndVariant(&id, 4)
	return id, nil
}

// V5 deterministically derives an identifier from namespace and data, per
// RFC 4122 §4.3: SHA-1 over namespace||data, keep the first 16 bytes,
// overwrite version and variant bits.
func V5(namespace ID, data []byte) ID {
	h := sha1.New()
	h.Write(namespace[:])
	h.Write(data)
	sum := h.Sum(nil)

	var id ID
	copy(id[:], sum[:Size])
	setVersionAndVariant(&id, 5)
	return id
}

// String renders the canonical 8-4-4-4-12 lowercase hex form.
func (id ID) String() string {
	buf := make([]byte, 0, 36)
	buf = conv.HexLower(buf, id[0:4])
	buf = append(buf, '-')
	buf = conv.HexLower(buf, id[4:6])
	buf = append(buf, '-')
	buf = conv.HexLower(buf, id[6:8])
	buf = append(buf, '-')
	buf = conv.HexLower(buf, id[8:10])
	buf = append(buf, '-')
	buf = conv.HexLower(buf, id[10:16])
	return string(buf)
}

// Base64 renders the identifier as standard base64 (24 chars, padded).
func (id ID) Base64() string {
	return base64.StdEncoding.EncodeToString(id[:])
}

// Base64URL renders the identifier as unpadded base64url (22 chars), the
// form used for compact correlation IDs.
func (id ID) Base64URL() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// Parse decodes the canonical 8-4-4-4-12 hex string form. It fails with
// errcode.InvalidParam if the length is not 36, a hyphen is misplaced, or a
// character is not a hex digit.
func Parse(s string) (ID, error) {
	if len(s) != 36 {
		return ID{}, errcode.New(errcode.InvalidParam, "identifier.Parse")
	}
	for _, pos := range [4]int{8, 13, 18, 23} {
		if s[pos] != '-' {
			return ID{}, errcode.New(errcode.InvalidParam, "identifier.Parse")
		}
	}

	var id ID
	out := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			continue
		}
		hi, ok := conv.DecodeHexNibble(s[i])
		if !ok {
			return ID{}, errcode.New(errcode.InvalidParam, "identifier.Parse")
		}
		i++
		lo, ok := conv.DecodeHexNibble(s[i])
		if !ok {
			return ID{}, errcode.New(errcode.InvalidParam, "identifier.Parse")
		}
		if out >= Size {
			return ID{}, errcode.New(errcode.InvalidParam, "identifier.Parse")
		}
		id[out] = hi<<4 | lo
		out++
	}
	if out != Size {
		return ID{}, errcode.New(errcode.InvalidParam, "identifier.Parse")
	}
	return id, nil
}

// MustParse is Parse but panics on error; for static tables and tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic("identifier: MustParse: " + err.Error())
	}
	return id
}
