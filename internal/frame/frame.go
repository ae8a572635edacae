// Package frame implements the PatrolDevice protocol's fixed 16-byte frame
// header: encode/decode, sync-byte validation, little-endian fields. It has
// no dependency on the message body format — callers hand it an
// already-encoded body and a sequence number, and get back a header they
// can read exact-length bytes against.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed size of a frame header in bytes.
const HeaderSize = 16

// MaxBodyLen is the largest body length the 16-bit body_length field can
// represent.
const MaxBodyLen = 1<<16 - 1

// syncBytes is the literal 4-byte frame-start marker.
var syncBytes = [4]byte{0xEB, 0x90, 0xEB, 0x90}

// ErrBodyTooLarge is returned by Encode when the body exceeds MaxBodyLen.
var ErrBodyTooLarge = fmt.Errorf("frame: body exceeds max length %d", MaxBodyLen)

// ErrInvalidSync is returned by DecodeHeader when the sync literal doesn't
// match. This is a fatal stream error for the caller.
var ErrInvalidSync = errors.New("frame: invalid sync bytes")

// Encode prepends a 16-byte header to body and returns the full frame.
// body_length is set to len(body); reserved bytes are zero.
func Encode(body []byte, seq uint16) ([]byte, error) {
	if len(body) > MaxBodyLen {
		return nil, ErrBodyTooLarge
	}
	out := make([]byte, HeaderSize+len(body))
	copy(out[0:4], syncBytes[:])
	binary.LittleEndian.PutUint16(out[4:6], uint16(len(body)))
	binary.LittleEndian.PutUint16(out[6:8], seq)
	// out[8:16] reserved, already zero.
	copy(out[HeaderSize:], body)
	return out, nil
}

// DecodeHeader validates the sync literal and extracts body_length and the
// sequence number from a 16-byte header. It does not allocate.
func DecodeHeader(hdr [HeaderSize]byte) (bodyLen uint16, seq uint16, err error) {
	if hdr[0] != syncBytes[0] || hdr[1] != syncBytes[1] || hdr[2] != syncBytes[2] || hdr[3] != syncBytes[3] {
		return 0, 0, ErrInvalidSync
	}
	bodyLen = binary.LittleEndian.Uint16(hdr[4:6])
	seq = binary.LittleEndian.Uint16(hdr[6:8])
	return bodyLen, seq, nil
}
