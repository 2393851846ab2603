// Package meta persists declarations and their priorities across module boundaries.
//
// A priority is persisted as the custom attribute blob
// of the attribute constructor call OverloadResolutionPriorityAttribute(int):
// the prolog 0x0001, the little-endian int32 argument,
// and a zero count of named arguments.
package meta

import (
	"errors"
	"fmt"
)

const blobLen = 8

var (
	errProlog = errors.New("bad custom attribute prolog")
	errShort  = errors.New("short custom attribute blob")
	errNamed  = errors.New("unexpected named arguments")
)

// Persist returns the attribute blob of a priority.
func Persist(priority int32) []byte {
	n := uint32(priority)
	return []byte{
		0x01, 0x00,
		byte(0xFF & n),
		byte(0xFF & (n >> 8)),
		byte(0xFF & (n >> 16)),
		byte(0xFF & (n >> 24)),
		0x00, 0x00,
	}
}

// Load returns the priority of an attribute blob.
func Load(blob []byte) (int32, error) {
	switch {
	case len(blob) < 2:
		return 0, errShort
	case blob[0] != 0x01 || blob[1] != 0x00:
		return 0, errProlog
	case len(blob) < blobLen:
		return 0, errShort
	case len(blob) > blobLen:
		return 0, fmt.Errorf("%d trailing bytes in custom attribute blob", len(blob)-blobLen)
	case blob[6] != 0 || blob[7] != 0:
		return 0, errNamed
	}
	var i int32
	i |= int32(blob[2]) << 0
	i |= int32(blob[3]) << 8
	i |= int32(blob[4]) << 16
	i |= int32(blob[5]) << 24
	return i, nil
}
