package hash

import (
	"encoding/binary"
	"hash"
	"hash/crc32"
)

// ChecksumSize is the width of a trailing CRC32C checksum.
const ChecksumSize = 4

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a new CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// Seal appends the big-endian CRC32C of data to data.
func Seal(data []byte) []byte {
	return binary.BigEndian.AppendUint32(data, CRC32C(data))
}

// Open verifies a buffer produced by Seal and returns the payload without its
// checksum. ok is false if the buffer is short or the checksum does not match.
func Open(sealed []byte) (payload []byte, ok bool) {
	if len(sealed) < ChecksumSize {
		return nil, false
	}
	n := len(sealed) - ChecksumSize
	if binary.BigEndian.Uint32(sealed[n:]) != CRC32C(sealed[:n]) {
		return nil, false
	}
	return sealed[:n], true
}
