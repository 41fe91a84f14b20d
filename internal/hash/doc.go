// Package hash provides the CRC32-Castagnoli checksums that guard stored-field
// blobs against torn or corrupted values.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// To frame a value with a trailing checksum and verify it on read:
//
//	sealed := hash.Seal(payload)
//	payload, ok := hash.Open(sealed)
package hash
