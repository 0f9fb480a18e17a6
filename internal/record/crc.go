package record

import "hash/crc32"

// CalculateCRC computes the CRC32 (IEEE) of everything in a frame that
// follows the checksum field.
func CalculateCRC(body []byte) uint32 {
	return crc32.ChecksumIEEE(body)
}

// ValidateCRC reports whether checksum matches the CRC32 of body.
func ValidateCRC(body []byte, checksum uint32) bool {
	return CalculateCRC(body) == checksum
}
