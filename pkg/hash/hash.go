package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ipHashIterations is the number of SHA256 rounds applied to a salted IP.
const ipHashIterations = 5000

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP derives the stored network address of a voter. Raw IPs are never
// persisted; duplicate detection compares these hashes.
func HashIP(ip, salt string) string {
	return IteratedSHA256(salt+ip, ipHashIterations)
}
