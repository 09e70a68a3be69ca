package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"
)

// Hasher maps a key to a HASH_WIDTH-bit hash. The table routes on both ends
// of the result (high bits pick the directory, low bits pick the bucket), so
// implementations must distribute well across the whole width.
type Hasher func(key int64) uint32

// hashKey runs the given 64-bit sum over the key's little-endian encoding
// and truncates it to HASH_WIDTH bits.
func hashKey(sum func(b []byte) uint64, key int64) uint32 {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(key))
	return uint32(sum(buf))
}

// XxHasher hashes the given key with xxHash. This is the default table hasher.
func XxHasher(key int64) uint32 {
	return hashKey(xxhash.Sum64, key)
}

// MurmurHasher hashes the given key with MurmurHash3.
func MurmurHasher(key int64) uint32 {
	return hashKey(murmur3.Sum64, key)
}
