// Package entry defines the fixed-width key-value record stored by the index,
// together with its on-page binary codec and the key comparator type.
package entry

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Size in bytes of a marshalled Entry: an int64 key followed by an int64 value,
// both little-endian.
const EntrySize int64 = 16

// Entry is a key-value pair stored in a bucket page slot.
type Entry struct {
	Key   int64
	Value int64
}

// Comparator imposes a total order on keys. It returns a negative number if
// a < b, zero if a == b, and a positive number if a > b.
type Comparator func(a int64, b int64) int

// CompareKeys is the natural int64 ordering.
func CompareKeys(a int64, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// New constructs and returns a new Entry with the specified key and value.
func New(key int64, value int64) Entry {
	return Entry{key, value}
}

// Marshal serializes the entry into EntrySize bytes.
// Layout: key int64 little-endian at offset 0, value int64 little-endian at offset 8.
func (entry Entry) Marshal() []byte {
	data := make([]byte, EntrySize)
	binary.LittleEndian.PutUint64(data[0:8], uint64(entry.Key))
	binary.LittleEndian.PutUint64(data[8:16], uint64(entry.Value))
	return data
}

// UnmarshalEntry deserializes EntrySize bytes into an entry.
func UnmarshalEntry(data []byte) Entry {
	return Entry{
		Key:   int64(binary.LittleEndian.Uint64(data[0:8])),
		Value: int64(binary.LittleEndian.Uint64(data[8:16])),
	}
}

// Print writes the entry to the specified writer in the following format: (<key>, <value>)
func (entry Entry) Print(w io.Writer) {
	fmt.Fprintf(w, "(%d, %d), ", entry.Key, entry.Value)
}
