package hash

import (
	"encoding/binary"
	"fmt"
	"io"

	"hashdb/pkg/entry"

	"github.com/bits-and-blooms/bitset"
)

// BucketPage is a view over one bucket page: a fixed-capacity array of
// entries plus two bitmaps. occupied marks slots that currently hold an
// entry's bytes; readable marks slots whose entry is live. RemoveAt leaves a
// slot occupied-but-unreadable, while Remove clears both bits so the slot can
// be reused and capacity is never permanently lost.
type BucketPage struct {
	data []byte
}

// BucketFrom interprets a page buffer as a bucket page.
func BucketFrom(data []byte) *BucketPage {
	return &BucketPage{data: data}
}

// Init formats the page as an empty bucket holding at most maxSize entries.
func (bucket *BucketPage) Init(maxSize uint32) {
	if maxSize == 0 || maxSize > MAX_BUCKET_SIZE {
		panic(fmt.Errorf("%w: bucket maxSize %d, ceiling %d", ErrIndexOutOfRange, maxSize, MAX_BUCKET_SIZE))
	}
	binary.LittleEndian.PutUint32(bucket.data[BUCKET_MAX_SIZE_OFFSET:], maxSize)
	bucket.Clear()
}

// MaxSize returns the bucket's entry capacity.
func (bucket *BucketPage) MaxSize() uint32 {
	return binary.LittleEndian.Uint32(bucket.data[BUCKET_MAX_SIZE_OFFSET:])
}

// GetValue returns every value stored under a key that compares equal to the
// given key. Duplicate keys with distinct values are legal and all of their
// values are returned.
func (bucket *BucketPage) GetValue(key int64, cmp entry.Comparator) []int64 {
	occupied, readable := bucket.occupied(), bucket.readable()
	var values []int64
	for i := uint32(0); i < bucket.MaxSize(); i++ {
		if !occupied.Test(uint(i)) || !readable.Test(uint(i)) {
			continue
		}
		if cmp(bucket.KeyAt(i), key) == 0 {
			values = append(values, bucket.ValueAt(i))
		}
	}
	return values
}

// Insert writes the pair into the first unoccupied slot. It returns false
// without raising when the exact (key, value) pair is already present or when
// no unoccupied slot exists; a full bucket is the caller's cue to split.
func (bucket *BucketPage) Insert(key int64, value int64, cmp entry.Comparator) bool {
	occupied, readable := bucket.occupied(), bucket.readable()
	maxSize := bucket.MaxSize()
	for i := uint32(0); i < maxSize; i++ {
		if !occupied.Test(uint(i)) || !readable.Test(uint(i)) {
			continue
		}
		if cmp(bucket.KeyAt(i), key) == 0 && bucket.ValueAt(i) == value {
			return false
		}
	}
	slot, ok := occupied.NextClear(0)
	if !ok || uint32(slot) >= maxSize {
		return false
	}
	bucket.writeEntry(uint32(slot), entry.New(key, value))
	occupied.Set(slot)
	readable.Set(slot)
	bucket.writeBitmap(BUCKET_OCCUPIED_OFFSET, occupied)
	bucket.writeBitmap(BUCKET_READABLE_OFFSET, readable)
	return true
}

// Remove deletes the entry matching the exact (key, value) pair, clearing
// both bitmap bits so the slot becomes reusable. Returns false if no such
// entry is live.
func (bucket *BucketPage) Remove(key int64, value int64, cmp entry.Comparator) bool {
	occupied, readable := bucket.occupied(), bucket.readable()
	for i := uint32(0); i < bucket.MaxSize(); i++ {
		if !occupied.Test(uint(i)) || !readable.Test(uint(i)) {
			continue
		}
		if cmp(bucket.KeyAt(i), key) == 0 && bucket.ValueAt(i) == value {
			occupied.Clear(uint(i))
			readable.Clear(uint(i))
			bucket.writeBitmap(BUCKET_OCCUPIED_OFFSET, occupied)
			bucket.writeBitmap(BUCKET_READABLE_OFFSET, readable)
			return true
		}
	}
	return false
}

// RemoveAt marks the slot at the given index unreadable, keeping it occupied.
func (bucket *BucketPage) RemoveAt(bucketIdx uint32) {
	if bucketIdx >= bucket.MaxSize() {
		panic(fmt.Errorf("%w: slot %d, bucket capacity %d", ErrIndexOutOfRange, bucketIdx, bucket.MaxSize()))
	}
	readable := bucket.readable()
	readable.Clear(uint(bucketIdx))
	bucket.writeBitmap(BUCKET_READABLE_OFFSET, readable)
}

// Clear zeroes both bitmaps, emptying the bucket.
func (bucket *BucketPage) Clear() {
	for pos := BUCKET_OCCUPIED_OFFSET; pos < BUCKET_ARRAY_OFFSET; pos++ {
		bucket.data[pos] = 0
	}
}

// KeyAt returns the key stored in the slot at the given index.
func (bucket *BucketPage) KeyAt(bucketIdx uint32) int64 {
	return bucket.EntryAt(bucketIdx).Key
}

// ValueAt returns the value stored in the slot at the given index.
func (bucket *BucketPage) ValueAt(bucketIdx uint32) int64 {
	return bucket.EntryAt(bucketIdx).Value
}

// EntryAt returns the entry stored in the slot at the given index.
func (bucket *BucketPage) EntryAt(bucketIdx uint32) entry.Entry {
	pos := BUCKET_ARRAY_OFFSET + int64(bucketIdx)*ENTRYSIZE
	return entry.UnmarshalEntry(bucket.data[pos : pos+ENTRYSIZE])
}

// Entries returns a copy of every live entry in the bucket.
func (bucket *BucketPage) Entries() []entry.Entry {
	occupied, readable := bucket.occupied(), bucket.readable()
	var entries []entry.Entry
	for i := uint32(0); i < bucket.MaxSize(); i++ {
		if occupied.Test(uint(i)) && readable.Test(uint(i)) {
			entries = append(entries, bucket.EntryAt(i))
		}
	}
	return entries
}

// IsFull reports whether no unoccupied slot remains.
func (bucket *BucketPage) IsFull() bool {
	slot, ok := bucket.occupied().NextClear(0)
	return !ok || uint32(slot) >= bucket.MaxSize()
}

// IsEmpty reports whether the bucket holds no live entry.
func (bucket *BucketPage) IsEmpty() bool {
	return bucket.NumReadable() == 0
}

// NumReadable returns the number of live entries in the bucket.
func (bucket *BucketPage) NumReadable() uint32 {
	return uint32(bucket.readable().Count())
}

// occupied decodes the occupied bitmap into a bitset.
func (bucket *BucketPage) occupied() *bitset.BitSet {
	return bucket.readBitmap(BUCKET_OCCUPIED_OFFSET)
}

// readable decodes the readable bitmap into a bitset.
func (bucket *BucketPage) readable() *bitset.BitSet {
	return bucket.readBitmap(BUCKET_READABLE_OFFSET)
}

func (bucket *BucketPage) readBitmap(offset int64) *bitset.BitSet {
	words := make([]uint64, BUCKET_BITMAP_WORDS)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(bucket.data[offset+int64(i)*8:])
	}
	return bitset.From(words)
}

func (bucket *BucketPage) writeBitmap(offset int64, bits *bitset.BitSet) {
	for i, word := range bits.Bytes() {
		binary.LittleEndian.PutUint64(bucket.data[offset+int64(i)*8:], word)
	}
}

func (bucket *BucketPage) writeEntry(bucketIdx uint32, e entry.Entry) {
	pos := BUCKET_ARRAY_OFFSET + int64(bucketIdx)*ENTRYSIZE
	copy(bucket.data[pos:pos+ENTRYSIZE], e.Marshal())
}

// Print writes a string representation of the bucket and its live entries to
// the specified writer.
func (bucket *BucketPage) Print(w io.Writer) {
	fmt.Fprintf(w, "bucket: %d/%d entries\n", bucket.NumReadable(), bucket.MaxSize())
	io.WriteString(w, "entries:")
	for _, e := range bucket.Entries() {
		e.Print(w)
	}
	io.WriteString(w, "\n")
}
