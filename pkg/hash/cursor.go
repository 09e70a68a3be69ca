package hash

import (
	"errors"

	"hashdb/pkg/entry"
)

// ErrNoEntries is returned by CursorAtStart when the index holds no entries.
var ErrNoEntries = errors.New("hash: index has no entries")

// HashCursor walks every live entry in the index, bucket by bucket. The
// bucket list is snapshotted when the cursor is created and each bucket's
// entries are copied out under a read latch, so the cursor never holds a
// page while the caller processes entries.
type HashCursor struct {
	index     *HashIndex
	pagenums  []int64 // Pagenums of every allocated bucket
	bucketPos int     // Position in pagenums of the current bucket
	entries   []entry.Entry
	cellnum   int
}

// CursorAtStart returns a cursor to the first entry in the index, or
// ErrNoEntries if every bucket is empty.
func (index *HashIndex) CursorAtStart() (*HashCursor, error) {
	pagenums, err := index.table.bucketPagenums()
	if err != nil {
		return nil, err
	}
	cursor := &HashCursor{index: index, pagenums: pagenums, bucketPos: -1}
	if cursor.advanceBucket() {
		return nil, ErrNoEntries
	}
	return cursor, nil
}

// advanceBucket loads the next non-empty bucket's entries.
// Returns true if there are no more entries.
func (cursor *HashCursor) advanceBucket() bool {
	for pos := cursor.bucketPos + 1; pos < len(cursor.pagenums); pos++ {
		guard, err := cursor.index.pager.FetchPageRead(cursor.pagenums[pos])
		if err != nil {
			return true
		}
		entries := BucketFrom(guard.GetData()).Entries()
		guard.Drop()
		if len(entries) > 0 {
			cursor.bucketPos = pos
			cursor.entries = entries
			cursor.cellnum = 0
			return false
		}
	}
	return true
}

// Next moves the cursor ahead by one entry.
// Returns true if we reach the end of our index.
func (cursor *HashCursor) Next() bool {
	if cursor.cellnum+1 < len(cursor.entries) {
		cursor.cellnum++
		return false
	}
	return cursor.advanceBucket()
}

// GetEntry returns the entry currently pointed to by the cursor.
func (cursor *HashCursor) GetEntry() (entry.Entry, error) {
	if cursor.cellnum >= len(cursor.entries) {
		return entry.Entry{}, errors.New("getEntry: cursor is not pointing at a valid entry")
	}
	return cursor.entries[cursor.cellnum], nil
}

// Close is called when we no longer need the cursor.
func (cursor *HashCursor) Close() {
	cursor.entries = nil
	cursor.pagenums = nil
}
