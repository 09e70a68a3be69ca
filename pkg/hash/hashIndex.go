package hash

import (
	"errors"
	"io"
	"path/filepath"

	"hashdb/pkg/entry"
	"hashdb/pkg/pager"
)

// HashIndex is an index that uses a HashTable as its underlying datastructure.
type HashIndex struct {
	table *HashTable   // The HashTable
	pager *pager.Pager // The pager backing this index / HashTable
}

// OpenTable opens (or creates) an index backed by the file at filename,
// with the default fan-out, depth ceiling, bucket capacity, comparator,
// and hasher.
func OpenTable(filename string) (*HashIndex, error) {
	p, err := pager.New(filename)
	if err != nil {
		return nil, err
	}
	table, err := NewHashTable(p, entry.CompareKeys, XxHasher,
		DEFAULT_HEADER_MAX_DEPTH, DEFAULT_DIRECTORY_MAX_DEPTH, DEFAULT_BUCKET_MAX_SIZE)
	if err != nil {
		return nil, err
	}
	return &HashIndex{table: table, pager: p}, nil
}

// GetName returns the base file name of the file backing this index's pager.
func (index *HashIndex) GetName() string {
	return filepath.Base(index.pager.GetFileName())
}

// GetPager returns the pager backing this index.
func (index *HashIndex) GetPager() *pager.Pager {
	return index.pager
}

// GetTable returns the underlying HashTable.
func (index *HashIndex) GetTable() *HashTable {
	return index.table
}

// Close flushes the index to disk and closes the backing file.
func (index *HashIndex) Close() error {
	return index.pager.Close()
}

// Find returns an entry with the given key, or ErrKeyNotFound. With duplicate
// keys present, the first stored value wins; use FindAll for the full set.
func (index *HashIndex) Find(key int64) (entry.Entry, error) {
	values, err := index.table.GetValue(key)
	if err != nil {
		return entry.Entry{}, err
	}
	if len(values) == 0 {
		return entry.Entry{}, ErrKeyNotFound
	}
	return entry.New(key, values[0]), nil
}

// FindAll returns every value stored under the given key.
func (index *HashIndex) FindAll(key int64) ([]int64, error) {
	return index.table.GetValue(key)
}

// Insert adds the given pair, returning ErrNotInserted if the table
// refused it.
func (index *HashIndex) Insert(key int64, value int64) error {
	inserted, err := index.table.Insert(key, value)
	if err != nil {
		return err
	}
	if !inserted {
		return ErrNotInserted
	}
	return nil
}

// Delete removes the given pair, returning ErrKeyNotFound if it isn't there.
func (index *HashIndex) Delete(key int64, value int64) error {
	removed, err := index.table.Remove(key, value)
	if err != nil {
		return err
	}
	if !removed {
		return ErrKeyNotFound
	}
	return nil
}

// Select returns all entries in this index.
func (index *HashIndex) Select() ([]entry.Entry, error) {
	cursor, err := index.CursorAtStart()
	if errors.Is(err, ErrNoEntries) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close()
	var entries []entry.Entry
	for {
		e, err := cursor.GetEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		if cursor.Next() {
			return entries, nil
		}
	}
}

// Print writes a string representation of this entire index (header,
// directories, and buckets) to the specified writer.
func (index *HashIndex) Print(w io.Writer) {
	io.WriteString(w, "====\n")
	headerGuard, err := index.pager.FetchPageRead(index.table.headerPN)
	if err != nil {
		return
	}
	HeaderFrom(headerGuard.GetData()).Print(w)
	headerGuard.Drop()
	pagenums, err := index.table.bucketPagenums()
	if err != nil {
		return
	}
	for _, pn := range pagenums {
		guard, err := index.pager.FetchPageRead(pn)
		if err != nil {
			return
		}
		BucketFrom(guard.GetData()).Print(w)
		guard.Drop()
	}
	io.WriteString(w, "====\n")
}

// PrintPN writes a string representation of the bucket stored at the given
// pagenum to the specified writer.
func (index *HashIndex) PrintPN(pagenum int, w io.Writer) {
	guard, err := index.pager.FetchPageRead(int64(pagenum))
	if err != nil {
		return
	}
	defer guard.Drop()
	BucketFrom(guard.GetData()).Print(w)
}
