package hash

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderPage is a view over the table's single top-level fan-out page. It maps
// the top maxDepth bits of a hash to a directory page id. The fan-out is fixed
// at table creation; no splitting logic lives here.
type HeaderPage struct {
	data []byte
}

// HeaderFrom interprets a page buffer as a header page.
func HeaderFrom(data []byte) *HeaderPage {
	return &HeaderPage{data: data}
}

// Init formats the page with the given maxDepth and fills every directory
// slot with the INVALID_PAGE_ID sentinel.
func (header *HeaderPage) Init(maxDepth uint32) {
	if maxDepth > MAX_HEADER_DEPTH {
		panic(fmt.Errorf("%w: header maxDepth %d exceeds ceiling %d", ErrIndexOutOfRange, maxDepth, MAX_HEADER_DEPTH))
	}
	binary.LittleEndian.PutUint32(header.data[HEADER_MAX_DEPTH_OFFSET:], maxDepth)
	for i := uint32(0); i < header.MaxSize(); i++ {
		header.setDirectoryPageId(i, INVALID_PAGE_ID)
	}
}

// MaxDepth returns the number of high-order hash bits used to index
// directory slots.
func (header *HeaderPage) MaxDepth() uint32 {
	return binary.LittleEndian.Uint32(header.data[HEADER_MAX_DEPTH_OFFSET:])
}

// MaxSize returns the number of directory slots in the fan-out table.
func (header *HeaderPage) MaxSize() uint32 {
	return 1 << header.MaxDepth()
}

// HashToDirectoryIndex routes a hash to a directory slot using its top
// maxDepth bits.
func (header *HeaderPage) HashToDirectoryIndex(hash uint32) uint32 {
	// A shift by the full hash width is defined to yield 0 in Go, which is
	// exactly right for maxDepth == 0.
	return hash >> (HASH_WIDTH - header.MaxDepth())
}

// GetDirectoryPageId returns the directory page id stored at the given slot,
// or INVALID_PAGE_ID if the slot is unused.
// Panics with ErrIndexOutOfRange if the slot does not exist.
func (header *HeaderPage) GetDirectoryPageId(directoryIdx uint32) int64 {
	header.boundsCheck(directoryIdx)
	pos := HEADER_ARRAY_OFFSET + int64(directoryIdx)*8
	return int64(binary.LittleEndian.Uint64(header.data[pos:]))
}

// SetDirectoryPageId records the directory page id for the given slot.
// Panics with ErrIndexOutOfRange if the slot does not exist.
func (header *HeaderPage) SetDirectoryPageId(directoryIdx uint32, pagenum int64) {
	header.boundsCheck(directoryIdx)
	header.setDirectoryPageId(directoryIdx, pagenum)
}

func (header *HeaderPage) setDirectoryPageId(directoryIdx uint32, pagenum int64) {
	pos := HEADER_ARRAY_OFFSET + int64(directoryIdx)*8
	binary.LittleEndian.PutUint64(header.data[pos:], uint64(pagenum))
}

func (header *HeaderPage) boundsCheck(directoryIdx uint32) {
	if directoryIdx >= header.MaxSize() {
		panic(fmt.Errorf("%w: directory index %d, header size %d", ErrIndexOutOfRange, directoryIdx, header.MaxSize()))
	}
}

// Print writes a string representation of the header page to the specified writer.
func (header *HeaderPage) Print(w io.Writer) {
	fmt.Fprintf(w, "header: max depth %d\n", header.MaxDepth())
	for i := uint32(0); i < header.MaxSize(); i++ {
		if pn := header.GetDirectoryPageId(i); pn != INVALID_PAGE_ID {
			fmt.Fprintf(w, "directory %d: page %d\n", i, pn)
		}
	}
}
