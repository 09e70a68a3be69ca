package hash

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DirectoryPage is a view over one directory page. It maps the low
// globalDepth bits of a hash to a bucket page id and tracks a local depth per
// slot. Only the first 2^globalDepth slots are logically valid; every
// accessor bounds-checks against that logical size, not the physical array.
type DirectoryPage struct {
	data []byte
}

// DirectoryFrom interprets a page buffer as a directory page.
func DirectoryFrom(data []byte) *DirectoryPage {
	return &DirectoryPage{data: data}
}

// Init formats the page: globalDepth starts at 0 with a single slot whose
// bucket is unset and whose local depth is 0.
func (dir *DirectoryPage) Init(maxDepth uint32) {
	if maxDepth > MAX_DIRECTORY_DEPTH {
		panic(fmt.Errorf("%w: directory maxDepth %d exceeds ceiling %d", ErrIndexOutOfRange, maxDepth, MAX_DIRECTORY_DEPTH))
	}
	binary.LittleEndian.PutUint32(dir.data[DIRECTORY_MAX_DEPTH_OFFSET:], maxDepth)
	binary.LittleEndian.PutUint32(dir.data[DIRECTORY_GLOBAL_DEPTH_OFFSET:], 0)
	dir.setLocalDepth(0, 0)
	dir.setBucketPageId(0, INVALID_PAGE_ID)
}

// MaxDepth returns the ceiling on this directory's global depth.
func (dir *DirectoryPage) MaxDepth() uint32 {
	return binary.LittleEndian.Uint32(dir.data[DIRECTORY_MAX_DEPTH_OFFSET:])
}

// GlobalDepth returns the number of low-order hash bits currently used to
// select a bucket slot.
func (dir *DirectoryPage) GlobalDepth() uint32 {
	return binary.LittleEndian.Uint32(dir.data[DIRECTORY_GLOBAL_DEPTH_OFFSET:])
}

// GlobalDepthMask returns a mask of globalDepth low-order 1 bits.
func (dir *DirectoryPage) GlobalDepthMask() uint32 {
	return (1 << dir.GlobalDepth()) - 1
}

// Size returns the directory's current logical slot count, 2^globalDepth.
func (dir *DirectoryPage) Size() uint32 {
	return 1 << dir.GlobalDepth()
}

// HashToBucketIndex routes a hash to a directory slot using its low
// globalDepth bits. Using the low bits is what lets IncrGlobalDepth duplicate
// the existing mappings instead of reshuffling them.
func (dir *DirectoryPage) HashToBucketIndex(hash uint32) uint32 {
	return hash & dir.GlobalDepthMask()
}

// GetSplitImageIndex returns the slot that shares this slot's bucket before a
// split and receives the new bucket afterwards. It is an involution on valid
// slots as long as the slot's local depth is below the global depth.
func (dir *DirectoryPage) GetSplitImageIndex(bucketIdx uint32) uint32 {
	return bucketIdx ^ (1 << dir.GetLocalDepth(bucketIdx))
}

// GetBucketPageId returns the bucket page id stored at the given slot.
// Panics with ErrIndexOutOfRange if the slot is outside the logical size.
func (dir *DirectoryPage) GetBucketPageId(bucketIdx uint32) int64 {
	dir.boundsCheck(bucketIdx)
	pos := DIRECTORY_PAGE_IDS_OFFSET + int64(bucketIdx)*8
	return int64(binary.LittleEndian.Uint64(dir.data[pos:]))
}

// SetBucketPageId records the bucket page id for the given slot.
// Panics with ErrIndexOutOfRange if the slot is outside the logical size.
func (dir *DirectoryPage) SetBucketPageId(bucketIdx uint32, pagenum int64) {
	dir.boundsCheck(bucketIdx)
	dir.setBucketPageId(bucketIdx, pagenum)
}

// GetLocalDepth returns the local depth of the given slot's bucket.
func (dir *DirectoryPage) GetLocalDepth(bucketIdx uint32) uint32 {
	dir.boundsCheck(bucketIdx)
	return uint32(dir.data[DIRECTORY_LOCAL_DEPTHS_OFFSET+int64(bucketIdx)])
}

// SetLocalDepth records the local depth of the given slot's bucket.
func (dir *DirectoryPage) SetLocalDepth(bucketIdx uint32, localDepth uint32) {
	dir.boundsCheck(bucketIdx)
	if localDepth > dir.GlobalDepth() {
		panic(fmt.Errorf("%w: local depth %d exceeds global depth %d", ErrIndexOutOfRange, localDepth, dir.GlobalDepth()))
	}
	dir.setLocalDepth(bucketIdx, localDepth)
}

// IncrLocalDepth increments the local depth of the given slot's bucket.
func (dir *DirectoryPage) IncrLocalDepth(bucketIdx uint32) {
	dir.SetLocalDepth(bucketIdx, dir.GetLocalDepth(bucketIdx)+1)
}

// DecrLocalDepth decrements the local depth of the given slot's bucket.
func (dir *DirectoryPage) DecrLocalDepth(bucketIdx uint32) {
	dir.SetLocalDepth(bucketIdx, dir.GetLocalDepth(bucketIdx)-1)
}

// IncrGlobalDepth doubles the directory by replicating every existing slot's
// bucket page id and local depth into the new upper half. Callers must refuse
// to grow past MaxDepth; growing past it here is a contract violation.
func (dir *DirectoryPage) IncrGlobalDepth() {
	depth := dir.GlobalDepth()
	if depth >= dir.MaxDepth() {
		panic(fmt.Errorf("%w: global depth %d already at max depth", ErrIndexOutOfRange, depth))
	}
	half := uint32(1) << depth
	for i := uint32(0); i < half; i++ {
		dir.setBucketPageId(i+half, dir.GetBucketPageId(i))
		dir.setLocalDepth(i+half, dir.GetLocalDepth(i))
	}
	binary.LittleEndian.PutUint32(dir.data[DIRECTORY_GLOBAL_DEPTH_OFFSET:], depth+1)
}

// CanShrink reports whether the directory may be halved: every valid slot's
// local depth must be strictly below the global depth.
func (dir *DirectoryPage) CanShrink() bool {
	depth := dir.GlobalDepth()
	if depth == 0 {
		return false
	}
	for i := uint32(0); i < dir.Size(); i++ {
		if dir.GetLocalDepth(i) >= depth {
			return false
		}
	}
	return true
}

// DecrGlobalDepth halves the directory. Callers must check CanShrink first;
// halving a directory that still needs its full address width is a contract
// violation.
func (dir *DirectoryPage) DecrGlobalDepth() {
	if !dir.CanShrink() {
		panic(fmt.Errorf("%w: directory cannot shrink", ErrIndexOutOfRange))
	}
	depth := dir.GlobalDepth()
	binary.LittleEndian.PutUint32(dir.data[DIRECTORY_GLOBAL_DEPTH_OFFSET:], depth-1)
}

func (dir *DirectoryPage) setBucketPageId(bucketIdx uint32, pagenum int64) {
	pos := DIRECTORY_PAGE_IDS_OFFSET + int64(bucketIdx)*8
	binary.LittleEndian.PutUint64(dir.data[pos:], uint64(pagenum))
}

func (dir *DirectoryPage) setLocalDepth(bucketIdx uint32, localDepth uint32) {
	dir.data[DIRECTORY_LOCAL_DEPTHS_OFFSET+int64(bucketIdx)] = byte(localDepth)
}

func (dir *DirectoryPage) boundsCheck(bucketIdx uint32) {
	if bucketIdx >= dir.Size() {
		panic(fmt.Errorf("%w: bucket index %d, directory size %d", ErrIndexOutOfRange, bucketIdx, dir.Size()))
	}
}

// Print writes a string representation of the directory page to the specified writer.
func (dir *DirectoryPage) Print(w io.Writer) {
	fmt.Fprintf(w, "directory: global depth %d\n", dir.GlobalDepth())
	for i := uint32(0); i < dir.Size(); i++ {
		fmt.Fprintf(w, "slot %d: bucket page %d, local depth %d\n", i, dir.GetBucketPageId(i), dir.GetLocalDepth(i))
	}
}
