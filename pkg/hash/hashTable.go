package hash

import (
	"errors"
	"fmt"

	"hashdb/pkg/entry"
	"hashdb/pkg/pager"
)

// A HashTable is a disk-resident index that uses extendible hashing for
// quick lookups. All durable state lives in pages owned by the pager; the
// struct itself only carries configuration, so concurrent calls coordinate
// purely through page latches.
//
// Latches are always acquired top-down: header, then directory, then bucket.
// A parent's latch is released as soon as the child is latched, except during
// a split or merge, where the directory write latch is held across the whole
// redistribution so no thread can observe a torn mapping.
type HashTable struct {
	pager             *pager.Pager // Pager backing this table
	cmp               entry.Comparator
	hasher            Hasher
	headerPN          int64  // Pagenum of the header page
	directoryMaxDepth uint32 // Ceiling on every directory's global depth
	bucketMaxSize     uint32 // Entry capacity of every bucket
}

// NewHashTable creates a table on the given pager, or resumes the table
// already stored in it. On creation the header page is formatted at the
// file's first page; directories and buckets are allocated lazily on first
// insert into their hash range.
func NewHashTable(p *pager.Pager, cmp entry.Comparator, hasher Hasher,
	headerMaxDepth uint32, directoryMaxDepth uint32, bucketMaxSize uint32) (*HashTable, error) {
	if headerMaxDepth > MAX_HEADER_DEPTH {
		return nil, fmt.Errorf("header max depth %d exceeds ceiling %d", headerMaxDepth, MAX_HEADER_DEPTH)
	}
	if directoryMaxDepth > MAX_DIRECTORY_DEPTH {
		return nil, fmt.Errorf("directory max depth %d exceeds ceiling %d", directoryMaxDepth, MAX_DIRECTORY_DEPTH)
	}
	if bucketMaxSize == 0 || bucketMaxSize > MAX_BUCKET_SIZE {
		return nil, fmt.Errorf("bucket max size %d out of range [1, %d]", bucketMaxSize, MAX_BUCKET_SIZE)
	}
	table := &HashTable{
		pager:             p,
		cmp:               cmp,
		hasher:            hasher,
		headerPN:          ROOT_PN,
		directoryMaxDepth: directoryMaxDepth,
		bucketMaxSize:     bucketMaxSize,
	}
	if p.GetNumPages() == 0 {
		guard, err := p.NewPageGuarded()
		if err != nil {
			return nil, err
		}
		HeaderFrom(guard.GetDataMut()).Init(headerMaxDepth)
		guard.Drop()
	}
	return table, nil
}

// GetPager returns the pager backing this table.
func (table *HashTable) GetPager() *pager.Pager {
	return table.pager
}

// GetValue returns every value stored under the given key, or an empty
// result if the key's hash range has no directory or bucket yet.
func (table *HashTable) GetValue(key int64) ([]int64, error) {
	hash := table.hasher(key)
	headerGuard, err := table.pager.FetchPageRead(table.headerPN)
	if err != nil {
		return nil, err
	}
	header := HeaderFrom(headerGuard.GetData())
	directoryPN := header.GetDirectoryPageId(header.HashToDirectoryIndex(hash))
	if directoryPN == INVALID_PAGE_ID {
		headerGuard.Drop()
		return nil, nil
	}
	directoryGuard, err := table.pager.FetchPageRead(directoryPN)
	headerGuard.Drop()
	if err != nil {
		return nil, err
	}
	dir := DirectoryFrom(directoryGuard.GetData())
	bucketPN := dir.GetBucketPageId(dir.HashToBucketIndex(hash))
	if bucketPN == INVALID_PAGE_ID {
		directoryGuard.Drop()
		return nil, nil
	}
	bucketGuard, err := table.pager.FetchPageRead(bucketPN)
	directoryGuard.Drop()
	if err != nil {
		return nil, err
	}
	values := BucketFrom(bucketGuard.GetData()).GetValue(key, table.cmp)
	bucketGuard.Drop()
	return values, nil
}

// Insert adds the (key, value) pair, splitting buckets and growing the
// directory as needed. It returns false when the pair is an exact duplicate,
// when the directory is already at its depth ceiling and the target bucket
// cannot split further, or when the pager has no page to spare for a split.
// A false return leaves the table's contents unchanged.
func (table *HashTable) Insert(key int64, value int64) (bool, error) {
	hash := table.hasher(key)
	headerGuard, err := table.pager.FetchPageRead(table.headerPN)
	if err != nil {
		return false, err
	}
	header := HeaderFrom(headerGuard.GetData())
	directoryPN := header.GetDirectoryPageId(header.HashToDirectoryIndex(hash))
	headerGuard.Drop()
	if directoryPN == INVALID_PAGE_ID {
		return table.insertToNewDirectory(hash, key, value)
	}

	// Optimistic path: a directory read latch is enough when the bucket
	// has room.
	directoryGuard, err := table.pager.FetchPageRead(directoryPN)
	if err != nil {
		return false, err
	}
	dir := DirectoryFrom(directoryGuard.GetData())
	bucketPN := dir.GetBucketPageId(dir.HashToBucketIndex(hash))
	bucketGuard, err := table.pager.FetchPageWrite(bucketPN)
	directoryGuard.Drop()
	if err != nil {
		return false, err
	}
	bucket := BucketFrom(bucketGuard.GetDataMut())
	if !bucket.IsFull() {
		inserted := bucket.Insert(key, value, table.cmp)
		bucketGuard.Drop()
		return inserted, nil
	}
	if containsValue(bucket.GetValue(key, table.cmp), value) {
		// Exact duplicate of an entry in a full bucket; no point splitting.
		bucketGuard.Drop()
		return false, nil
	}
	bucketGuard.Drop()
	return table.insertWithSplit(directoryPN, hash, key, value)
}

// insertToNewDirectory handles the first insert into a header slot: it
// allocates and registers a directory page along with its initial bucket.
// The header slot is only set after both pages are initialized, so a failed
// allocation never leaves the header pointing at garbage.
func (table *HashTable) insertToNewDirectory(hash uint32, key int64, value int64) (bool, error) {
	headerGuard, err := table.pager.FetchPageWrite(table.headerPN)
	if err != nil {
		return false, err
	}
	defer headerGuard.Drop()
	header := HeaderFrom(headerGuard.GetDataMut())
	directoryIdx := header.HashToDirectoryIndex(hash)
	if pn := header.GetDirectoryPageId(directoryIdx); pn != INVALID_PAGE_ID {
		// Another thread created the directory first; retry through the
		// regular path.
		headerGuard.Drop()
		return table.insertWithSplit(pn, hash, key, value)
	}

	directoryBasic, err := table.pager.NewPageGuarded()
	if err != nil {
		return false, allocFailure(err)
	}
	directoryGuard := directoryBasic.UpgradeWrite()
	defer directoryGuard.Drop()
	dir := DirectoryFrom(directoryGuard.GetDataMut())
	dir.Init(table.directoryMaxDepth)

	bucketBasic, err := table.pager.NewPageGuarded()
	if err != nil {
		// Unwind: the directory page was never published, release it.
		directoryPN := directoryGuard.PageNum()
		directoryGuard.Drop()
		if deleteErr := table.pager.DeletePage(directoryPN); deleteErr != nil {
			return false, deleteErr
		}
		return false, allocFailure(err)
	}
	bucketGuard := bucketBasic.UpgradeWrite()
	defer bucketGuard.Drop()
	bucket := BucketFrom(bucketGuard.GetDataMut())
	bucket.Init(table.bucketMaxSize)

	dir.SetBucketPageId(0, bucketGuard.PageNum())
	header.SetDirectoryPageId(directoryIdx, directoryGuard.PageNum())
	return bucket.Insert(key, value, table.cmp), nil
}

// insertWithSplit retries the insert under the directory's write latch,
// splitting the target bucket until it has room. The loop is bounded: every
// iteration raises the target bucket's local depth by one, and the insert
// fails once the directory's depth ceiling blocks further splitting.
func (table *HashTable) insertWithSplit(directoryPN int64, hash uint32, key int64, value int64) (bool, error) {
	directoryGuard, err := table.pager.FetchPageWrite(directoryPN)
	if err != nil {
		return false, err
	}
	defer directoryGuard.Drop()
	dir := DirectoryFrom(directoryGuard.GetDataMut())

	for attempt := uint32(0); attempt <= dir.MaxDepth(); attempt++ {
		bucketIdx := dir.HashToBucketIndex(hash)
		bucketPN := dir.GetBucketPageId(bucketIdx)
		bucketGuard, err := table.pager.FetchPageWrite(bucketPN)
		if err != nil {
			return false, err
		}
		bucket := BucketFrom(bucketGuard.GetDataMut())
		if !bucket.IsFull() {
			inserted := bucket.Insert(key, value, table.cmp)
			bucketGuard.Drop()
			return inserted, nil
		}

		localDepth := dir.GetLocalDepth(bucketIdx)
		if localDepth == dir.GlobalDepth() {
			if dir.GlobalDepth() >= dir.MaxDepth() {
				// Depth ceiling: the bucket cannot split again.
				bucketGuard.Drop()
				return false, nil
			}
			dir.IncrGlobalDepth()
			// The slot index may have gained a high bit.
			bucketIdx = dir.HashToBucketIndex(hash)
		}

		// Allocate the sibling before touching any mapping, so an
		// exhausted pager fails the insert without a torn directory.
		siblingBasic, err := table.pager.NewPageGuarded()
		if err != nil {
			bucketGuard.Drop()
			return false, allocFailure(err)
		}
		siblingGuard := siblingBasic.UpgradeWrite()
		sibling := BucketFrom(siblingGuard.GetDataMut())
		sibling.Init(table.bucketMaxSize)
		siblingPN := siblingGuard.PageNum()

		// Repoint every slot sharing the old bucket: all of them move to
		// local depth localDepth+1, and the half on the split-image side of
		// the newly significant bit gets the sibling page.
		newLocalDepth := localDepth + 1
		bit := uint32(1) << localDepth
		for i := uint32(0); i < dir.Size(); i++ {
			if dir.GetBucketPageId(i) != bucketPN {
				continue
			}
			dir.SetLocalDepth(i, newLocalDepth)
			if i&bit != bucketIdx&bit {
				dir.SetBucketPageId(i, siblingPN)
			}
		}

		// Redistribute by rehashing every entry through the updated mapping.
		entries := bucket.Entries()
		bucket.Clear()
		for _, e := range entries {
			if dir.GetBucketPageId(dir.HashToBucketIndex(table.hasher(e.Key))) == siblingPN {
				sibling.Insert(e.Key, e.Value, table.cmp)
			} else {
				bucket.Insert(e.Key, e.Value, table.cmp)
			}
		}
		siblingGuard.Drop()
		bucketGuard.Drop()
		// Retry the original pair against the refreshed mapping.
	}
	return false, nil
}

// Remove deletes the exact (key, value) pair. When the removal leaves the
// bucket empty, the bucket is merged into its buddy (the slot it split from)
// as long as their local depths match, cascading upwards; the directory is
// then halved while every slot's local depth allows it. Freed bucket pages go
// back to the pager.
func (table *HashTable) Remove(key int64, value int64) (bool, error) {
	hash := table.hasher(key)
	headerGuard, err := table.pager.FetchPageRead(table.headerPN)
	if err != nil {
		return false, err
	}
	header := HeaderFrom(headerGuard.GetData())
	directoryPN := header.GetDirectoryPageId(header.HashToDirectoryIndex(hash))
	headerGuard.Drop()
	if directoryPN == INVALID_PAGE_ID {
		return false, nil
	}
	// A removal may rewrite the mapping, so take the directory latch
	// exclusively up front.
	directoryGuard, err := table.pager.FetchPageWrite(directoryPN)
	if err != nil {
		return false, err
	}
	defer directoryGuard.Drop()
	dir := DirectoryFrom(directoryGuard.GetData())
	bucketPN := dir.GetBucketPageId(dir.HashToBucketIndex(hash))
	bucketGuard, err := table.pager.FetchPageWrite(bucketPN)
	if err != nil {
		return false, err
	}
	bucket := BucketFrom(bucketGuard.GetDataMut())
	removed := bucket.Remove(key, value, table.cmp)
	empty := bucket.IsEmpty()
	bucketGuard.Drop()
	if !removed {
		return false, nil
	}
	if empty {
		if err := table.mergeAndShrink(DirectoryFrom(directoryGuard.GetDataMut()), hash); err != nil {
			return false, err
		}
	}
	return true, nil
}

// mergeAndShrink folds empty buckets into their buddies and then halves the
// directory as far as CanShrink permits. The caller holds the directory's
// write latch, so no other thread can route into the buckets being folded.
func (table *HashTable) mergeAndShrink(dir *DirectoryPage, hash uint32) error {
	for {
		bucketIdx := dir.HashToBucketIndex(hash)
		localDepth := dir.GetLocalDepth(bucketIdx)
		if localDepth == 0 {
			break
		}
		bucketPN := dir.GetBucketPageId(bucketIdx)
		bucketGuard, err := table.pager.FetchPageRead(bucketPN)
		if err != nil {
			return err
		}
		empty := BucketFrom(bucketGuard.GetData()).IsEmpty()
		bucketGuard.Drop()
		if !empty {
			break
		}
		buddyIdx := bucketIdx ^ (1 << (localDepth - 1))
		if dir.GetLocalDepth(buddyIdx) != localDepth {
			break
		}
		buddyPN := dir.GetBucketPageId(buddyIdx)
		if buddyPN == bucketPN {
			break
		}
		for i := uint32(0); i < dir.Size(); i++ {
			if dir.GetBucketPageId(i) == bucketPN {
				dir.SetBucketPageId(i, buddyPN)
			}
			if dir.GetBucketPageId(i) == buddyPN {
				dir.SetLocalDepth(i, localDepth-1)
			}
		}
		// A concurrent reader may still hold a pin on the folded bucket
		// (pins are taken before latches). The merge has already committed,
		// so skip the free and leave the pagenum allocated.
		if err := table.pager.DeletePage(bucketPN); err != nil && !errors.Is(err, pager.ErrPagePinned) {
			return err
		}
		// The surviving buddy may itself be empty; keep folding.
	}
	for dir.CanShrink() {
		dir.DecrGlobalDepth()
	}
	return nil
}

// GetGlobalDepth returns the global depth of the directory the key's hash
// routes to, or 0 if that directory does not exist yet.
func (table *HashTable) GetGlobalDepth(key int64) (uint32, error) {
	depth, _, err := table.depths(key)
	return depth, err
}

// GetLocalDepth returns the local depth of the bucket the key's hash routes
// to, or 0 if the key's directory does not exist yet.
func (table *HashTable) GetLocalDepth(key int64) (uint32, error) {
	_, depth, err := table.depths(key)
	return depth, err
}

func (table *HashTable) depths(key int64) (uint32, uint32, error) {
	hash := table.hasher(key)
	headerGuard, err := table.pager.FetchPageRead(table.headerPN)
	if err != nil {
		return 0, 0, err
	}
	header := HeaderFrom(headerGuard.GetData())
	directoryPN := header.GetDirectoryPageId(header.HashToDirectoryIndex(hash))
	headerGuard.Drop()
	if directoryPN == INVALID_PAGE_ID {
		return 0, 0, nil
	}
	directoryGuard, err := table.pager.FetchPageRead(directoryPN)
	if err != nil {
		return 0, 0, err
	}
	dir := DirectoryFrom(directoryGuard.GetData())
	global := dir.GlobalDepth()
	local := dir.GetLocalDepth(dir.HashToBucketIndex(hash))
	directoryGuard.Drop()
	return global, local, nil
}

// bucketPagenums returns the distinct pagenums of every allocated bucket, in
// header/directory slot order.
func (table *HashTable) bucketPagenums() ([]int64, error) {
	headerGuard, err := table.pager.FetchPageRead(table.headerPN)
	if err != nil {
		return nil, err
	}
	defer headerGuard.Drop()
	header := HeaderFrom(headerGuard.GetData())
	seen := make(map[int64]bool)
	var pagenums []int64
	for i := uint32(0); i < header.MaxSize(); i++ {
		directoryPN := header.GetDirectoryPageId(i)
		if directoryPN == INVALID_PAGE_ID {
			continue
		}
		directoryGuard, err := table.pager.FetchPageRead(directoryPN)
		if err != nil {
			return nil, err
		}
		dir := DirectoryFrom(directoryGuard.GetData())
		for j := uint32(0); j < dir.Size(); j++ {
			pn := dir.GetBucketPageId(j)
			if pn == INVALID_PAGE_ID || seen[pn] {
				continue
			}
			seen[pn] = true
			pagenums = append(pagenums, pn)
		}
		directoryGuard.Drop()
	}
	return pagenums, nil
}

// allocFailure maps pager exhaustion onto the boolean failure contract;
// anything else is a real fault.
func allocFailure(err error) error {
	if errors.Is(err, pager.ErrRanOutOfPages) {
		return nil
	}
	return err
}

func containsValue(values []int64, value int64) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
