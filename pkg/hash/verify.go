package hash

// IsHash checks the extendible hashing invariants of the whole index:
// every directory's global depth is within its ceiling, every slot's local
// depth is at most the global depth, slots that agree on their low localDepth
// bits share a bucket page (and slots sharing a bucket page agree on local
// depth), and every live entry hashes back to the bucket holding it.
// A violation returns (false, nil); errors are page faults only.
func IsHash(index *HashIndex) (bool, error) {
	table := index.GetTable()
	headerGuard, err := table.pager.FetchPageRead(table.headerPN)
	if err != nil {
		return false, err
	}
	defer headerGuard.Drop()
	header := HeaderFrom(headerGuard.GetData())
	for i := uint32(0); i < header.MaxSize(); i++ {
		directoryPN := header.GetDirectoryPageId(i)
		if directoryPN == INVALID_PAGE_ID {
			continue
		}
		ok, err := table.verifyDirectory(directoryPN)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (table *HashTable) verifyDirectory(directoryPN int64) (bool, error) {
	directoryGuard, err := table.pager.FetchPageRead(directoryPN)
	if err != nil {
		return false, err
	}
	defer directoryGuard.Drop()
	dir := DirectoryFrom(directoryGuard.GetData())
	globalDepth := dir.GlobalDepth()
	if globalDepth > dir.MaxDepth() {
		return false, nil
	}
	for i := uint32(0); i < dir.Size(); i++ {
		localDepth := dir.GetLocalDepth(i)
		if localDepth > globalDepth {
			return false, nil
		}
		pn := dir.GetBucketPageId(i)
		if pn == INVALID_PAGE_ID {
			continue
		}
		// Every slot sharing this slot's low localDepth bits must point at
		// the same bucket with the same local depth.
		mask := (uint32(1) << localDepth) - 1
		for j := uint32(0); j < dir.Size(); j++ {
			if j&mask != i&mask {
				continue
			}
			if dir.GetBucketPageId(j) != pn || dir.GetLocalDepth(j) != localDepth {
				return false, nil
			}
		}
	}
	// Check that all live entries hash back to the bucket holding them.
	seen := make(map[int64]bool)
	for i := uint32(0); i < dir.Size(); i++ {
		pn := dir.GetBucketPageId(i)
		if pn == INVALID_PAGE_ID || seen[pn] {
			continue
		}
		seen[pn] = true
		bucketGuard, err := table.pager.FetchPageRead(pn)
		if err != nil {
			return false, err
		}
		entries := BucketFrom(bucketGuard.GetData()).Entries()
		bucketGuard.Drop()
		for _, e := range entries {
			hash := table.hasher(e.Key)
			if dir.GetBucketPageId(dir.HashToBucketIndex(hash)) != pn {
				return false, nil
			}
		}
	}
	return true, nil
}
