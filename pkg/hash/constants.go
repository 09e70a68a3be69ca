package hash

import (
	"errors"

	"hashdb/pkg/entry"
	"hashdb/pkg/pager"
)

/////////////////////////////////////////////////////////////////////////////
////////////////////////// Low-level Constants //////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// The header page always lives at the first page of the database file.
const ROOT_PN int64 = 0

const PAGESIZE int64 = pager.Pagesize

// Sentinel page id for header/directory slots that point at nothing yet.
const INVALID_PAGE_ID int64 = -1

// Number of bits produced by a Hasher.
const HASH_WIDTH uint32 = 32

const ENTRYSIZE int64 = entry.EntrySize

// Header page layout:
//
//	offset 0: maxDepth uint32 (little-endian)
//	offset 8: directoryPageIds [2^maxDepth]int64 (little-endian)
const HEADER_MAX_DEPTH_OFFSET int64 = 0
const HEADER_ARRAY_OFFSET int64 = 8

// Ceiling on a header page's maxDepth: 2^8 directory ids * 8 bytes = 2048
// bytes, which fits after the 8-byte header.
const MAX_HEADER_DEPTH uint32 = 8

// Directory page layout:
//
//	offset 0:   maxDepth uint32 (little-endian)
//	offset 4:   globalDepth uint32 (little-endian)
//	offset 8:   localDepths [2^maxDepth]uint8
//	offset 264: bucketPageIds [2^maxDepth]int64 (little-endian)
const DIRECTORY_MAX_DEPTH_OFFSET int64 = 0
const DIRECTORY_GLOBAL_DEPTH_OFFSET int64 = 4
const DIRECTORY_LOCAL_DEPTHS_OFFSET int64 = 8

// Ceiling on a directory page's maxDepth: 2^8 slots cost 8 + 256 + 256*8 =
// 2312 bytes per page.
const MAX_DIRECTORY_DEPTH uint32 = 8
const DIRECTORY_ARRAY_SIZE uint32 = 1 << MAX_DIRECTORY_DEPTH
const DIRECTORY_PAGE_IDS_OFFSET int64 = DIRECTORY_LOCAL_DEPTHS_OFFSET + int64(DIRECTORY_ARRAY_SIZE)

// Bucket page layout:
//
//	offset 0:  maxSize uint32 (little-endian)
//	offset 8:  occupied bitmap, 4 uint64 words (little-endian)
//	offset 40: readable bitmap, 4 uint64 words (little-endian)
//	offset 72: entries [maxSize]entry (16 bytes each)
const BUCKET_MAX_SIZE_OFFSET int64 = 0
const BUCKET_BITMAP_WORDS int64 = 4
const BUCKET_OCCUPIED_OFFSET int64 = 8
const BUCKET_READABLE_OFFSET int64 = BUCKET_OCCUPIED_OFFSET + BUCKET_BITMAP_WORDS*8
const BUCKET_ARRAY_OFFSET int64 = BUCKET_READABLE_OFFSET + BUCKET_BITMAP_WORDS*8

// Max number of entries that can live in a bucket (251 with 4KB pages).
const MAX_BUCKET_SIZE uint32 = uint32((PAGESIZE - BUCKET_ARRAY_OFFSET) / ENTRYSIZE)

// Defaults used by OpenTable.
const DEFAULT_HEADER_MAX_DEPTH uint32 = 2
const DEFAULT_DIRECTORY_MAX_DEPTH uint32 = MAX_DIRECTORY_DEPTH
const DEFAULT_BUCKET_MAX_SIZE uint32 = MAX_BUCKET_SIZE

// ErrIndexOutOfRange is raised (via panic) when a directory or bucket index
// exceeds the structure's current logical size. Hitting it means the caller's
// index arithmetic is broken, so it is not surfaced as a recoverable error.
var ErrIndexOutOfRange = errors.New("hash: index out of range")

// ErrKeyNotFound is returned by index-level lookups that come up empty.
var ErrKeyNotFound = errors.New("hash: key not found")

// ErrNotInserted is returned by index-level inserts that the table refused
// (exact duplicate, or no capacity left at the directory depth ceiling).
var ErrNotInserted = errors.New("hash: entry not inserted")
