package hash_test

import (
	"testing"

	"hashdb/pkg/hash"
)

// The table persists across reopens, so hashers must be deterministic, and
// the two supported hashers must not be silently interchangeable.
func TestHashers(t *testing.T) {
	differ := false
	for k := int64(0); k < 1000; k++ {
		if hash.XxHasher(k) != hash.XxHasher(k) || hash.MurmurHasher(k) != hash.MurmurHasher(k) {
			t.Fatalf("hasher not deterministic for key %d", k)
		}
		if hash.XxHasher(k) != hash.MurmurHasher(k) {
			differ = true
		}
	}
	if !differ {
		t.Fatal("expected xxHash and MurmurHash3 to disagree somewhere")
	}
}

// A table built on the alternate hasher behaves the same as the default.
func TestMurmurTable(t *testing.T) {
	table := setupSmallTableWithHasher(t, hash.MurmurHasher, 2, 4)
	for i := int64(0); i < 20; i++ {
		inserted, err := table.Insert(i, i)
		if err != nil {
			t.Fatalf("Insert %d failed: %s", i, err)
		}
		if !inserted {
			// The directory ceiling is small; refusals are legal once full.
			continue
		}
	}
	for i := int64(0); i < 20; i++ {
		values, err := table.GetValue(i)
		if err != nil {
			t.Fatalf("GetValue(%d) failed: %s", i, err)
		}
		for _, v := range values {
			if v != i {
				t.Fatalf("expected value %d under key %d, got %d", i, i, v)
			}
		}
	}
}
