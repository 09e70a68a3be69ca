package utils

import "math/rand"

// KeyValuePair is a pair of key and value int64s
type KeyValuePair struct {
	Key int64
	Val int64
}

// GenerateRandomKeyValuePairs generates n random key-value pairs with unique keys.
// Returns the n pairs in a slice along with a map from each generated key to its value.
func GenerateRandomKeyValuePairs(n int64) ([]KeyValuePair, map[int64]int64) {
	pairs := make([]KeyValuePair, n)
	answerKey := make(map[int64]int64, n)
	for i := int64(0); i < n; i++ {
		key := rand.Int63()
		for _, taken := answerKey[key]; taken; _, taken = answerKey[key] {
			key = rand.Int63()
		}
		val := rand.Int63()
		answerKey[key] = val
		pairs[i] = KeyValuePair{Key: key, Val: val}
	}
	return pairs, answerKey
}
