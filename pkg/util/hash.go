package util

import (
	farm "github.com/dgryski/go-farm"
)

const SEED uint64 = 0xe17a1465

// HashU64 is the murmur3 finalizer. Every input bit affects the low bits,
// which is what power-of-two tables mask on.
func HashU64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func HashBytes(data []byte) uint64 {
	return farm.Hash64WithSeed(data, SEED)
}
