/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// RandSource supplies uniform integers in [0, n). *rand.Rand from math/rand/v2
// satisfies it.
type RandSource interface {
	IntN(n int) int
}

// NewRand returns a deterministic source derived from seed.
func NewRand(seed int64) *mrand.Rand {
	u := uint64(seed)
	return mrand.New(mrand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// newSeededRand seeds a PCG source from crypto/rand for production games.
func newSeededRand() *mrand.Rand {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return NewRand(int64(binary.LittleEndian.Uint64(b[:])))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Shuffle permutes s in place with a backward Fisher-Yates walk.
func Shuffle[T any](s []T, r RandSource) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
