package app

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// Rand is the randomness the match draws from: dice, auto placements,
// discards and steals.
type Rand interface {
	Intn(n int) int
}

// NewRand returns a math/rand source seeded from crypto/rand, falling back
// to the clock.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(Seed()))
}

// Seed returns a random seed.
func Seed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
