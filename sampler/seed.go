package sampler

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"time"
)

// entropyRead sources seed bytes; swapped out by tests to exercise the
// fallback path.
var entropyRead = rand.Read

// RandomSeed generates a random non-negative int64 seed for non-reproducible
// runs. It uses crypto/rand so independent unseeded runs do not correlate;
// if the entropy source fails the seed falls back to the wall clock, which
// still keeps independent runs distinct.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := entropyRead(buf[:]); err != nil {
		return int64(uint64(time.Now().UnixNano()) &^ (1 << 63))
	}

	// Mask the sign bit so the seed is always non-negative.
	return int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
}

// NewRNG returns a pseudo-random generator seeded with the given value.
// Two generators built from the same seed produce identical draw sequences.
func NewRNG(seed int64) *mathrand.Rand {
	return mathrand.New(mathrand.NewSource(seed))
}
