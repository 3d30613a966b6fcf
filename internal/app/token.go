package app

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
	"time"
)

// TokenLength is the number of hex characters in a player auth token.
const TokenLength = 32

// TokenGenerator mints auth tokens: two independently seeded 64-bit PRNG
// draws rendered as 32 lowercase hex characters.
type TokenGenerator struct {
	hi *mrand.Rand
	lo *mrand.Rand
}

// NewTokenGenerator seeds both streams from OS entropy.
func NewTokenGenerator() *TokenGenerator {
	return NewSeededTokenGenerator(entropySeed(), entropySeed())
}

// NewSeededTokenGenerator pins both streams, for reproducible tests.
func NewSeededTokenGenerator(hiSeed, loSeed int64) *TokenGenerator {
	return &TokenGenerator{
		hi: mrand.New(mrand.NewSource(hiSeed)),
		lo: mrand.New(mrand.NewSource(loSeed)),
	}
}

// Next returns a fresh token. Uniqueness is not guaranteed here; the caller
// retries while the token is already in use.
func (g *TokenGenerator) Next() string {
	return fmt.Sprintf("%016x%016x", g.hi.Uint64(), g.lo.Uint64())
}

func entropySeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Out of OS entropy; the clock still gives distinct seeds.
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
