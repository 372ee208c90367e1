package dicechess

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// countingSource counts draws so a restored session can fast-forward to the same
// point in the stream.
type countingSource struct {
	src   rand.Source64
	draws uint64
}

func newCountingSource(seed int64, skip uint64) *countingSource {
	cs := &countingSource{src: rand.NewSource(seed).(rand.Source64)}
	for cs.draws < skip {
		cs.Uint64()
	}
	return cs
}

func (c *countingSource) Int63() int64 {
	c.draws++
	return c.src.Int63()
}

func (c *countingSource) Uint64() uint64 {
	c.draws++
	return c.src.Uint64()
}

func (c *countingSource) Seed(seed int64) {
	c.draws = 0
	c.src.Seed(seed)
}
