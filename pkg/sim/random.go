package sim

import (
	"time"

	"github.com/MichaelTJones/pcg"
)

// Random supplies the uniform samples used for altitude and speed changes.
type Random interface {
	// Uniform returns a value in [min, max).
	Uniform(min, max float64) float64
}

// pcgStream is the PCG stream selector used for every seed.
const pcgStream = 0xda3e39cb94b95bdb

// PCGRandom is a seedable Random backed by a PCG32 generator.
type PCGRandom struct {
	r *pcg.PCG32
}

// NewPCGRandom returns a generator seeded with seed. Equal seeds yield equal sequences.
func NewPCGRandom(seed uint64) *PCGRandom {
	r := pcg.NewPCG32()
	r.Seed(seed, pcgStream)
	return &PCGRandom{r: r}
}

// NewTimeSeededRandom returns a generator seeded from the wall clock.
func NewTimeSeededRandom() *PCGRandom {
	return NewPCGRandom(uint64(time.Now().UnixNano()))
}

// Uniform implements Random.
func (p *PCGRandom) Uniform(min, max float64) float64 {
	return min + (max-min)*float64(p.r.Random())/(1<<32)
}
