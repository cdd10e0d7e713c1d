package sim

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// Stream names one of the world's independent random sources.
type Stream string

const (
	// StreamTraffic drives car decisions: destinations, axis choice, travel
	// jitter, dwell times and random steps. Seeded with the configured seed as-is.
	StreamTraffic Stream = "traffic"

	// StreamLayout places spots for the random layout.
	StreamLayout Stream = "layout"
)

// PartitionedRNG hands out one seeded *rand.Rand per Stream. Draws on one stream
// never shift another, so a world's layout can change without changing what its
// cars do for the same seed.
//
// Not safe for concurrent use.
type PartitionedRNG struct {
	seed    int64
	streams map[Stream]*rand.Rand
}

// NewPartitionedRNG creates the streams for seed. They are built on first use.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{seed: seed, streams: make(map[Stream]*rand.Rand, 2)}
}

// Traffic returns the car decision stream.
func (p *PartitionedRNG) Traffic() *rand.Rand { return p.stream(StreamTraffic) }

// Layout returns the spot placement stream.
func (p *PartitionedRNG) Layout() *rand.Rand { return p.stream(StreamLayout) }

func (p *PartitionedRNG) stream(s Stream) *rand.Rand {
	if r, ok := p.streams[s]; ok {
		return r
	}
	r := rand.New(rand.NewSource(streamSeed(p.seed, s)))
	p.streams[s] = r
	return r
}

// streamSeed is seed itself for traffic and seed XOR fnv1a(name) otherwise.
func streamSeed(seed int64, s Stream) int64 {
	if s == StreamTraffic {
		return seed
	}
	h := fnv.New64a()
	h.Write([]byte(s))
	return seed ^ int64(h.Sum64())
}

// logNormal draws exp(N(0,1)*ln(spread) + ln(mean)); mean is the median of the
// distribution and spread its multiplicative standard deviation.
func logNormal(rng *rand.Rand, mean, spread float64) float64 {
	return math.Exp(rng.NormFloat64()*math.Log(spread) + math.Log(mean))
}
