package machine

import "math/rand"

// rngStream is one guest-addressable PRNG stream (spec §3 "rngs", §4.6
// SetSeed/RandomInt/RandomIntRange). No example repo in the retrieval pack
// imports a third-party PRNG; math/rand's source interface already gives
// us the per-stream, explicitly-seeded determinism spec §8's "PRNG
// determinism" scenario requires, so wrapping it directly (rather than
// adopting an unrelated dependency) is the honest choice here.
type rngStream struct {
	r *rand.Rand
}

// seedFor computes the deterministic 64-bit seed for stream id, per the
// formula in spec §4.6: derived from the stream id alone, independent of
// whatever value accompanies the SetSeed syscall.
func seedFor(id uint32) int64 {
	v := (uint64(id)<<32 | uint64(id)) ^ (uint64(id) << 16)
	return int64(v)
}

func newRNGStream(seed int64) *rngStream {
	return &rngStream{r: rand.New(rand.NewSource(seed))}
}

// streamFor returns the stream for id, creating it from a zero seed if it
// doesn't exist yet (spec §4.6 RandomInt: "creating it from a zero seed if
// absent").
func (m *Machine) streamFor(id uint32) *rngStream {
	s, ok := m.rngs[id]
	if !ok {
		s = newRNGStream(0)
		m.rngs[id] = s
	}
	return s
}

func (m *Machine) setSeed(id uint32) {
	m.rngs[id] = newRNGStream(seedFor(id))
}

func (m *Machine) randomInt(id uint32) uint32 {
	return m.streamFor(id).r.Uint32()
}

func (m *Machine) randomIntRange(id uint32, bound uint32) uint32 {
	if bound == 0 {
		return 0
	}
	return uint32(m.streamFor(id).r.Int63n(int64(bound)))
}

func (m *Machine) randomFloat(id uint32) float32 {
	return m.streamFor(id).r.Float32()
}

func (m *Machine) randomDouble(id uint32) float64 {
	return m.streamFor(id).r.Float64()
}
