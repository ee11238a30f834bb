package interview

// Deterministic randomness for the heuristic interviewer. Session identifiers
// are hashed with FNV-1a into a splitmix64 stream, so the same session always
// sees the same question order, opener and progress jitter regardless of
// process restarts or Go version. Do not swap in math/rand here: its output
// is not stable across releases, and the sequences below are pinned by tests.

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// hashSeed derives a 64-bit seed from a session identifier via FNV-1a.
func hashSeed(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

// seededRand is a splitmix64 generator.
type seededRand struct {
	state uint64
}

func newSeededRand(seed uint64) *seededRand {
	return &seededRand{state: seed}
}

func (r *seededRand) next() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// intn returns a value in [0, n). The modulo bias is irrelevant at the tiny
// ranges used here.
func (r *seededRand) intn(n int) int {
	return int(r.next() % uint64(n))
}

// float64 returns a value in [0, 1) with 53 bits of precision.
func (r *seededRand) float64() float64 {
	return float64(r.next()>>11) / (1 << 53)
}

// perm returns a Fisher-Yates permutation of [0, n).
func (r *seededRand) perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// questionOrder returns the question permutation for a session.
func questionOrder(sessionID string, n int) []int {
	return newSeededRand(hashSeed(sessionID)).perm(n)
}

// pickIndex returns a stable index in [0, n) for a session, used to select
// the intro opener.
func pickIndex(sessionID string, n int) int {
	return newSeededRand(hashSeed(sessionID)).intn(n)
}
