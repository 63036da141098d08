package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// NormFloat64 returns a standard normal sample.
func (r *RNG) NormFloat64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.NormFloat64()
}

// FillUniform fills dst with random values in range [minVal, maxVal).
// Locks only once per call.
func (r *RNG) FillUniform(dst []float64, minVal, maxVal float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float64()*span
	}
}

// Covariance returns a random m x m symmetric positive definite matrix,
// built as AᵀA/m plus a unit diagonal shift.
func (r *RNG) Covariance(m int) *mat.SymDense {
	data := make([]float64, m*m)
	r.mu.Lock()
	for i := range data {
		data[i] = r.rand.NormFloat64()
	}
	r.mu.Unlock()

	a := mat.NewDense(m, m, data)
	cov := mat.NewSymDense(m, nil)
	cov.SymOuterK(1/float64(m), a.T())
	for i := range m {
		cov.SetSym(i, i, cov.At(i, i)+1)
	}
	return cov
}

// CorrelatedCovariance returns the covariance of m unit-variance models
// whose correlation with the reference decays as rho^i. Entries between
// two low-fidelity models use rho^|i-j|.
func CorrelatedCovariance(m int, rho float64) *mat.SymDense {
	cov := mat.NewSymDense(m, nil)
	for i := range m {
		for j := i; j < m; j++ {
			cov.SetSym(i, j, math.Pow(rho, float64(j-i)))
		}
	}
	return cov
}

// DecreasingCosts returns m costs starting at 1 and shrinking by factor.
func DecreasingCosts(m int, factor float64) []float64 {
	costs := make([]float64, m)
	c := 1.0
	for i := range costs {
		costs[i] = c
		c /= factor
	}
	return costs
}

// UniformInputGenerator draws rows of independent uniform inputs.
type UniformInputGenerator struct {
	rng      *RNG
	dims     int
	min, max float64
}

// NewUniformInputGenerator returns a generator of dims-wide rows in [min, max).
func NewUniformInputGenerator(rng *RNG, dims int, minVal, maxVal float64) *UniformInputGenerator {
	return &UniformInputGenerator{rng: rng, dims: dims, min: minVal, max: maxVal}
}

// GenerateSamples returns an n x dims matrix of uniform draws.
func (g *UniformInputGenerator) GenerateSamples(n int) (*mat.Dense, error) {
	if n <= 0 || g.dims <= 0 {
		return nil, fmt.Errorf("testutil: invalid sample shape %dx%d", n, g.dims)
	}
	data := make([]float64, n*g.dims)
	g.rng.FillUniform(data, g.min, g.max)
	return mat.NewDense(n, g.dims, data), nil
}
