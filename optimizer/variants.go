package optimizer

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/mxmc/model"
)

// Variant supplies the model-family specific pieces of an ACV optimizer.
//
// For ratios r (one per auxiliary model), Weights returns the symmetric
// matrix F and vector F0 of the variance formula. WeightsGrad returns their
// derivatives with respect to r[k]. Allocation lays out integer sample
// counts n = [n_0, n_1, ...] as a compact allocation.
type Variant interface {
	Method() string
	Weights(r []float64) (F *mat.SymDense, F0 []float64)
	WeightsGrad(r []float64, k int) (dF *mat.SymDense, dF0 []float64)
	Allocation(sampleNums []int) [][]int
}

// g is the fraction of model samples not shared with the reference.
func g(r float64) float64 { return 1 - 1/r }

// dg is dg/dr.
func dg(r float64) float64 { return 1 / (r * r) }

// ISVariant is ACV with independent samples: every auxiliary model reuses
// the reference samples for its first term and draws its own extra samples
// for the second.
type ISVariant struct{}

// Method returns model.MethodACVIS.
func (ISVariant) Method() string { return model.MethodACVIS }

// Weights returns F_ii = g_i, F_ij = g_i g_j and F0_i = g_i.
func (ISVariant) Weights(r []float64) (*mat.SymDense, []float64) {
	m := len(r)
	F := mat.NewSymDense(m, nil)
	F0 := make([]float64, m)
	for i := 0; i < m; i++ {
		gi := g(r[i])
		F0[i] = gi
		F.SetSym(i, i, gi)
		for j := i + 1; j < m; j++ {
			F.SetSym(i, j, gi*g(r[j]))
		}
	}
	return F, F0
}

// WeightsGrad differentiates Weights with respect to r[k].
func (ISVariant) WeightsGrad(r []float64, k int) (*mat.SymDense, []float64) {
	m := len(r)
	dF := mat.NewSymDense(m, nil)
	dF0 := make([]float64, m)
	d := dg(r[k])
	dF0[k] = d
	for j := 0; j < m; j++ {
		if j == k {
			dF.SetSym(k, k, d)
			continue
		}
		dF.SetSym(k, j, d*g(r[j]))
	}
	return dF, dF0
}

// Allocation gives the n_0 shared samples to every column and each
// auxiliary model n_i - n_0 samples of its own.
func (ISVariant) Allocation(n []int) [][]int {
	width := 2 * len(n)
	rows := make([][]int, 0, len(n))

	first := make([]int, width)
	first[0] = n[0]
	for c := 1; c < width; c++ {
		first[c] = 1
	}
	rows = append(rows, first)

	for i := 1; i < len(n); i++ {
		row := make([]int, width)
		row[0] = n[i] - n[0]
		row[2*i+1] = 1
		rows = append(rows, row)
	}
	return rows
}

// MFVariant is multifidelity Monte Carlo: sample sets are nested, so the
// first term of every auxiliary model is the reference set and its second
// term is a prefix of the samples of the next cheaper model.
type MFVariant struct{}

// Method returns model.MethodACVMF.
func (MFVariant) Method() string { return model.MethodACVMF }

// Weights returns F_ij = min(g_i, g_j) and F0_i = g_i.
func (MFVariant) Weights(r []float64) (*mat.SymDense, []float64) {
	m := len(r)
	F := mat.NewSymDense(m, nil)
	F0 := make([]float64, m)
	for i := 0; i < m; i++ {
		F0[i] = g(r[i])
		for j := i; j < m; j++ {
			F.SetSym(i, j, g(min(r[i], r[j])))
		}
	}
	return F, F0
}

// WeightsGrad differentiates Weights with respect to r[k]. The derivative
// of min(g_i, g_j) goes to i when r_i <= r_j.
func (MFVariant) WeightsGrad(r []float64, k int) (*mat.SymDense, []float64) {
	m := len(r)
	dF := mat.NewSymDense(m, nil)
	dF0 := make([]float64, m)
	d := dg(r[k])
	dF0[k] = d
	for j := 0; j < m; j++ {
		if j == k {
			dF.SetSym(k, k, d)
			continue
		}
		if argminIsFirst(r, k, j) {
			dF.SetSym(k, j, d)
		}
	}
	return dF, dF0
}

func argminIsFirst(r []float64, i, j int) bool {
	if r[i] == r[j] {
		return i < j
	}
	return r[i] < r[j]
}

// Allocation builds nested groups: after the n_0 shared rows, auxiliary
// models sorted by sample count receive growing suffixes of extra samples.
func (MFVariant) Allocation(n []int) [][]int {
	width := 2 * len(n)
	rows := make([][]int, 0, len(n))

	first := make([]int, width)
	first[0] = n[0]
	for c := 1; c < width; c++ {
		first[c] = 1
	}
	rows = append(rows, first)

	order := make([]int, 0, len(n)-1)
	for i := 1; i < len(n); i++ {
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool { return n[order[a]] < n[order[b]] })

	prev := n[0]
	for pos, i := range order {
		row := make([]int, width)
		row[0] = n[i] - prev
		for _, j := range order[pos:] {
			row[2*j+1] = 1
		}
		rows = append(rows, row)
		prev = n[i]
	}
	return rows
}
