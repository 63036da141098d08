// Package testutil provides testing utilities for mxmc.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe random source plus helpers for building
// random model ensembles and input generators.
//
// # Random Problems
//
//	rng := testutil.NewRNG(seed)
//	cov := rng.Covariance(4)          // symmetric positive definite
//	costs := testutil.DecreasingCosts(4, 10) // 1, 0.1, 0.01, 0.001
//
// # Input Generation
//
//	gen := testutil.NewUniformInputGenerator(rng, 3, 0, 1)
//	err := alloc.GenerateSamples(gen)
package testutil
