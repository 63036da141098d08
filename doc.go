// Package mxmc computes optimal sample allocations for multi-fidelity Monte
// Carlo estimation.
//
// Given the evaluation cost of every model and the covariance of their
// outputs, an optimizer decides how many samples each model receives and
// which samples are shared, so that the estimator variance is minimal for
// a computational budget.
//
// # Quick Start
//
//	cov := mat.NewSymDense(3, []float64{
//	    1.0, 0.9, 0.8,
//	    0.9, 1.1, 0.7,
//	    0.8, 0.7, 1.3,
//	})
//	study, _ := mxmc.NewStudy("beam", mxmc.MethodACVMF, mxmc.Problem{
//	    Costs:      []float64{1, 0.1, 0.01},
//	    Covariance: cov,
//	})
//	res, _ := study.Optimize(ctx, 100)
//	fmt.Println(res.Cost, res.Variance, res.Allocation.SamplesPerModel())
//
// # Sweeps and Persistence
//
// Sweep optimizes many budgets concurrently. With a blob store configured,
// every allocation is persisted; with a catalog, every result is indexed:
//
//	store := blobstore.NewLocalStore("./allocations")
//	study, _ := mxmc.NewStudy("beam", mxmc.MethodACVIS, problem,
//	    mxmc.WithBlobStore(store),
//	    mxmc.WithCatalog(catalog.NewMemoryCatalog()),
//	    mxmc.WithMaxWorkers(4),
//	)
//	results, _ := study.Sweep(ctx, []float64{10, 100, 1000})
//
// Infeasible budgets are not errors: their Result has zero cost and
// infinite variance.
//
// # Estimation
//
// After the models have been evaluated on the allocated samples,
// Study.Estimator returns the matching control variate estimator.
package mxmc
