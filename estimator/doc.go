// Package estimator turns a sample allocation and model outputs into a
// control variate estimate of the reference model mean.
//
// Estimators are looked up by the allocation's model.Kind through a
// Dispatcher. The package-level New and Register use a default dispatcher
// preloaded with the ACV and MLMC estimators.
package estimator
