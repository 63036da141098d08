// Package model defines the types shared by every mxmc package.
//
// # Allocation Kinds
//
// Every SampleAllocation carries a Kind that identifies the estimator family
// able to consume it:
//
//   - KindACV: approximate control variate allocations (ACVIS, ACVMF and
//     single-model Monte Carlo results produced by the ACV optimizer)
//   - KindMLMC: multilevel allocations in level order
//   - KindUnknown: allocations built by hand without a producing optimizer
//
// # Errors
//
// The error taxonomy lives here so that allocation, optimizer and estimator
// can share it without import cycles. All errors are comparable with
// errors.Is; DimensionError and SampleCountError additionally carry the
// offending sizes and can be extracted with errors.As.
package model
