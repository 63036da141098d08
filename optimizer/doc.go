// Package optimizer computes sample allocations that minimise estimator
// variance under a computational budget.
//
// Two families share the Result contract:
//
//   - ACV: approximate control variates. The reference model gets N samples
//     and auxiliary model i gets N*r_i. The ratio vector r is found by a
//     two-phase constrained solve (augmented Lagrangian with BFGS inner
//     solves, then a penalised Nelder-Mead fallback). ACVIS and ACVMF differ
//     only in their weight matrices and allocation layout.
//   - MLMC: multilevel Monte Carlo in closed form from per-level variances.
//
// A budget below the cost of evaluating every model once yields an invalid
// Result (cost 0, variance +Inf) instead of an error, so target-cost sweeps
// can include infeasible points.
package optimizer
