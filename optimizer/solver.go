package optimizer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/hupe1980/mxmc/model"
)

// ratioLowerBound keeps every ratio strictly above one.
const ratioLowerBound = 1 + 1e-12

// initialGap is the minimum distance of the initial guess from the bound.
const initialGap = 1e-2

// objectiveFunc returns the objective at r and, when grad is non-nil, writes
// its gradient.
type objectiveFunc func(grad, r []float64) (float64, error)

// solver minimises an objective over r > ratioLowerBound subject to
// inequality constraints g_j(r) >= 0.
//
// Ratios are reparameterised as r = lower + exp(y), so both phases work
// unconstrained in y and the bounds hold by construction. The objective is
// scaled by its value at the initial guess and each constraint by
// 1/max(1, |g_j(x0)|). Scaled constraints are tightened by the feasibility
// tolerance so accepted points satisfy the unscaled ones exactly.
type solver struct {
	objective   objectiveFunc
	constraints []Constraint
	settings    SolverSettings
	logger      *slog.Logger

	fScale float64
	gScale []float64

	cache evalCache
	fatal error
}

type evalCache struct {
	y     []float64
	valid bool
	f     float64
	df    []float64
	g     []float64
	dg    [][]float64
}

func newSolver(objective objectiveFunc, constraints []Constraint, settings SolverSettings, logger *slog.Logger) *solver {
	return &solver{
		objective:   objective,
		constraints: constraints,
		settings:    settings,
		logger:      logger,
	}
}

func toY(r []float64) []float64 {
	y := make([]float64, len(r))
	for i, ri := range r {
		y[i] = math.Log(ri - ratioLowerBound)
	}
	return y
}

func toR(y []float64) []float64 {
	r := make([]float64, len(y))
	for i, yi := range y {
		r[i] = ratioLowerBound + math.Exp(yi)
	}
	return r
}

// initialGuess clips r0 into the feasible bound with a minimum gap.
func initialGuess(r0 []float64) []float64 {
	out := make([]float64, len(r0))
	for i, r := range r0 {
		out[i] = math.Max(r, ratioLowerBound+initialGap)
	}
	return out
}

// eval fills the cache at y. Objective errors are recorded as fatal.
func (s *solver) eval(y []float64) {
	if s.cache.valid && floats.Equal(s.cache.y, y) {
		return
	}
	n := len(y)
	c := &s.cache
	c.y = append(c.y[:0], y...)
	c.valid = true
	if c.df == nil {
		c.df = make([]float64, n)
		c.g = make([]float64, len(s.constraints))
		c.dg = make([][]float64, len(s.constraints))
		for j := range c.dg {
			c.dg[j] = make([]float64, n)
		}
	}

	r := toR(y)
	grad := make([]float64, n)
	f, err := s.objective(grad, r)
	if err != nil {
		if s.fatal == nil {
			s.fatal = err
		}
		f = math.Inf(1)
	}
	if math.IsNaN(f) {
		f = math.Inf(1)
	}
	c.f = f / s.fScale
	for i := range grad {
		// dr/dy = r - lower
		c.df[i] = grad[i] * (r[i] - ratioLowerBound) / s.fScale
	}

	gr := make([]float64, n)
	for j, con := range s.constraints {
		c.g[j] = con.Func(r)/s.gScale[j] - s.settings.FeasibilityTolerance
		con.Grad(gr, r)
		for i := range gr {
			c.dg[j][i] = gr[i] * (r[i] - ratioLowerBound) / s.gScale[j]
		}
	}
}

// violation is the largest scaled constraint violation, ignoring tightening.
func (s *solver) violation(y []float64) float64 {
	s.eval(y)
	v := 0.0
	for _, gj := range s.cache.g {
		v = math.Max(v, -(gj + s.settings.FeasibilityTolerance))
	}
	return v
}

func (s *solver) feasible(y []float64) bool {
	v := s.violation(y)
	return v <= s.settings.FeasibilityTolerance && !math.IsInf(s.cache.f, 0)
}

// solve runs both phases from r0 and returns the accepted ratios.
func (s *solver) solve(r0 []float64) ([]float64, error) {
	x0 := initialGuess(r0)
	y0 := toY(x0)

	f0, err := s.objective(nil, x0)
	if err != nil {
		return nil, err
	}
	s.fScale = 1
	if f0 > 0 && !math.IsInf(f0, 0) && !math.IsNaN(f0) {
		s.fScale = f0
	}
	s.gScale = make([]float64, len(s.constraints))
	for j, con := range s.constraints {
		s.gScale[j] = math.Max(1, math.Abs(con.Func(x0)))
	}

	y, err := s.augmentedLagrangian(y0)
	if s.fatal != nil {
		return nil, s.fatal
	}
	if err == nil {
		return toR(y), nil
	}
	s.logger.Warn("gradient phase failed, falling back to Nelder-Mead", "error", err)

	y, err = s.penaltyNelderMead(y0)
	if s.fatal != nil {
		return nil, s.fatal
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSolverFailed, err)
	}
	return toR(y), nil
}

// augmentedLagrangian is the PHR method for inequality constraints with
// BFGS inner solves.
func (s *solver) augmentedLagrangian(y0 []float64) ([]float64, error) {
	m := len(s.constraints)
	lambda := make([]float64, m)
	rho := 10.0
	prevViol := math.Inf(1)
	tol := s.settings.FeasibilityTolerance

	y := append([]float64(nil), y0...)

	shifted := func(j int) float64 {
		return math.Max(0, lambda[j]-rho*s.cache.g[j])
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			s.eval(x)
			l := s.cache.f
			for j := range s.constraints {
				p := shifted(j)
				l += (p*p - lambda[j]*lambda[j]) / (2 * rho)
			}
			return l
		},
		Grad: func(grad, x []float64) {
			s.eval(x)
			copy(grad, s.cache.df)
			for j := range s.constraints {
				if p := shifted(j); p > 0 {
					floats.AddScaled(grad, -p, s.cache.dg[j])
				}
			}
		},
		Status: func() (optimize.Status, error) {
			if s.fatal != nil {
				return optimize.Failure, s.fatal
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   s.settings.InnerIterations,
		GradientThreshold: 1e-10,
	}

	for it := 0; it < s.settings.OuterIterations; it++ {
		res, err := optimize.Minimize(problem, y, settings, &optimize.BFGS{})
		if s.fatal != nil {
			return nil, s.fatal
		}
		if res == nil {
			return nil, err
		}
		if !math.IsInf(res.F, 0) && !math.IsNaN(res.F) {
			copy(y, res.X)
		}

		s.eval(y)
		viol := s.violation(y)
		comp := 0.0
		for j := 0; j < m; j++ {
			comp = math.Max(comp, math.Abs(math.Min(s.cache.g[j], lambda[j]/rho)))
			lambda[j] = math.Max(0, lambda[j]-rho*s.cache.g[j])
		}

		s.logger.Debug("augmented lagrangian iteration",
			"iteration", it,
			"objective", s.cache.f*s.fScale,
			"violation", viol,
			"complementarity", comp,
			"penalty", rho,
		)

		if viol <= tol && comp <= 1e-4 && !math.IsInf(s.cache.f, 0) {
			return y, nil
		}
		if viol > 0.25*prevViol {
			rho = math.Min(rho*10, 1e12)
		}
		prevViol = viol
	}

	if s.feasible(y) {
		return nil, errors.New("augmented lagrangian did not converge")
	}
	return nil, fmt.Errorf("augmented lagrangian ended infeasible (violation %g)", s.violation(y))
}

// penaltyNelderMead minimises f + mu * sum max(0, -g_j) for increasing mu,
// warm-starting each stage, and accepts the first feasible point.
func (s *solver) penaltyNelderMead(y0 []float64) ([]float64, error) {
	y := append([]float64(nil), y0...)
	var lastErr error

	for _, mu := range []float64{1e1, 1e2, 1e3, 1e4, 1e6, 1e8} {
		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				s.eval(x)
				p := s.cache.f
				for _, gj := range s.cache.g {
					p += mu * math.Max(0, -gj)
				}
				return p
			},
			Status: func() (optimize.Status, error) {
				if s.fatal != nil {
					return optimize.Failure, s.fatal
				}
				return optimize.NotTerminated, nil
			},
		}
		settings := &optimize.Settings{
			FuncEvaluations: s.settings.FallbackEvaluations,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-14,
				Relative:   1e-12,
				Iterations: 200,
			},
		}

		res, err := optimize.Minimize(problem, y, settings, &optimize.NelderMead{})
		if s.fatal != nil {
			return nil, s.fatal
		}
		if res != nil {
			copy(y, res.X)
		}
		lastErr = err

		s.logger.Debug("penalty stage", "mu", mu, "violation", s.violation(y))
		if s.feasible(y) {
			return y, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no feasible point (violation %g)", s.violation(y))
}
