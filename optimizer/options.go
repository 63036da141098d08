package optimizer

import (
	"io"
	"log/slog"
)

// SolverSettings bounds the two-phase solve.
type SolverSettings struct {
	// OuterIterations caps augmented Lagrangian multiplier updates.
	OuterIterations int
	// InnerIterations caps BFGS major iterations per subproblem.
	InnerIterations int
	// FallbackEvaluations caps objective evaluations per Nelder-Mead stage.
	FallbackEvaluations int
	// FeasibilityTolerance is the allowed violation of scaled constraints.
	FeasibilityTolerance float64
}

// DefaultSolverSettings returns the settings used when none are given.
func DefaultSolverSettings() SolverSettings {
	return SolverSettings{
		OuterIterations:      30,
		InnerIterations:      500,
		FallbackEvaluations:  20000,
		FeasibilityTolerance: 1e-6,
	}
}

// Option configures an optimizer.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	settings    SolverSettings
	constraints ConstraintGenerator
}

func defaultOptions() options {
	return options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		settings: DefaultSolverSettings(),
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger for solver diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSolverSettings overrides the solver limits. Zero fields keep defaults.
func WithSolverSettings(s SolverSettings) Option {
	return func(o *options) {
		if s.OuterIterations > 0 {
			o.settings.OuterIterations = s.OuterIterations
		}
		if s.InnerIterations > 0 {
			o.settings.InnerIterations = s.InnerIterations
		}
		if s.FallbackEvaluations > 0 {
			o.settings.FallbackEvaluations = s.FallbackEvaluations
		}
		if s.FeasibilityTolerance > 0 {
			o.settings.FeasibilityTolerance = s.FeasibilityTolerance
		}
	}
}

// WithConstraints replaces the default ACV constraint set.
func WithConstraints(g ConstraintGenerator) Option {
	return func(o *options) {
		o.constraints = g
	}
}
