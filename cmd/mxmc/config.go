package main

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/mxmc"
	"github.com/hupe1980/mxmc/allocation"
	"github.com/hupe1980/mxmc/optimizer"
)

// Config is the problem file layout.
type Config struct {
	Name           string      `yaml:"name"`
	Method         string      `yaml:"method"`
	Costs          []float64   `yaml:"costs"`
	Covariance     [][]float64 `yaml:"covariance"`
	LevelVariances []float64   `yaml:"level_variances"`
	Targets        []float64   `yaml:"targets"`
	Workers        int         `yaml:"workers"`
	Store          StoreConfig `yaml:"store"`
	Solver         *Solver     `yaml:"solver"`
}

// StoreConfig selects where allocations are written.
type StoreConfig struct {
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"`
}

// Solver overrides individual solver settings. Zero fields keep defaults.
type Solver struct {
	OuterIterations      int     `yaml:"outer_iterations"`
	InnerIterations      int     `yaml:"inner_iterations"`
	FallbackEvaluations  int     `yaml:"fallback_evaluations"`
	FeasibilityTolerance float64 `yaml:"feasibility_tolerance"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = "study"
	}
	if cfg.Method == "" {
		return nil, fmt.Errorf("config: method is required")
	}
	if len(cfg.Costs) == 0 {
		return nil, fmt.Errorf("config: costs are required")
	}
	return &cfg, nil
}

func (c *Config) problem() (mxmc.Problem, error) {
	p := mxmc.Problem{
		Costs:          c.Costs,
		LevelVariances: c.LevelVariances,
	}
	if len(c.Covariance) == 0 {
		return p, nil
	}
	m := len(c.Covariance)
	data := make([]float64, 0, m*m)
	for i, row := range c.Covariance {
		if len(row) != m {
			return p, fmt.Errorf("config: covariance row %d has %d entries, want %d", i, len(row), m)
		}
		data = append(data, row...)
	}
	for i := range m {
		for j := range i {
			if c.Covariance[i][j] != c.Covariance[j][i] {
				return p, fmt.Errorf("config: covariance is not symmetric at (%d,%d)", i, j)
			}
		}
	}
	p.Covariance = mat.NewSymDense(m, data)
	return p, nil
}

func (c *Config) compression() (allocation.Compression, error) {
	if c.Store.Compression == "" {
		return allocation.CompressionNone, nil
	}
	return allocation.ParseCompression(c.Store.Compression)
}

func (c *Config) solverSettings() (optimizer.SolverSettings, bool) {
	s := optimizer.DefaultSolverSettings()
	if c.Solver == nil {
		return s, false
	}
	if c.Solver.OuterIterations > 0 {
		s.OuterIterations = c.Solver.OuterIterations
	}
	if c.Solver.InnerIterations > 0 {
		s.InnerIterations = c.Solver.InnerIterations
	}
	if c.Solver.FallbackEvaluations > 0 {
		s.FallbackEvaluations = c.Solver.FallbackEvaluations
	}
	if c.Solver.FeasibilityTolerance > 0 {
		s.FeasibilityTolerance = c.Solver.FeasibilityTolerance
	}
	return s, true
}
