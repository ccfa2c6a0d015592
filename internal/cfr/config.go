package cfr

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdem-solver/internal/strategy"
)

// TrainingConfig aggregates the parameters of an MCCFR run. A run is
// Batches×Iterations traversal pairs; the store flushes to OutputPath after
// every batch so progress is durable.
type TrainingConfig struct {
	Variant    string `hcl:"variant,optional"`
	Iterations int    `hcl:"iterations,optional"`
	Batches    int    `hcl:"batches,optional"`
	Workers    int    `hcl:"workers,optional"`
	Seed       int64  `hcl:"seed,optional"`

	SmallBlind int `hcl:"small_blind,optional"`
	BigBlind   int `hcl:"big_blind,optional"`
	Stack      int `hcl:"stack,optional"`

	// EquitySamples sizes the Monte-Carlo estimate behind each preflop
	// class equity used for the preflop variant's synthetic terminals.
	EquitySamples int `hcl:"equity_samples,optional"`

	// LinearWeighting switches strategy-sum accumulation from uniform to
	// iteration-weighted. Recorded in the artifact header either way.
	LinearWeighting bool `hcl:"linear_weighting,optional"`

	OutputPath string `hcl:"output,optional"`
}

// DefaultTrainingConfig returns a sensible starting point for local runs.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Variant:       strategy.VariantPreflop,
		Iterations:    50000,
		Batches:       1,
		Workers:       1,
		Seed:          1,
		SmallBlind:    1,
		BigBlind:      2,
		Stack:         100,
		EquitySamples: 2000,
	}
}

// Validate ensures the parameters are safe to train with.
func (c TrainingConfig) Validate() error {
	if c.Variant != strategy.VariantPreflop && c.Variant != strategy.VariantPostflop {
		return fmt.Errorf("cfr: unknown variant %q", c.Variant)
	}
	if c.Iterations <= 0 {
		return errors.New("cfr: iterations must be positive")
	}
	if c.Batches <= 0 {
		return errors.New("cfr: batches must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("cfr: workers must be positive")
	}
	if c.SmallBlind <= 0 || c.BigBlind <= c.SmallBlind {
		return errors.New("cfr: blinds must satisfy 0 < small < big")
	}
	if c.Stack <= c.BigBlind {
		return errors.New("cfr: stack must exceed big blind")
	}
	if c.EquitySamples <= 0 {
		return errors.New("cfr: equity samples must be positive")
	}
	if c.OutputPath == "" {
		return errors.New("cfr: output path is required")
	}
	return nil
}

// Weighting names the configured strategy-sum scheme for artifact headers.
func (c TrainingConfig) Weighting() string {
	if c.LinearWeighting {
		return strategy.WeightingLinear
	}
	return strategy.WeightingUniform
}

type configFile struct {
	Training *TrainingConfig `hcl:"training,block"`
}

// LoadTrainingConfig reads a training block from an HCL file and overlays it
// on the defaults, so files only state what they change.
func LoadTrainingConfig(filename string) (TrainingConfig, error) {
	cfg := DefaultTrainingConfig()

	if _, err := os.Stat(filename); err != nil {
		return cfg, fmt.Errorf("config file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("parse config: %s", diags.Error())
	}

	var parsed configFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return cfg, fmt.Errorf("decode config: %s", diags.Error())
	}

	if parsed.Training != nil {
		overlay(&cfg, *parsed.Training)
	}
	return cfg, nil
}

func overlay(dst *TrainingConfig, src TrainingConfig) {
	if src.Variant != "" {
		dst.Variant = src.Variant
	}
	if src.Iterations != 0 {
		dst.Iterations = src.Iterations
	}
	if src.Batches != 0 {
		dst.Batches = src.Batches
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.Seed != 0 {
		dst.Seed = src.Seed
	}
	if src.SmallBlind != 0 {
		dst.SmallBlind = src.SmallBlind
	}
	if src.BigBlind != 0 {
		dst.BigBlind = src.BigBlind
	}
	if src.Stack != 0 {
		dst.Stack = src.Stack
	}
	if src.EquitySamples != 0 {
		dst.EquitySamples = src.EquitySamples
	}
	if src.LinearWeighting {
		dst.LinearWeighting = true
	}
	if src.OutputPath != "" {
		dst.OutputPath = src.OutputPath
	}
}
