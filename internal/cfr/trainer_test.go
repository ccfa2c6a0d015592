package cfr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-solver/internal/abstraction"
	"github.com/lox/holdem-solver/internal/strategy"
)

func testMapper(t *testing.T) *abstraction.Mapper {
	t.Helper()
	cfg := abstraction.DefaultConfig()
	cfg.Rollouts = 10
	cfg.SamplesPerRollout = 10
	m, err := abstraction.NewMapper(cfg, nil, 1)
	require.NoError(t, err)
	return m
}

func testConfig(t *testing.T, variant string) TrainingConfig {
	t.Helper()
	cfg := DefaultTrainingConfig()
	cfg.Variant = variant
	cfg.Iterations = 200
	cfg.Stack = 20
	cfg.EquitySamples = 200
	cfg.OutputPath = filepath.Join(t.TempDir(), variant+".strategy")
	return cfg
}

func newTestTrainer(t *testing.T, cfg TrainingConfig) *Trainer {
	t.Helper()
	tr, err := NewTrainer(cfg, testMapper(t), zerolog.Nop(), nil)
	require.NoError(t, err)
	return tr
}

func TestPreflopTrainingFlushesArtifact(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	tr := newTestTrainer(t, cfg)

	require.NoError(t, tr.Run(context.Background()))

	a, err := strategy.Load(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, strategy.VariantPreflop, a.Variant)
	assert.Equal(t, strategy.WeightingUniform, a.Weighting)
	assert.Equal(t, cfg.Iterations, a.TrainedIterations)
	assert.NotEmpty(t, a.RunID)
	assert.NotEmpty(t, a.Entries)

	// Preflop-only training never visits postflop streets.
	for key := range a.Entries {
		assert.True(t, strings.HasPrefix(key, "0|"), "unexpected key %q", key)
	}
}

func TestStrategySumsNonNegativeAfterTraining(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	tr := newTestTrainer(t, cfg)
	require.NoError(t, tr.Run(context.Background()))

	for key, e := range tr.Artifact().Entries {
		for i, v := range e.StrategySum {
			require.GreaterOrEqual(t, v, 0.0, "key %s action %s", key, e.Actions[i])
		}
	}
}

func TestTrainingDeterministicForSeed(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	cfg.Iterations = 100

	a := newTestTrainer(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	b := newTestTrainer(t, cfg)
	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, a.Artifact().Entries, b.Artifact().Entries)
}

func TestBatchesAreAdditive(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	cfg.Batches = 2
	tr := newTestTrainer(t, cfg)
	require.NoError(t, tr.Run(context.Background()))

	assert.Equal(t, 2*cfg.Iterations, tr.Iterations())

	a, err := strategy.Load(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 2*cfg.Iterations, a.TrainedIterations)
}

func TestResumeContinuesFromArtifact(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	first := newTestTrainer(t, cfg)
	require.NoError(t, first.Run(context.Background()))
	saved, err := strategy.Load(cfg.OutputPath)
	require.NoError(t, err)

	second := newTestTrainer(t, cfg)
	require.NoError(t, second.Resume(saved))
	assert.Equal(t, cfg.Iterations, second.Iterations())
	assert.Equal(t, saved.RunID, second.Artifact().RunID)

	require.NoError(t, second.Run(context.Background()))
	assert.Equal(t, 2*cfg.Iterations, second.Iterations())
}

func TestResumeRejectsMismatchedVariant(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	tr := newTestTrainer(t, cfg)

	err := tr.Resume(&strategy.Artifact{
		Variant:             strategy.VariantPostflop,
		Weighting:           strategy.WeightingUniform,
		AbstractionChecksum: tr.mapper.Config().Checksum(),
	})
	assert.Error(t, err)
}

func TestCancellationStopsRun(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	cfg.Iterations = 100000
	cfg.Batches = 100
	tr := newTestTrainer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostflopTrainingStartsAtFlop(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPostflop)
	cfg.Iterations = 60
	tr := newTestTrainer(t, cfg)
	require.NoError(t, tr.Run(context.Background()))

	streets := make(map[byte]bool)
	for key := range tr.Artifact().Entries {
		streets[key[0]] = true
	}
	assert.False(t, streets['0'], "postflop variant skips preflop decisions")
	assert.True(t, streets['1'], "flop decisions recorded")
}

func TestParallelWorkersMatchIterationCount(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	cfg.Workers = 4
	cfg.Iterations = 201 // not divisible by workers
	tr := newTestTrainer(t, cfg)
	require.NoError(t, tr.Run(context.Background()))

	assert.Equal(t, 201, tr.Iterations())
}

// The AA opening node should be trained toward aggression: almost never a
// fold, with most of the mass on raises.
func TestAcesOpenAggressively(t *testing.T) {
	if testing.Short() {
		t.Skip("training run")
	}

	cfg := testConfig(t, strategy.VariantPreflop)
	cfg.Iterations = 30000
	cfg.Workers = 4
	tr := newTestTrainer(t, cfg)
	require.NoError(t, tr.Run(context.Background()))

	// Button with aces, no actions yet: class 1, empty history.
	actions, dist, ok := tr.Artifact().AverageStrategy("0|1|")
	require.True(t, ok, "AA opening node must be visited")

	var fold, bets float64
	for i, tag := range actions {
		switch {
		case tag == "f":
			fold = dist[i]
		case strings.HasPrefix(tag, "b"):
			bets += dist[i]
		}
	}

	assert.Less(t, fold, 0.15, "aces do not open-fold")
	assert.Greater(t, bets, 0.5, "aces mostly raise")
}

func TestArtifactTimestampUsesClock(t *testing.T) {
	cfg := testConfig(t, strategy.VariantPreflop)
	mock := quartz.NewMock(t)
	tr, err := NewTrainer(cfg, testMapper(t), zerolog.Nop(), mock)
	require.NoError(t, err)

	assert.Equal(t, mock.Now().UTC(), tr.Artifact().Timestamp)
}

func TestLoadTrainingConfigFromHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
training {
  variant    = "postflop"
  iterations = 1234
  workers    = 8
  stack      = 200
  output     = "out.strategy"
}
`), 0o644))

	cfg, err := LoadTrainingConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postflop", cfg.Variant)
	assert.Equal(t, 1234, cfg.Iterations)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 200, cfg.Stack)
	assert.Equal(t, "out.strategy", cfg.OutputPath)
	// Untouched fields keep their defaults.
	assert.Equal(t, 2, cfg.BigBlind)
}

func TestLoadTrainingConfigMissingFile(t *testing.T) {
	_, err := LoadTrainingConfig(filepath.Join(t.TempDir(), "none.hcl"))
	assert.Error(t, err)
}
