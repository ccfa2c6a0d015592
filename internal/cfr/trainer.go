package cfr

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-solver/internal/abstraction"
	"github.com/lox/holdem-solver/internal/deck"
	"github.com/lox/holdem-solver/internal/equity"
	"github.com/lox/holdem-solver/internal/game"
	"github.com/lox/holdem-solver/internal/infoset"
	"github.com/lox/holdem-solver/internal/randutil"
	"github.com/lox/holdem-solver/internal/strategy"
)

// Trainer orchestrates external-sampling MCCFR over the abstracted heads-up
// tree. All mutable state lives here; there are no package-level singletons.
type Trainer struct {
	cfg     TrainingConfig
	gameCfg game.Config
	mapper  *abstraction.Mapper
	store   *infoset.Store
	log     zerolog.Logger
	clock   quartz.Clock
	runID   string

	iterations atomic.Int64

	// classEquity holds per-169-class equity vs a uniform opponent, indexed
	// by class id. Populated only for the preflop variant, where it prices
	// the synthetic terminals at the flop boundary.
	classEquity []float64
}

// NewTrainer builds a trainer. A nil clock means wall time.
func NewTrainer(cfg TrainingConfig, mapper *abstraction.Mapper, logger zerolog.Logger, clock quartz.Clock) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = quartz.NewReal()
	}

	t := &Trainer{
		cfg: cfg,
		gameCfg: game.Config{
			SmallBlind: cfg.SmallBlind,
			BigBlind:   cfg.BigBlind,
			Stack:      cfg.Stack,
		},
		mapper: mapper,
		store:  infoset.NewStore(),
		log:    logger,
		clock:  clock,
		runID:  uuid.NewString(),
	}

	if cfg.Variant == strategy.VariantPreflop {
		if err := t.buildClassEquity(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Resume seeds the trainer from a previously flushed artifact, making
// batches additive across runs.
func (t *Trainer) Resume(a *strategy.Artifact) error {
	if a.Variant != t.cfg.Variant {
		return fmt.Errorf("cfr: artifact variant %q, trainer variant %q", a.Variant, t.cfg.Variant)
	}
	if a.Weighting != t.cfg.Weighting() {
		return fmt.Errorf("cfr: artifact weighting %q, trainer weighting %q", a.Weighting, t.cfg.Weighting())
	}
	if err := a.CheckAbstraction(t.mapper.Config().Checksum()); err != nil {
		return err
	}

	t.store.Restore(a.ToSnapshot())
	t.iterations.Store(int64(a.TrainedIterations))
	t.runID = a.RunID
	return nil
}

// InfoSets returns the number of information sets visited so far.
func (t *Trainer) InfoSets() int { return t.store.Len() }

// Iterations returns the completed iteration count, including resumed state.
func (t *Trainer) Iterations() int { return int(t.iterations.Load()) }

// Run executes the configured batches, flushing the artifact after each one.
// Cancellation takes effect at batch boundaries: the in-flight batch stops
// without flushing, already-flushed checkpoints stay intact.
func (t *Trainer) Run(ctx context.Context) error {
	for batch := 0; batch < t.cfg.Batches; batch++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := t.clock.Now()
		if err := t.runBatch(ctx, batch); err != nil {
			return err
		}

		artifact := t.Artifact()
		if err := artifact.Save(t.cfg.OutputPath); err != nil {
			return fmt.Errorf("flush batch %d: %w", batch, err)
		}

		t.log.Info().
			Int("batch", batch+1).
			Int("batches", t.cfg.Batches).
			Int("iterations", t.Iterations()).
			Int("infosets", t.store.Len()).
			Dur("elapsed", t.clock.Since(start)).
			Str("output", t.cfg.OutputPath).
			Msg("batch flushed")
	}
	return nil
}

func (t *Trainer) runBatch(ctx context.Context, batch int) error {
	workers := t.cfg.Workers
	share := t.cfg.Iterations / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		n := share
		if w == workers-1 {
			n = t.cfg.Iterations - share*(workers-1)
		}
		rng := randutil.Stream(t.cfg.Seed+int64(batch)*7919, w)

		g.Go(func() error {
			for i := 0; i < n; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				iter := t.iterations.Add(1)
				root, err := t.newRoot(rng.IntN(2), rng)
				if err != nil {
					return err
				}

				for p := 0; p < 2; p++ {
					if _, err := t.traverse(root, p, rng, iter); err != nil {
						if isInvariant(err) {
							return fmt.Errorf("invariant violation at iteration %d: %w", iter, err)
						}
						t.log.Warn().Err(err).Int64("iteration", iter).Msg("traversal discarded")
						break
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// Artifact materialises the current averaged state for persistence.
func (t *Trainer) Artifact() *strategy.Artifact {
	return &strategy.Artifact{
		Version:             strategy.ArtifactVersion,
		RunID:               t.runID,
		TrainedIterations:   t.Iterations(),
		Timestamp:           t.clock.Now().UTC(),
		Variant:             t.cfg.Variant,
		Weighting:           t.cfg.Weighting(),
		AbstractionChecksum: t.mapper.Config().Checksum(),
		Entries:             strategy.FromSnapshot(t.store.Snapshot()),
	}
}

// buildClassEquity precomputes equity vs a random hand for each of the 169
// preflop classes, one representative combo per class.
func (t *Trainer) buildClassEquity() error {
	t.classEquity = make([]float64, abstraction.PreflopClassCount+1)
	done := 0

	for a := 0; a < 52 && done < abstraction.PreflopClassCount; a++ {
		for b := a + 1; b < 52; b++ {
			hole := []deck.Card{deck.Card(a), deck.Card(b)}
			class, err := abstraction.PreflopClass(hole)
			if err != nil {
				return err
			}
			if t.classEquity[class] != 0 {
				continue
			}

			res, err := equity.Estimate(hole, nil, t.cfg.EquitySamples, randutil.New(t.cfg.Seed+int64(class)))
			if err != nil {
				return err
			}
			t.classEquity[class] = res.Equity()
			done++
		}
	}
	return nil
}

func isInvariant(err error) bool {
	return errors.Is(err, infoset.ErrActionMismatch) || errors.Is(err, infoset.ErrNaNValue)
}
