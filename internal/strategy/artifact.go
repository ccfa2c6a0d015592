// Package strategy persists trained average strategies so runtime consumers
// can sample actions without rerunning CFR.
package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lox/holdem-solver/internal/fileutil"
	"github.com/lox/holdem-solver/internal/infoset"
)

// ArtifactVersion gates the on-disk schema.
const ArtifactVersion = 1

// Training variants.
const (
	VariantPreflop  = "preflop"
	VariantPostflop = "postflop"
)

// Strategy-sum weighting schemes. The choice changes what the stored sums
// mean, so it travels in the header.
const (
	WeightingUniform = "uniform"
	WeightingLinear  = "linear"
)

var (
	// ErrVersionMismatch reports an artifact written by an incompatible
	// schema version.
	ErrVersionMismatch = errors.New("strategy: unsupported artifact version")

	// ErrChecksumMismatch reports an artifact trained under a different
	// abstraction than the caller's.
	ErrChecksumMismatch = errors.New("strategy: abstraction checksum mismatch")
)

// Entry is the persisted accumulator state for one info set.
type Entry struct {
	Actions     []string  `json:"actions"`
	RegretSum   []float64 `json:"regret_sum"`
	StrategySum []float64 `json:"strategy_sum"`
}

// Artifact is the durable output of a training run: a header describing how
// the strategy was produced plus every info set's accumulators. Regret sums
// are included so batches are additive across save/load.
type Artifact struct {
	Version             int              `json:"version"`
	RunID               string           `json:"run_id"`
	TrainedIterations   int              `json:"trained_iterations"`
	Timestamp           time.Time        `json:"timestamp"`
	Variant             string           `json:"variant"`
	Weighting           string           `json:"weighting"`
	AbstractionChecksum string           `json:"abstraction_checksum"`
	Entries             map[string]Entry `json:"entries"`
}

// FromSnapshot builds an artifact from a store snapshot.
func FromSnapshot(entries map[string]*infoset.Entry) map[string]Entry {
	out := make(map[string]Entry, len(entries))
	for key, e := range entries {
		out[key] = Entry{
			Actions:     e.Actions,
			RegretSum:   e.RegretSum,
			StrategySum: e.StrategySum,
		}
	}
	return out
}

// ToSnapshot converts the artifact entries back into store form for resumed
// training.
func (a *Artifact) ToSnapshot() map[string]*infoset.Entry {
	out := make(map[string]*infoset.Entry, len(a.Entries))
	for key, e := range a.Entries {
		out[key] = &infoset.Entry{
			Actions:     e.Actions,
			RegretSum:   e.RegretSum,
			StrategySum: e.StrategySum,
		}
	}
	return out
}

// AverageStrategy returns the normalised published strategy for a key.
func (a *Artifact) AverageStrategy(key string) ([]string, []float64, bool) {
	e, ok := a.Entries[key]
	if !ok {
		return nil, nil, false
	}

	dist := make([]float64, len(e.StrategySum))
	total := 0.0
	for _, v := range e.StrategySum {
		total += v
	}
	if total <= 0 {
		u := 1.0 / float64(len(dist))
		for i := range dist {
			dist[i] = u
		}
		return e.Actions, dist, true
	}
	for i, v := range e.StrategySum {
		dist[i] = v / total
	}
	return e.Actions, dist, true
}

// Save writes the artifact atomically: readers see either the previous
// checkpoint or this one, never a torn file.
func (a *Artifact) Save(path string) error {
	if a.Version == 0 {
		a.Version = ArtifactVersion
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// Load reads an artifact and validates its schema version.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Version != ArtifactVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersionMismatch, a.Version)
	}
	return &a, nil
}

// CheckAbstraction verifies the artifact was trained under the expected
// abstraction.
func (a *Artifact) CheckAbstraction(checksum string) error {
	if a.AbstractionChecksum != checksum {
		return fmt.Errorf("%w: artifact %q, runtime %q", ErrChecksumMismatch, a.AbstractionChecksum, checksum)
	}
	return nil
}
