package abstraction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"os"
	"sort"
	"sync"

	"github.com/lox/holdem-solver/internal/deck"
	"github.com/lox/holdem-solver/internal/equity"
	"github.com/lox/holdem-solver/internal/fileutil"
	"github.com/lox/holdem-solver/internal/randutil"
)

// ErrNoClusters is returned for a postflop bucket lookup when no centroid
// table has been loaded for the street.
var ErrNoClusters = errors.New("abstraction: no centroid table for street")

const clusterFileVersion = 1

// Config fixes the abstraction's shape. Artifacts record a checksum of these
// values; changing any of them invalidates previously trained strategies.
type Config struct {
	FlopClusters  int `json:"flop_clusters"`
	TurnClusters  int `json:"turn_clusters"`
	RiverClusters int `json:"river_clusters"`

	// Bins is the width of the equity-distribution feature histogram.
	Bins int `json:"bins"`
	// Rollouts and SamplesPerRollout control the Monte-Carlo effort behind
	// each feature vector.
	Rollouts          int `json:"rollouts"`
	SamplesPerRollout int `json:"samples_per_rollout"`
}

// DefaultConfig mirrors the trained models: 50/50/10 clusters, 10-bin
// histograms.
func DefaultConfig() Config {
	return Config{
		FlopClusters:      50,
		TurnClusters:      50,
		RiverClusters:     10,
		Bins:              10,
		Rollouts:          100,
		SamplesPerRollout: 200,
	}
}

// Validate ensures the abstraction is well-formed.
func (c Config) Validate() error {
	if c.FlopClusters <= 0 || c.TurnClusters <= 0 || c.RiverClusters <= 0 {
		return errors.New("abstraction: cluster counts must be positive")
	}
	if c.Bins <= 0 {
		return errors.New("abstraction: bins must be positive")
	}
	if c.Rollouts <= 0 || c.SamplesPerRollout <= 0 {
		return errors.New("abstraction: rollouts and samples must be positive")
	}
	return nil
}

// clustersFor returns the bucket count for a board size.
func (c Config) clustersFor(boardSize int) (int, error) {
	switch boardSize {
	case 3:
		return c.FlopClusters, nil
	case 4:
		return c.TurnClusters, nil
	case 5:
		return c.RiverClusters, nil
	default:
		return 0, fmt.Errorf("abstraction: invalid board size %d", boardSize)
	}
}

// Checksum fingerprints the abstraction contract: preflop class count,
// cluster counts, feature shape, and the bet-size fractions baked into the
// action abstraction. Stored in artifact headers and verified on load.
func (c Config) Checksum() string {
	h := sha256.New()
	fmt.Fprintf(h, "preflop=%d;flop=%d;turn=%d;river=%d;bins=%d;bMIN=ceil(pot/3);bMID=pot;bMAX=stack",
		PreflopClassCount, c.FlopClusters, c.TurnClusters, c.RiverClusters, c.Bins)
	return hex.EncodeToString(h.Sum(nil))
}

// ClusterTable holds the centroids for one street.
type ClusterTable struct {
	Bins      int         `json:"bins"`
	Centroids [][]float64 `json:"centroids"`
}

// Tables bundles the per-street centroid tables. Any street may be absent.
type Tables struct {
	Version  int           `json:"version"`
	Checksum string        `json:"checksum"`
	Flop     *ClusterTable `json:"flop,omitempty"`
	Turn     *ClusterTable `json:"turn,omitempty"`
	River    *ClusterTable `json:"river,omitempty"`
}

func (t *Tables) forBoard(boardSize int) *ClusterTable {
	if t == nil {
		return nil
	}
	switch boardSize {
	case 3:
		return t.Flop
	case 4:
		return t.Turn
	case 5:
		return t.River
	default:
		return nil
	}
}

// Save writes the tables atomically.
func (t *Tables) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cluster tables: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// LoadTables reads centroid tables and validates the version.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Tables
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode cluster tables: %w", err)
	}
	if t.Version != clusterFileVersion {
		return nil, fmt.Errorf("cluster tables: unsupported version %d", t.Version)
	}
	return &t, nil
}

// TrainClusters builds a centroid table for one street (boardSize 3, 4 or 5)
// by sampling random deals, computing their equity-distribution features and
// clustering them with k-means.
func TrainClusters(cfg Config, boardSize, samples int, rng *rand.Rand) (*ClusterTable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := cfg.clustersFor(boardSize)
	if err != nil {
		return nil, err
	}
	if samples < k {
		return nil, fmt.Errorf("abstraction: %d samples cannot seed %d clusters", samples, k)
	}

	points := make([][]float64, 0, samples)
	for i := 0; i < samples; i++ {
		d := deck.New(rng)
		hole := d.Deal(2)
		board := d.Deal(boardSize)

		feat, err := equity.Distribution(hole, board, cfg.Bins, cfg.Rollouts, cfg.SamplesPerRollout, rng)
		if err != nil {
			return nil, err
		}
		points = append(points, feat)
	}

	return &ClusterTable{
		Bins:      cfg.Bins,
		Centroids: kmeans(points, k, 25, rng),
	}, nil
}

// Mapper resolves buckets for live (hole, board) combinations. It is safe
// for concurrent use: the tables are read-only after construction and every
// lookup derives its own RNG from the cards, so results are identical across
// runs and goroutines.
type Mapper struct {
	cfg    Config
	tables *Tables
	seed   int64

	// cache memoises postflop lookups; the same (hole, board) always maps
	// to the same bucket, so trainers revisiting a deal skip the roll-outs.
	cache sync.Map
}

// NewMapper builds a mapper; tables may be nil, in which case postflop
// lookups use the equity fallback bucket.
func NewMapper(cfg Config, tables *Tables, seed int64) (*Mapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tables != nil && tables.Checksum != "" && tables.Checksum != cfg.Checksum() {
		return nil, fmt.Errorf("abstraction: cluster tables trained for different config")
	}
	return &Mapper{cfg: cfg, tables: tables, seed: seed}, nil
}

// Config returns the mapper's abstraction config.
func (m *Mapper) Config() Config { return m.cfg }

// Bucket maps (hole, board) to a bucket id for the board's street. Preflop
// uses the 169 lossless classes; postflop uses the street's centroid table
// when present and the equity bucket otherwise.
func (m *Mapper) Bucket(hole, board []deck.Card) (int, error) {
	if len(board) == 0 {
		return PreflopClass(hole)
	}

	key := cacheKey(hole, board)
	if cached, ok := m.cache.Load(key); ok {
		return cached.(int), nil
	}

	bucket, err := m.bucketUncached(hole, board)
	if err != nil {
		return 0, err
	}
	m.cache.Store(key, bucket)
	return bucket, nil
}

func (m *Mapper) bucketUncached(hole, board []deck.Card) (int, error) {
	bucket, err := m.ClusterBucket(hole, board)
	if err == nil {
		return bucket, nil
	}
	if !errors.Is(err, ErrNoClusters) {
		return 0, err
	}

	k, err := m.cfg.clustersFor(len(board))
	if err != nil {
		return 0, err
	}
	return m.equityBucket(hole, board, k)
}

// ClusterBucket maps a postflop (hole, board) to its nearest centroid. It
// returns ErrNoClusters when no table is loaded for the street.
func (m *Mapper) ClusterBucket(hole, board []deck.Card) (int, error) {
	table := m.tables.forBoard(len(board))
	if table == nil {
		return 0, ErrNoClusters
	}

	rng := m.lookupRNG(hole, board)
	feat, err := equity.Distribution(hole, board, table.Bins, m.cfg.Rollouts, m.cfg.SamplesPerRollout, rng)
	if err != nil {
		return 0, err
	}
	return nearestCentroid(table.Centroids, feat), nil
}

// EquityBucket maps an equity value into one of k uniform bins: bucket i
// holds equities in [i/k, (i+1)/k), with 1.0 folded into the top bin.
func EquityBucket(equity float64, k int) int {
	bucket := int(equity * float64(k))
	if bucket >= k {
		bucket = k - 1
	}
	if bucket < 0 {
		bucket = 0
	}
	return bucket
}

// equityBucket is the fast path: estimate the hand's equity with a
// card-seeded RNG and drop it into a uniform bin.
func (m *Mapper) equityBucket(hole, board []deck.Card, k int) (int, error) {
	res, err := equity.Estimate(hole, board, m.cfg.Rollouts*m.cfg.SamplesPerRollout/10, m.lookupRNG(hole, board))
	if err != nil {
		return 0, err
	}
	return EquityBucket(res.Equity(), k), nil
}

// cacheKey canonicalises the cards so lookup order never splits the cache.
func cacheKey(hole, board []deck.Card) string {
	h := append([]deck.Card(nil), hole...)
	b := append([]deck.Card(nil), board...)
	sort.Slice(h, func(i, j int) bool { return h[i] < h[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	return deck.FormatCards(h) + "|" + deck.FormatCards(b)
}

// lookupRNG derives a generator purely from the cards (order-independent) so
// that the same (hole, board) always buckets identically.
func (m *Mapper) lookupRNG(hole, board []deck.Card) *rand.Rand {
	seed := m.seed
	for _, b := range []byte(cacheKey(hole, board)) {
		seed = seed*131 + int64(b)
	}
	return randutil.New(seed)
}
