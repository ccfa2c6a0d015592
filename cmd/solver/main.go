// Command solver trains heads-up MCCFR strategies and manages the card
// abstraction that backs them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/holdem-solver/internal/abstraction"
	"github.com/lox/holdem-solver/internal/cfr"
	"github.com/lox/holdem-solver/internal/randutil"
	"github.com/lox/holdem-solver/internal/strategy"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Train    TrainCmd    `cmd:"" help:"run MCCFR training and emit a strategy artifact"`
	Clusters ClustersCmd `cmd:"" help:"train postflop centroid tables"`
	Inspect  InspectCmd  `cmd:"" help:"print a strategy artifact's header"`
}

type TrainCmd struct {
	Out           string `help:"path to write the strategy artifact" required:""`
	Variant       string `help:"training variant" enum:"preflop,postflop" default:"preflop"`
	Iterations    int    `help:"MCCFR iterations per batch" default:"50000"`
	Batches       int    `help:"number of batches; the artifact flushes after each" default:"1"`
	Workers       int    `help:"parallel traversal workers" default:"1"`
	Seed          int64  `help:"master random seed" default:"1"`
	SmallBlind    int    `help:"small blind size" default:"1"`
	BigBlind      int    `help:"big blind size" default:"2"`
	Stack         int    `help:"starting stack size" default:"100"`
	EquitySamples int    `help:"samples per preflop class equity" default:"2000"`
	Linear        bool   `help:"weight strategy sums linearly by iteration"`
	Config        string `help:"HCL config file; replaces the tuning flags" type:"existingfile" optional:""`
	ClusterTables string `help:"path to trained centroid tables" type:"existingfile" optional:""`
	ResumeFrom    string `help:"resume training from an existing artifact" type:"existingfile" optional:""`
	CPUProfile    string `help:"write CPU profile to file" optional:""`
}

type ClustersCmd struct {
	Out     string `help:"path to write the centroid tables" required:""`
	Streets string `help:"streets to train" enum:"all,flop,turn,river" default:"all"`
	Samples int    `help:"sampled deals per street" default:"5000"`
	Seed    int64  `help:"random seed" default:"1"`
}

type InspectCmd struct {
	Artifact string `arg:"" help:"path to the strategy artifact" type:"existingfile"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("solver"),
		kong.Description("Heads-up hold'em CFR solver tooling"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch ctx.Command() {
	case "train":
		if err := cli.Train.Run(runCtx); err != nil {
			log.Fatal().Err(err).Msg("training failed")
		}
	case "clusters":
		if err := cli.Clusters.Run(runCtx); err != nil {
			log.Fatal().Err(err).Msg("cluster training failed")
		}
	case "inspect <artifact>":
		if err := cli.Inspect.Run(); err != nil {
			log.Fatal().Err(err).Msg("inspect failed")
		}
	default:
		log.Fatal().Msgf("unknown command: %s", ctx.Command())
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

func (cmd *TrainCmd) Run(ctx context.Context) error {
	if cmd.CPUProfile != "" {
		f, err := os.Create(cmd.CPUProfile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", cmd.CPUProfile).Msg("CPU profiling enabled")
	}

	cfg, err := cmd.trainingConfig()
	if err != nil {
		return err
	}

	absCfg := abstraction.DefaultConfig()
	var tables *abstraction.Tables
	if cmd.ClusterTables != "" {
		if tables, err = abstraction.LoadTables(cmd.ClusterTables); err != nil {
			return fmt.Errorf("load cluster tables: %w", err)
		}
		log.Info().Str("path", cmd.ClusterTables).Msg("centroid tables loaded")
	}

	mapper, err := abstraction.NewMapper(absCfg, tables, cfg.Seed)
	if err != nil {
		return err
	}

	trainer, err := cfr.NewTrainer(cfg, mapper, log.Logger, nil)
	if err != nil {
		return err
	}

	if cmd.ResumeFrom != "" {
		artifact, err := strategy.Load(cmd.ResumeFrom)
		if err != nil {
			return fmt.Errorf("load artifact: %w", err)
		}
		if err := trainer.Resume(artifact); err != nil {
			return err
		}
		log.Info().
			Str("path", cmd.ResumeFrom).
			Int("iterations", trainer.Iterations()).
			Msg("resumed from artifact")
	}

	log.Info().
		Str("variant", cfg.Variant).
		Int("iterations", cfg.Iterations).
		Int("batches", cfg.Batches).
		Int("workers", cfg.Workers).
		Int64("seed", cfg.Seed).
		Msg("training started")

	if err := trainer.Run(ctx); err != nil {
		return err
	}

	log.Info().
		Int("iterations", trainer.Iterations()).
		Int("infosets", trainer.InfoSets()).
		Str("output", cfg.OutputPath).
		Msg("training complete")
	return nil
}

// trainingConfig resolves the run parameters: an HCL file when given, the
// tuning flags otherwise. The output path always comes from --out.
func (cmd *TrainCmd) trainingConfig() (cfr.TrainingConfig, error) {
	if cmd.Config != "" {
		cfg, err := cfr.LoadTrainingConfig(cmd.Config)
		if err != nil {
			return cfg, err
		}
		cfg.OutputPath = cmd.Out
		return cfg, cfg.Validate()
	}

	cfg := cfr.DefaultTrainingConfig()
	cfg.Variant = cmd.Variant
	cfg.Iterations = cmd.Iterations
	cfg.Batches = cmd.Batches
	cfg.Workers = cmd.Workers
	cfg.Seed = cmd.Seed
	cfg.SmallBlind = cmd.SmallBlind
	cfg.BigBlind = cmd.BigBlind
	cfg.Stack = cmd.Stack
	cfg.EquitySamples = cmd.EquitySamples
	cfg.LinearWeighting = cfg.LinearWeighting || cmd.Linear
	cfg.OutputPath = cmd.Out
	return cfg, cfg.Validate()
}

func (cmd *ClustersCmd) Run(ctx context.Context) error {
	cfg := abstraction.DefaultConfig()
	rng := randutil.New(cmd.Seed)

	tables := &abstraction.Tables{Version: 1, Checksum: cfg.Checksum()}

	train := func(name string, boardSize int, dst **abstraction.ClusterTable) error {
		if cmd.Streets != "all" && cmd.Streets != name {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		log.Info().Str("street", name).Int("samples", cmd.Samples).Msg("clustering street")
		table, err := abstraction.TrainClusters(cfg, boardSize, cmd.Samples, rng)
		if err != nil {
			return fmt.Errorf("cluster %s: %w", name, err)
		}
		*dst = table
		return nil
	}

	if err := train("flop", 3, &tables.Flop); err != nil {
		return err
	}
	if err := train("turn", 4, &tables.Turn); err != nil {
		return err
	}
	if err := train("river", 5, &tables.River); err != nil {
		return err
	}

	if err := tables.Save(cmd.Out); err != nil {
		return err
	}
	log.Info().Str("output", cmd.Out).Msg("centroid tables written")
	return nil
}

func (cmd *InspectCmd) Run() error {
	artifact, err := strategy.Load(cmd.Artifact)
	if err != nil {
		return err
	}

	fmt.Printf("version:     %d\n", artifact.Version)
	fmt.Printf("run id:      %s\n", artifact.RunID)
	fmt.Printf("variant:     %s\n", artifact.Variant)
	fmt.Printf("weighting:   %s\n", artifact.Weighting)
	fmt.Printf("iterations:  %d\n", artifact.TrainedIterations)
	fmt.Printf("timestamp:   %s\n", artifact.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("abstraction: %s\n", artifact.AbstractionChecksum)
	fmt.Printf("infosets:    %d\n", len(artifact.Entries))
	return nil
}
