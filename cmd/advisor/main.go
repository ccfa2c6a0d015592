// Command advisor answers live-hand queries from a trained strategy
// artifact: equities, action recommendations and hand comparisons.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/holdem-solver/internal/abstraction"
	"github.com/lox/holdem-solver/internal/advisor"
	"github.com/lox/holdem-solver/internal/deck"
)

var cli struct {
	Debug    bool   `help:"enable debug logging"`
	Artifact string `help:"path to a trained strategy artifact" optional:""`
	Clusters string `help:"path to trained centroid tables" optional:""`

	Equity    EquityCmd    `cmd:"" help:"estimate hole-card equity against a random hand"`
	Recommend RecommendCmd `cmd:"" help:"recommend an action for a live state"`
	Compare   CompareCmd   `cmd:"" help:"compare two hands on a board"`
}

type EquityCmd struct {
	Hole  string `arg:"" help:"hole cards, e.g. AhKd"`
	Board string `arg:"" optional:"" help:"board cards, e.g. Qh7s2c"`
}

type RecommendCmd struct {
	Hole         string `help:"hole cards, e.g. AhKd" required:""`
	Board        string `help:"board cards" optional:""`
	Pot          int    `help:"current pot size" required:""`
	ToCall       int    `help:"chips needed to call" default:"0"`
	Stack        int    `help:"hero's remaining stack" required:""`
	VillainStack int    `help:"villain's remaining stack" default:"0"`
	BigBlind     int    `help:"big blind size" default:"2"`
	History      string `help:"canonical betting history, e.g. c/kbMID/" default:""`
}

type CompareCmd struct {
	Board string `arg:"" help:"board cards, e.g. QhJdTs2c2d"`
	HandA string `arg:"" help:"first hole pair"`
	HandB string `arg:"" help:"second hole pair"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("advisor"),
		kong.Description("Query service over a trained CFR strategy"),
		kong.UsageOnError(),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if cli.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	adv, err := buildAdvisor(logger)
	if err != nil {
		logger.Fatal("advisor setup failed", "err", err)
	}

	switch ctx.Command() {
	case "equity <hole>", "equity <hole> <board>":
		err = cli.Equity.Run(adv)
	case "recommend":
		err = cli.Recommend.Run(adv)
	case "compare <board> <hand-a> <hand-b>":
		err = cli.Compare.Run(adv)
	default:
		logger.Fatal("unknown command", "command", ctx.Command())
	}
	if err != nil {
		logger.Fatal("query failed", "err", err)
	}
}

// buildAdvisor loads the artifact and centroid tables when given. Artifact
// problems degrade to the equity fallback rather than failing the query.
func buildAdvisor(logger *log.Logger) (*advisor.Advisor, error) {
	cfg := abstraction.DefaultConfig()

	var tables *abstraction.Tables
	if cli.Clusters != "" {
		t, err := abstraction.LoadTables(cli.Clusters)
		if err != nil {
			logger.Warn("centroid tables unavailable, using equity buckets", "err", err)
		} else {
			tables = t
		}
	}

	mapper, err := abstraction.NewMapper(cfg, tables, 1)
	if err != nil {
		return nil, err
	}

	if cli.Artifact == "" {
		logger.Debug("no artifact configured, equity fallback only")
		return advisor.New(nil, mapper), nil
	}

	adv, err := advisor.Load(cli.Artifact, mapper)
	if err != nil {
		logger.Warn("artifact unavailable, using equity fallback", "path", cli.Artifact, "err", err)
		return advisor.New(nil, mapper), nil
	}
	logger.Debug("artifact loaded", "path", cli.Artifact)
	return adv, nil
}

func (cmd *EquityCmd) Run(adv *advisor.Advisor) error {
	hole, err := deck.ParseCards(cmd.Hole)
	if err != nil {
		return err
	}
	board, err := parseOptionalCards(cmd.Board)
	if err != nil {
		return err
	}

	eq, err := adv.Equity(hole, board)
	if err != nil {
		return err
	}
	fmt.Printf("equity: %.4f\n", eq)
	return nil
}

func (cmd *RecommendCmd) Run(adv *advisor.Advisor) error {
	hole, err := deck.ParseCards(cmd.Hole)
	if err != nil {
		return err
	}
	board, err := parseOptionalCards(cmd.Board)
	if err != nil {
		return err
	}

	rec, err := adv.Recommend(advisor.Query{
		Hole:         hole,
		Board:        board,
		Pot:          cmd.Pot,
		ToCall:       cmd.ToCall,
		HeroStack:    cmd.Stack,
		VillainStack: cmd.VillainStack,
		BigBlind:     cmd.BigBlind,
		History:      cmd.History,
	})
	if err != nil {
		return err
	}

	fmt.Printf("action: %s", rec.Action)
	if rec.Amount > 0 {
		fmt.Printf(" (%d chips)", rec.Amount)
	}
	fmt.Printf("\nequity: %.4f\n", rec.Equity)

	tags := make([]string, 0, len(rec.Distribution))
	for tag := range rec.Distribution {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Printf("  %-5s %.4f\n", tag, rec.Distribution[tag])
	}
	return nil
}

func (cmd *CompareCmd) Run(adv *advisor.Advisor) error {
	board, err := deck.ParseCards(cmd.Board)
	if err != nil {
		return err
	}
	handA, err := deck.ParseCards(cmd.HandA)
	if err != nil {
		return err
	}
	handB, err := deck.ParseCards(cmd.HandB)
	if err != nil {
		return err
	}

	result, err := adv.Compare(board, handA, handB)
	if err != nil {
		return err
	}

	switch result {
	case 1:
		fmt.Printf("%s wins\n", cmd.HandA)
	case -1:
		fmt.Printf("%s wins\n", cmd.HandB)
	default:
		fmt.Println("split pot")
	}
	return nil
}

func parseOptionalCards(s string) ([]deck.Card, error) {
	if s == "" {
		return nil, nil
	}
	return deck.ParseCards(s)
}
