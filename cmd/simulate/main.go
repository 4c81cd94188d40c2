// Package main provides a command-line battle simulator that prints the
// narrative and checksum ledger of a single battle.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ascension/internal/config"
	"github.com/cory-johannsen/ascension/internal/game/battle"
	"github.com/cory-johannsen/ascension/internal/game/catalog"
	"github.com/cory-johannsen/ascension/internal/observability"
)

func main() {
	teamA := flag.String("team-a", "sophia,endrit,grace", "comma-separated character ids for team A")
	teamB := flag.String("team-b", "liya,yohanna,oliver", "comma-separated character ids for team B")
	seed := flag.String("seed", battle.DefaultSeed, "battle seed")
	rosterPath := flag.String("roster", "", "roster YAML file; empty uses the built-in roster")
	maxRounds := flag.Int("max-rounds", battle.MaxRounds, "round cap")
	verify := flag.Bool("verify", false, "replay the battle and compare checksum ledgers")
	checkmate := flag.Bool("checkmate", false, "run the scripted ascended finisher instead")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger, err := observability.NewLogger(config.LoggingConfig{Level: *level, Format: "console"}, "simulate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cat := catalog.MustDefault()
	if *rosterPath != "" {
		if cat, err = catalog.LoadFile(*rosterPath); err != nil {
			logger.Fatal("loading roster", zap.Error(err))
		}
	}
	engine, err := battle.NewEngine(cat, logger)
	if err != nil {
		logger.Fatal("creating battle engine", zap.Error(err))
	}

	var res *battle.Result
	if *checkmate {
		res, err = engine.Checkmate()
	} else {
		res, err = engine.SimulateIDs(ids(*teamA), ids(*teamB), *seed, battle.WithMaxRounds(*maxRounds))
	}
	if err != nil {
		logger.Fatal("simulating", zap.Error(err))
	}
	printResult(res)

	if *verify && !*checkmate {
		v, err := battle.VerifyReplays(*seed, func(seed string) ([]battle.Snapshot, error) {
			r, err := engine.SimulateIDs(ids(*teamA), ids(*teamB), seed, battle.WithMaxRounds(*maxRounds))
			if err != nil {
				return nil, err
			}
			return r.Snapshots, nil
		})
		if err != nil {
			logger.Fatal("verifying replays", zap.Error(err))
		}
		fmt.Printf("\nreplay consistent=%v mismatches=%d\n", v.Consistent, v.Mismatches)
		if !v.Consistent {
			os.Exit(1)
		}
	}
}

func ids(list string) []string {
	var out []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func printResult(res *battle.Result) {
	for _, e := range res.Events {
		fmt.Printf("[%s] %s\n", e.Kind, e.Detail)
	}
	fmt.Printf("\nseed=%s outcome=%s rounds=%d", res.Seed, res.Outcome, res.Rounds)
	if res.Winner != nil {
		fmt.Printf(" winner=team%d", *res.Winner)
	}
	fmt.Println()
	for _, f := range res.Final.Fighters {
		fmt.Printf("  %-24s team=%d hp=%d/%d energy=%.1f\n", f.ID, f.Team, f.Health, f.Character.MaxHealth, f.Energy)
	}
	fmt.Println("\nledger:")
	for _, s := range res.Snapshots {
		fmt.Printf("  %3d %s\n", s.Round, s.Checksum)
	}
}
