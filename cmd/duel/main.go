// gearsim CLI: run a custom weapon duel or a calibration tournament from
// the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/andromeda-ttrpg/gearsim/internal/catalog"
	"github.com/andromeda-ttrpg/gearsim/internal/loadout"
	"github.com/andromeda-ttrpg/gearsim/internal/logging"
	"github.com/andromeda-ttrpg/gearsim/internal/rules"
	"github.com/andromeda-ttrpg/gearsim/internal/sim"
	"github.com/andromeda-ttrpg/gearsim/internal/tournament"
)

func main() {
	var (
		rank       = flag.Int("rank", 1, "character rank (1-4)")
		confidence = flag.Float64("confidence", 0.99, "confidence level for the win-rate estimate")
		distance   = flag.Float64("distance", rules.DefaultInitialDistance, "starting distance in meters")
		seed       = flag.Int64("seed", 0, "RNG seed (0: random)")
		workers    = flag.Int("workers", 0, "parallel workers (0: all CPUs)")
		trialCap   = flag.Int("cap", 0, "trial cap (0: default)")
		catalogCSV = flag.String("catalog", "", "property catalog CSV (default: built-in)")

		type1   = flag.String("type1", "melee", "weapon 1 type (melee or ranged)")
		damage1 = flag.String("damage1", "3", "weapon 1 damage expression")
		props1  = flag.String("props1", "", "weapon 1 properties, comma separated")
		wrank1  = flag.Int("wrank1", 0, "weapon 1 rank (0: character rank)")

		type2   = flag.String("type2", "ranged", "weapon 2 type (melee or ranged)")
		damage2 = flag.String("damage2", "3", "weapon 2 damage expression")
		props2  = flag.String("props2", "", "weapon 2 properties, comma separated")
		wrank2  = flag.Int("wrank2", 0, "weapon 2 rank (0: character rank)")

		tourney = flag.Bool("tournament", false, "run the single-property round-robin tournament instead of a duel")
		xValue  = flag.Int("x", 1, "tournament: X value for ranked properties")
		trials  = flag.Int("trials", 0, "tournament: trials per matchup (0: default)")
		outPath = flag.String("o", "", "tournament: CSV output path (default: stdout)")
	)
	flag.Parse()

	log := logging.New()

	cat := catalog.Default()
	if *catalogCSV != "" {
		var err error
		cat, err = catalog.LoadFile(*catalogCSV)
		if err != nil {
			log.WithError(err).Fatal("load property catalog")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *tourney {
		runTournament(ctx, log, cat, *rank, *xValue, *trials, *seed, *outPath)
		return
	}

	w1 := mustWeapon(log, cat, "weapon1", *type1, *damage1, *props1, pick(*wrank1, *rank))
	w2 := mustWeapon(log, cat, "weapon2", *type2, *damage2, *props2, pick(*wrank2, *rank))
	warnOverMax(log, "weapon1", w1, *rank)
	warnOverMax(log, "weapon2", w2, *rank)

	res, err := sim.Run(ctx, sim.Params{
		Rank:            *rank,
		Confidence:      *confidence,
		Weapon1:         w1,
		Weapon2:         w2,
		InitialDistance: *distance,
		TrialCap:        *trialCap,
		Workers:         *workers,
		Seed:            *seed,
	})
	if err != nil {
		log.WithError(err).Fatal("simulation failed")
	}

	extreme := sim.ErrorMargin(res.Trials, rules.ExtremeConfidence, 0.5)
	fmt.Printf("Simulations: %d", res.Trials)
	if res.Exhausted {
		fmt.Printf(" (capped; achieved margin wider than %.2f%%)", rules.TargetMargin*100)
	}
	fmt.Println()
	fmt.Printf("Target accuracy: %.3g%% CI, +/- %.2f%%\n", *confidence*100, rules.TargetMargin*100)
	fmt.Printf("Max deviation (1 in 1,000,000): +/- %.2f%%\n", extreme*100)
	fmt.Println()
	fmt.Printf("Weapon 1 (%s %s): %.2f%%\n", w1.WeaponType, w1.Damage, res.Weapon1WinRate()*100)
	fmt.Printf("Weapon 2 (%s %s): %.2f%%\n", w2.WeaponType, w2.Damage, res.Weapon2WinRate()*100)
	fmt.Printf("Average rounds: %.1f\n", res.AvgRounds())
}

func pick(weaponRank, duelRank int) int {
	if weaponRank != 0 {
		return weaponRank
	}
	return duelRank
}

func mustWeapon(log *logrus.Logger, cat *catalog.Catalog, label, weaponType, damage, props string, rank int) *loadout.WeaponSpec {
	var propList []string
	if strings.TrimSpace(props) != "" {
		propList = []string{props}
	}
	w, err := loadout.Parse(cat, weaponType, damage, propList, rank)
	if err != nil {
		log.Fatalf("%s: %v", label, err)
	}
	return w
}

func warnOverMax(log *logrus.Logger, label string, w *loadout.WeaponSpec, rank int) {
	if limit, ok := rules.MaxDamageByRank[rank]; ok && w.Damage.Mean() > limit {
		log.Warnf("%s: average damage %.1f exceeds the rank %d cap of %.0f", label, w.Damage.Mean(), rank, limit)
	}
}

func runTournament(ctx context.Context, log *logrus.Logger, cat *catalog.Catalog, rank, x, trials int, seed int64, outPath string) {
	entries, err := tournament.Candidates(cat, rank, x)
	if err != nil {
		log.Fatalf("build candidates: %v", err)
	}
	log.Infof("tournament: %d contestants, rank %d, X=%d", len(entries), rank, x)

	standings, err := tournament.Run(ctx, entries, tournament.Options{
		Rank:             rank,
		X:                x,
		TrialsPerMatchup: trials,
		Seed:             seed,
	})
	if err != nil {
		log.Fatalf("tournament failed: %v", err)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("create %s: %v", outPath, err)
		}
		defer f.Close()
		out = f
	}
	if err := tournament.WriteCSV(out, standings); err != nil {
		log.Fatalf("write ranking: %v", err)
	}
}
