// Package tournament runs calibration tournaments: every single-property
// loadout (plus the bare baselines) fights every other in a round-robin,
// which ranks properties by how much win rate they buy at a given rank.
package tournament

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"

	"github.com/andromeda-ttrpg/gearsim/internal/catalog"
	"github.com/andromeda-ttrpg/gearsim/internal/dice"
	"github.com/andromeda-ttrpg/gearsim/internal/engine"
	"github.com/andromeda-ttrpg/gearsim/internal/loadout"
	"github.com/andromeda-ttrpg/gearsim/internal/rules"
)

// Entry is one tournament contestant.
type Entry struct {
	Name   string
	Weapon *loadout.WeaponSpec
}

// Standing is one contestant's aggregate across all its matchups.
type Standing struct {
	Name           string
	Wins           int
	Losses         int
	Fights         int
	WinRate        float64
	AvgRoundsOnWin float64
}

// Options configure a tournament run.
type Options struct {
	Rank             int
	X                int // magnitude applied to every ranked property
	TrialsPerMatchup int
	Seed             int64 // 0: fresh crypto seed
}

const defaultTrialsPerMatchup = 1_000

// Candidates builds the contestant list: for each catalog property one
// weapon per allowed type carrying that property plus a single reroll,
// and a bare baseline weapon per type. Baseline damage follows the rank.
func Candidates(c *catalog.Catalog, rank, x int) ([]Entry, error) {
	damage := strconv.Itoa(int(rules.BaselineDamageByRank[rank]))

	var entries []Entry
	add := func(name, weaponType string, props []string) error {
		w, err := loadout.Parse(c, weaponType, damage, props, rank)
		if err != nil {
			return fmt.Errorf("candidate %q: %w", name, err)
		}
		entries = append(entries, Entry{Name: name, Weapon: w})
		return nil
	}

	for _, wt := range rules.WeaponTypes {
		if err := add(fmt.Sprintf("%s | baseline", wt), wt, []string{"Reroll"}); err != nil {
			return nil, err
		}
	}
	for _, def := range c.Definitions() {
		if def.Effect == catalog.EffectReroll {
			continue // every contestant already carries one
		}
		prop := def.Name
		if def.Kind == catalog.Ranked {
			prop = fmt.Sprintf("%s %d", def.Name, x)
		}
		// An empty restriction list means the property fits any type.
		types := def.WeaponTypes
		if len(types) == 0 {
			types = rules.WeaponTypes
		}
		for _, wt := range types {
			name := fmt.Sprintf("%s | %s", wt, prop)
			if err := add(name, wt, []string{prop, "Reroll"}); err != nil {
				return nil, err
			}
		}
	}
	return entries, nil
}

// Run plays the full round-robin and returns standings sorted by win rate
// descending.
func Run(ctx context.Context, entries []Entry, opts Options) ([]Standing, error) {
	trials := opts.TrialsPerMatchup
	if trials <= 0 {
		trials = defaultTrialsPerMatchup
	}
	seed := opts.Seed
	if seed == 0 {
		var err error
		if seed, err = dice.NewSeed(); err != nil {
			return nil, fmt.Errorf("seed tournament: %w", err)
		}
	}
	rng := rand.New(rand.NewSource(seed))

	type tally struct {
		wins, losses, fights int
		winRounds            int
		winCount             int
	}
	tallies := make([]tally, len(entries))

	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			duel, err := engine.New(engine.Config{
				Rank:    opts.Rank,
				Weapon1: entries[i].Weapon,
				Weapon2: entries[j].Weapon,
			})
			if err != nil {
				return nil, fmt.Errorf("matchup %q vs %q: %w", entries[i].Name, entries[j].Name, err)
			}
			for t := 0; t < trials; t++ {
				out := duel.Run(rng, t%2 == 0)
				if out.Weapon1Won {
					tallies[i].wins++
					tallies[i].winRounds += out.Rounds
					tallies[i].winCount++
					tallies[j].losses++
				} else {
					tallies[j].wins++
					tallies[j].winRounds += out.Rounds
					tallies[j].winCount++
					tallies[i].losses++
				}
			}
			tallies[i].fights += trials
			tallies[j].fights += trials
		}
	}

	standings := make([]Standing, len(entries))
	for i, e := range entries {
		t := tallies[i]
		s := Standing{Name: e.Name, Wins: t.wins, Losses: t.losses, Fights: t.fights}
		if t.fights > 0 {
			s.WinRate = float64(t.wins) / float64(t.fights)
		}
		if t.winCount > 0 {
			s.AvgRoundsOnWin = float64(t.winRounds) / float64(t.winCount)
		}
		standings[i] = s
	}
	sort.SliceStable(standings, func(a, b int) bool {
		return standings[a].WinRate > standings[b].WinRate
	})
	return standings, nil
}

// WriteCSV writes the ranking as CSV. Contestant names keep the
// "type | property" shape the balance sheets use, so the delimiter stays
// a plain comma.
func WriteCSV(w io.Writer, standings []Standing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"weapon", "win_rate", "avg_rounds_on_win", "fights"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range standings {
		rec := []string{
			s.Name,
			strconv.FormatFloat(s.WinRate, 'f', 4, 64),
			strconv.FormatFloat(s.AvgRoundsOnWin, 'f', 1, 64),
			strconv.Itoa(s.Fights),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
