package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/andromeda-ttrpg/gearsim/internal/catalog"
	"github.com/andromeda-ttrpg/gearsim/internal/loadout"
	"github.com/andromeda-ttrpg/gearsim/internal/rules"
)

func mustParse(t *testing.T, weaponType, damage string, props []string, rank int) *loadout.WeaponSpec {
	t.Helper()
	w, err := loadout.Parse(catalog.Default(), weaponType, damage, props, rank)
	if err != nil {
		t.Fatalf("parse weapon: %v", err)
	}
	return w
}

func TestRequiredTrials(t *testing.T) {
	// 99% CI at +/-0.25% and worst-case variance: the calibration runs
	// have used this exact count for years.
	n, err := RequiredTrials(rules.TargetMargin, 0.99, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if n != 265396 {
		t.Errorf("RequiredTrials = %d, want 265396", n)
	}

	low, err := RequiredTrials(rules.TargetMargin, 0.9, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if low >= n {
		t.Errorf("lower confidence needs %d trials, >= %d", low, n)
	}
}

func TestRequiredTrialsRejectsBadInputs(t *testing.T) {
	if _, err := RequiredTrials(0, 0.99, 0.5); err == nil {
		t.Error("margin 0 accepted")
	}
	if _, err := RequiredTrials(0.0025, 1, 0.5); err == nil {
		t.Error("confidence 1 accepted")
	}
	if _, err := RequiredTrials(0.0025, -0.5, 0.5); err == nil {
		t.Error("negative confidence accepted")
	}
}

func TestErrorMarginInvertsTrialCount(t *testing.T) {
	n, err := RequiredTrials(rules.TargetMargin, 0.99, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	margin := ErrorMargin(n, 0.99, 0.5)
	if margin > rules.TargetMargin {
		t.Errorf("margin %v wider than target %v at the required count", margin, rules.TargetMargin)
	}
	if margin < rules.TargetMargin*0.99 {
		t.Errorf("margin %v implausibly tight", margin)
	}
}

func TestBuildChunks(t *testing.T) {
	tests := []struct {
		trials, workers int
	}{
		{100, 4},
		{1_000, 1},
		{50_000, 8},
		{265_396, 16},
		{999, 4},
	}
	for _, tc := range tests {
		chunks := buildChunks(tc.trials, tc.workers)
		total := 0
		next := 0
		for _, c := range chunks {
			if c.start != next {
				t.Fatalf("trials=%d workers=%d: chunk starts at %d, want %d", tc.trials, tc.workers, c.start, next)
			}
			if c.size < 1 {
				t.Fatalf("empty chunk at %d", c.start)
			}
			next = c.start + c.size
			total += c.size
		}
		if total != tc.trials {
			t.Fatalf("trials=%d workers=%d: chunks cover %d", tc.trials, tc.workers, total)
		}
		// All but the tail respect the minimum chunk size.
		for i, c := range chunks {
			if i < len(chunks)-1 && tc.trials >= minChunkSize && c.size < minChunkSize {
				t.Fatalf("chunk %d has size %d below minimum", i, c.size)
			}
		}
	}
}

func TestRunRatesSumToOne(t *testing.T) {
	res, err := Run(context.Background(), Params{
		Rank:       1,
		Confidence: 0.99,
		Weapon1:    mustParse(t, "melee", "3", nil, 1),
		Weapon2:    mustParse(t, "ranged", "3", nil, 1),
		TrialCap:   4_000,
		Workers:    2,
		Seed:       20_001,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Exhausted {
		t.Error("trial cap below the required count did not set Exhausted")
	}
	if res.Trials != 4_000 {
		t.Errorf("Trials = %d, want the cap", res.Trials)
	}
	if res.Weapon1Wins+res.Weapon2Wins != res.Trials {
		t.Errorf("wins %d+%d != trials %d", res.Weapon1Wins, res.Weapon2Wins, res.Trials)
	}
	if sum := res.Weapon1WinRate() + res.Weapon2WinRate(); math.Abs(sum-1) > 1e-12 {
		t.Errorf("win rates sum to %v", sum)
	}
	if res.AvgRounds() <= 0 {
		t.Errorf("AvgRounds = %v", res.AvgRounds())
	}
}

func TestRunIdenticalWeaponsNearCoinflip(t *testing.T) {
	w := mustParse(t, "melee", "3", nil, 1)
	res, err := Run(context.Background(), Params{
		Rank:       1,
		Confidence: 0.99,
		Weapon1:    w,
		Weapon2:    w,
		TrialCap:   10_000,
		Workers:    4,
		Seed:       31_337,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rate := res.Weapon1WinRate(); math.Abs(rate-0.5) > 0.05 {
		t.Errorf("identical weapons: weapon1 win rate %v", rate)
	}
}

func TestRunBleedBeatsBare(t *testing.T) {
	res, err := Run(context.Background(), Params{
		Rank:       1,
		Confidence: 0.99,
		Weapon1:    mustParse(t, "melee", "3", []string{"Bleed 3"}, 1),
		Weapon2:    mustParse(t, "melee", "3", nil, 1),
		TrialCap:   10_000,
		Workers:    4,
		Seed:       77,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rate := res.Weapon1WinRate(); rate <= 0.5 {
		t.Errorf("bleed weapon win rate %v, want an edge over the bare weapon", rate)
	}
}

// Swapping the weapon order mirrors the win rates: weapon1's rate in one
// ordering matches weapon2's in the other, within the sampling noise of
// two independent runs.
func TestRunOrderingSymmetry(t *testing.T) {
	bleed := mustParse(t, "melee", "3", []string{"Bleed 2"}, 1)
	bare := mustParse(t, "ranged", "3", nil, 1)

	base := Params{
		Rank:       1,
		Confidence: 0.99,
		TrialCap:   20_000,
		Workers:    4,
	}

	forward := base
	forward.Weapon1, forward.Weapon2, forward.Seed = bleed, bare, 1_234
	resForward, err := Run(context.Background(), forward)
	if err != nil {
		t.Fatal(err)
	}

	reversed := base
	reversed.Weapon1, reversed.Weapon2, reversed.Seed = bare, bleed, 5_678
	resReversed, err := Run(context.Background(), reversed)
	if err != nil {
		t.Fatal(err)
	}

	diff := math.Abs(resForward.Weapon1WinRate() - resReversed.Weapon2WinRate())
	if diff > 0.03 {
		t.Errorf("orderings diverge: %v vs %v (diff %v)",
			resForward.Weapon1WinRate(), resReversed.Weapon2WinRate(), diff)
	}
}

func TestRunDeterministicWithSeed(t *testing.T) {
	params := Params{
		Rank:       2,
		Confidence: 0.99,
		Weapon1:    mustParse(t, "ranged", "4", []string{"Reload 2"}, 2),
		Weapon2:    mustParse(t, "melee", "4", []string{"Reach 1"}, 2),
		TrialCap:   5_000,
		Workers:    3,
		Seed:       424_242,
	}
	first, err := Run(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if *first != *second {
		t.Errorf("same seed diverged:\n%+v\n%+v", first, second)
	}
}

func TestRunValidatesConfidence(t *testing.T) {
	w := mustParse(t, "melee", "3", nil, 1)
	for _, conf := range []float64{0, 1, -0.2, 1.5} {
		_, err := Run(context.Background(), Params{Rank: 1, Confidence: conf, Weapon1: w, Weapon2: w})
		var verr *loadout.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("confidence %v: error %T, want ValidationError", conf, err)
		}
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Params{
		Rank:       1,
		Confidence: 0.99,
		Weapon1:    mustParse(t, "melee", "3", nil, 1),
		Weapon2:    mustParse(t, "melee", "3", nil, 1),
		TrialCap:   100_000,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReportShape(t *testing.T) {
	res := &Result{Weapon1Wins: 600, Weapon2Wins: 400, Trials: 1000, TotalRounds: 5000, Exhausted: true}
	rep := res.Report()
	if rep.Result.Weapon1WinRate != 0.6 || rep.Result.Weapon2WinRate != 0.4 {
		t.Errorf("rates = %v / %v", rep.Result.Weapon1WinRate, rep.Result.Weapon2WinRate)
	}
	if rep.Result.AvgRounds != 5 {
		t.Errorf("avg rounds = %v", rep.Result.AvgRounds)
	}
	if rep.Simulations != 1000 || !rep.Exhausted {
		t.Errorf("simulations = %d exhausted = %v", rep.Simulations, rep.Exhausted)
	}
}
