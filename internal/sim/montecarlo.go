// Package sim runs matchups as batches of independent duel trials and
// aggregates them into win-rate statistics.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/andromeda-ttrpg/gearsim/internal/dice"
	"github.com/andromeda-ttrpg/gearsim/internal/engine"
	"github.com/andromeda-ttrpg/gearsim/internal/loadout"
	"github.com/andromeda-ttrpg/gearsim/internal/rules"
)

const (
	// DefaultTrialCap bounds a single request. Hitting it degrades the
	// confidence target instead of failing the request.
	DefaultTrialCap = 5_000_000

	chunksPerWorker = 4
	minChunkSize    = 1_000

	cancelCheckEvery = 1 << 12
)

func clampProb(p float64) float64 {
	if p < rules.Epsilon {
		return rules.Epsilon
	}
	if p > 1-rules.Epsilon {
		return 1 - rules.Epsilon
	}
	return p
}

func zScore(confidence float64) float64 {
	return math.Sqrt2 * math.Erfinv(confidence)
}

// RequiredTrials returns the trial count for a two-sided binomial
// proportion CI with the given absolute margin, using the normal
// approximation. winRate 0.5 gives the worst-case variance.
func RequiredTrials(margin, confidence, winRate float64) (int, error) {
	if margin <= 0 || margin >= 1 {
		return 0, fmt.Errorf("margin %g out of range (0, 1)", margin)
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, fmt.Errorf("confidence %g out of range (0, 1)", confidence)
	}
	winRate = clampProb(winRate)
	z := zScore(confidence)
	n := z * z * winRate * (1 - winRate) / (margin * margin)
	if n < 1 {
		return 1, nil
	}
	return int(math.Ceil(n)), nil
}

// ErrorMargin is the inverse: the absolute margin a given trial count
// buys at the given confidence.
func ErrorMargin(trials int, confidence, winRate float64) float64 {
	if trials <= 0 {
		return 1
	}
	winRate = clampProb(winRate)
	return zScore(confidence) * math.Sqrt(winRate*(1-winRate)/float64(trials))
}

// Params describes one simulation request.
type Params struct {
	Rank       int
	Confidence float64
	Weapon1    *loadout.WeaponSpec
	Weapon2    *loadout.WeaponSpec

	MaxRounds       int     // 0: rules.DefaultMaxRounds
	InitialDistance float64 // 0: rules.DefaultInitialDistance
	TrialCap        int     // 0: DefaultTrialCap
	Workers         int     // 0: GOMAXPROCS
	Seed            int64   // 0: fresh crypto seed per chunk

	// OnProgress, when set, is called after each finished chunk with the
	// running completed count and the total. Calls may come from any
	// worker but never overlap.
	OnProgress func(done, total int)
}

// Result aggregates all trials of one matchup.
type Result struct {
	Weapon1Wins int
	Weapon2Wins int
	Trials      int
	TotalRounds int

	// Exhausted is set when the trial cap truncated the run, so the
	// achieved margin is wider than requested.
	Exhausted bool
}

func (r *Result) Weapon1WinRate() float64 {
	total := r.Weapon1Wins + r.Weapon2Wins
	if total == 0 {
		return 0
	}
	return float64(r.Weapon1Wins) / float64(total)
}

func (r *Result) Weapon2WinRate() float64 {
	if r.Weapon1Wins+r.Weapon2Wins == 0 {
		return 0
	}
	return 1 - r.Weapon1WinRate()
}

func (r *Result) AvgRounds() float64 {
	if r.Trials == 0 {
		return 0
	}
	return float64(r.TotalRounds) / float64(r.Trials)
}

type chunk struct {
	start int
	size  int
}

// buildChunks splits trials into contiguous chunks sized for the worker
// count. Chunk boundaries carry the global trial index so the
// attacker-alternation parity is identical no matter how work is split.
func buildChunks(trials, workers int) []chunk {
	if trials <= 0 {
		return nil
	}
	targetChunks := workers * chunksPerWorker
	if targetChunks < 1 {
		targetChunks = 1
	}
	size := trials / targetChunks
	if size < 1 {
		size = 1
	}
	if trials >= minChunkSize && size < minChunkSize {
		size = minChunkSize
	}
	var chunks []chunk
	for start := 0; start < trials; start += size {
		n := size
		if start+n > trials {
			n = trials - start
		}
		chunks = append(chunks, chunk{start: start, size: n})
	}
	return chunks
}

// Run executes the full matchup. Trials are independent; the first
// trial's attacker is weapon 1 and sides alternate by trial parity, so
// win rates always sum to one and neither side keeps the initiative
// advantage.
func Run(ctx context.Context, p Params) (*Result, error) {
	if p.Confidence <= 0 || p.Confidence >= 1 {
		return nil, &loadout.ValidationError{
			Msg: fmt.Sprintf("confidence %g out of range (0, 1)", p.Confidence),
		}
	}
	duel, err := engine.New(engine.Config{
		Rank:            p.Rank,
		Weapon1:         p.Weapon1,
		Weapon2:         p.Weapon2,
		MaxRounds:       p.MaxRounds,
		InitialDistance: p.InitialDistance,
	})
	if err != nil {
		return nil, err
	}

	trials, err := RequiredTrials(rules.TargetMargin, p.Confidence, 0.5)
	if err != nil {
		return nil, &loadout.ValidationError{Msg: err.Error()}
	}
	trialCap := p.TrialCap
	if trialCap <= 0 {
		trialCap = DefaultTrialCap
	}
	res := &Result{}
	if trials > trialCap {
		trials = trialCap
		res.Exhausted = true
	}
	res.Trials = trials

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunks := buildChunks(trials, workers)
	if len(chunks) < workers {
		workers = len(chunks)
	}

	var (
		w1Wins, w2Wins, totalRounds atomic.Int64
		done                        atomic.Int64
		progressMu                  sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range chunks {
		if err := gctx.Err(); err != nil {
			break
		}
		c := c
		g.Go(func() error {
			seed := p.Seed + int64(c.start)
			if p.Seed == 0 {
				var err error
				if seed, err = dice.NewSeed(); err != nil {
					return fmt.Errorf("seed chunk at %d: %w", c.start, err)
				}
			}
			rng := rand.New(rand.NewSource(seed))

			var cw1, cw2, rounds int
			for i := 0; i < c.size; i++ {
				if i%cancelCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out := duel.Run(rng, (c.start+i)%2 == 0)
				if out.Weapon1Won {
					cw1++
				} else {
					cw2++
				}
				rounds += out.Rounds
			}
			w1Wins.Add(int64(cw1))
			w2Wins.Add(int64(cw2))
			totalRounds.Add(int64(rounds))
			if p.OnProgress != nil {
				progressMu.Lock()
				p.OnProgress(int(done.Add(int64(c.size))), trials)
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The caller's context, not the group's: the group context is done as
	// soon as Wait returns.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Weapon1Wins = int(w1Wins.Load())
	res.Weapon2Wins = int(w2Wins.Load())
	res.TotalRounds = int(totalRounds.Load())
	return res, nil
}
