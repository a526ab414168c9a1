// Package engine resolves duels between two parsed weapons. A Duel is
// immutable once built; every trial runs on caller-supplied randomness so
// results are reproducible from a seed.
package engine

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/andromeda-ttrpg/gearsim/internal/loadout"
	"github.com/andromeda-ttrpg/gearsim/internal/rules"
)

// EngineError marks a state that validated input can never produce.
// Reaching one mid-request is a bug, not a caller mistake.
type EngineError struct {
	Msg string
}

func (e *EngineError) Error() string { return e.Msg }

// Config describes one matchup. Both combatants fight with the stat line
// of Rank; the weapons' own ranks only gate statuses and cover rules.
type Config struct {
	Rank            int
	Weapon1         *loadout.WeaponSpec
	Weapon2         *loadout.WeaponSpec
	MaxRounds       int
	InitialDistance float64
}

// Duel is a prepared matchup. Safe for concurrent Run calls as long as
// each caller brings its own rand source.
type Duel struct {
	params          rules.RankParams
	weapons         [2]*loadout.WeaponSpec
	maxRounds       int
	initialDistance float64
}

// Outcome is the result of a single trial.
type Outcome struct {
	Weapon1Won bool
	Rounds     int
}

// New validates the matchup config. Callers are expected to have run
// loadout validation already, so failures here are engine errors.
func New(cfg Config) (*Duel, error) {
	params, ok := rules.RankParamsByRank[cfg.Rank]
	if !ok {
		return nil, &EngineError{Msg: fmt.Sprintf("no rank parameters for rank %d", cfg.Rank)}
	}
	if cfg.Weapon1 == nil || cfg.Weapon2 == nil {
		return nil, &EngineError{Msg: "duel requires two weapons"}
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = rules.DefaultMaxRounds
	}
	if cfg.InitialDistance == 0 {
		cfg.InitialDistance = rules.DefaultInitialDistance
	}
	if cfg.InitialDistance < rules.DistanceMin || cfg.InitialDistance > rules.DistanceMax {
		return nil, &EngineError{Msg: fmt.Sprintf("initial distance %.1f outside [%.0f, %.0f]",
			cfg.InitialDistance, rules.DistanceMin, rules.DistanceMax)}
	}
	return &Duel{
		params:          params,
		weapons:         [2]*loadout.WeaponSpec{cfg.Weapon1, cfg.Weapon2},
		maxRounds:       cfg.MaxRounds,
		initialDistance: cfg.InitialDistance,
	}, nil
}

// Run plays one trial to the death or the round cap. The attacker side
// acts fully first each round; when the cap runs out the defender side
// wins, so a trial never draws.
func (d *Duel) Run(rng *rand.Rand, weapon1Attacks bool) Outcome {
	var att, def fighter
	if weapon1Attacks {
		att.reset(d.weapons[0], d.params.HP)
		def.reset(d.weapons[1], d.params.HP)
	} else {
		att.reset(d.weapons[1], d.params.HP)
		def.reset(d.weapons[0], d.params.HP)
	}

	distance := d.initialDistance
	rounds := 0

	for rounds < d.maxRounds {
		rounds++

		att.actions = rules.ActionsPerRound
		def.actions = rules.ActionsPerRound
		att.reaction = true
		def.reaction = true
		att.moved = false
		def.moved = false

		tickBleed(&att)
		tickBleed(&def)
		if !att.alive() || !def.alive() {
			break
		}

		distance = d.move(rng, &att, &def, distance)

		for att.actions > 0 && att.alive() && def.alive() {
			d.performAttack(rng, &att, &def, distance)
		}
		if att.alive() && def.alive() {
			d.aggressiveReaction(rng, &att, &def, distance)
		}
		for def.actions > 0 && att.alive() && def.alive() {
			d.performAttack(rng, &def, &att, distance)
		}
		if att.alive() && def.alive() {
			d.aggressiveReaction(rng, &def, &att, distance)
		}
		if !att.alive() || !def.alive() {
			break
		}

		if att.slowed > 0 {
			att.slowed--
		}
		if def.slowed > 0 {
			def.slowed--
		}
		if att.immobile > 0 {
			att.immobile--
		}
		if def.immobile > 0 {
			def.immobile--
		}
	}

	attackerWins := !def.alive()
	return Outcome{
		Weapon1Won: attackerWins == weapon1Attacks,
		Rounds:     rounds,
	}
}

func tickBleed(f *fighter) {
	if f.bleed > 0 {
		f.hp -= rules.BleedDamagePerRound
		f.bleed--
	}
}

// move runs the round's movement phase: melee closes on its target (free
// movement plus dash actions), ranged backs away from melee at half speed,
// and leaving a melee fighter's reach can provoke its reaction.
func (d *Duel) move(rng *rand.Rand, att, def *fighter, distance float64) float64 {
	speedAtt := att.effectiveSpeed(d.params.Speed)
	speedDef := def.effectiveSpeed(d.params.Speed)

	prev := distance
	var close, retreat float64

	if att.spec.Melee() && distance > att.spec.Range() && speedAtt > 0 {
		att.moved = true
		close += speedAtt
	}
	if def.spec.Melee() && distance > def.spec.Range() && speedDef > 0 {
		def.moved = true
		close += speedDef
	}
	if !att.spec.Melee() && def.spec.Melee() && speedAtt > 0 {
		att.moved = true
		retreat += speedAtt * rules.RangedRetreatSpeedMult
	}
	if !def.spec.Melee() && att.spec.Melee() && speedDef > 0 {
		def.moved = true
		retreat += speedDef * rules.RangedRetreatSpeedMult
	}
	if close != 0 || retreat != 0 {
		distance = clampDistance(distance - close + retreat)
	}

	distance = d.dash(att, speedAtt, distance)
	distance = d.dash(def, speedDef, distance)

	if att.spec.Melee() != def.spec.Melee() {
		melee, ranged := att, def
		if def.spec.Melee() {
			melee, ranged = def, att
		}
		if prev <= melee.spec.Range() && distance > melee.spec.Range() &&
			melee.reaction && rng.Float64() < rules.OpportunityLeaveChance {
			melee.reaction = false
			d.reactionAttack(rng, melee, ranged, prev)
		}
	}
	return distance
}

// dash converts leftover actions into extra closing movement for a melee
// fighter still out of reach.
func (d *Duel) dash(f *fighter, speed, distance float64) float64 {
	if !f.spec.Melee() || distance <= f.spec.Range() || f.actions <= 0 || speed <= 0 {
		return distance
	}
	gap := distance - f.spec.Range()
	dashActions := int(math.Ceil(gap / speed))
	if dashActions > f.actions {
		dashActions = f.actions
	}
	if dashActions <= 0 {
		return distance
	}
	f.actions -= dashActions
	f.moved = true
	return clampDistance(distance - speed*float64(dashActions))
}

func clampDistance(d float64) float64 {
	if d < rules.DistanceMin {
		return rules.DistanceMin
	}
	if d > rules.DistanceMax {
		return rules.DistanceMax
	}
	return d
}
