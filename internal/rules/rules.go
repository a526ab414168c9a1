// Package rules holds the base simulation parameters. Rebalancing the game
// usually means editing the values here and re-running the calibration.
package rules

// RankParams are the base combatant stats derived from character rank.
type RankParams struct {
	Dice    int     // attribute die (d6..d12)
	Skill   int     // flat attack bonus
	HP      float64 // hit points
	Defense float64
	Speed   float64 // meters per move
}

// RankParamsByRank maps rank (1-4) to base stats.
var RankParamsByRank = map[int]RankParams{
	1: {Dice: 6, Skill: 1, HP: 15.0, Defense: 4.0, Speed: 6.0},
	2: {Dice: 8, Skill: 3, HP: 20.0, Defense: 6.0, Speed: 9.0},
	3: {Dice: 10, Skill: 6, HP: 25.0, Defense: 9.0, Speed: 12.0},
	4: {Dice: 12, Skill: 10, HP: 30.0, Defense: 13.0, Speed: 15.0},
}

// BaselineDamageByRank is the damage of a bare weapon with no properties.
var BaselineDamageByRank = map[int]float64{1: 2, 2: 3, 3: 5, 4: 10}

// MaxDamageByRank caps weapon damage per rank (balance guard rail).
var MaxDamageByRank = map[int]float64{1: 4, 2: 6, 3: 10, 4: 20}

const (
	MinRank = 1
	MaxRank = 4
)

// Statistical accuracy parameters.
const (
	Epsilon           = 1e-6
	TargetMargin      = 0.0025
	ExtremeConfidence = 0.999999
)

// Simulation limits.
const (
	DefaultMaxRounds       = 100
	DefaultInitialDistance = 15.0
)

// Turn economy.
const ActionsPerRound = 2

// Distances and movement modifiers (meters).
const (
	MeleeBaseRange         = 2.0
	RangedBaseRange        = 100.0
	RangedRetreatSpeedMult = 0.5
	SlowSpeedMult          = 0.5
	DistanceMin            = 0.0
	DistanceMax            = 100.0
)

// Defense and penetration modifiers.
const (
	MeleeCoverBonus       = 2.0
	MagicDamageMultiplier = 2.5
	SplashDamageMult      = 1.5
	PenetrationBonus      = 2.0
)

// Damage floors so effects never bottom out at zero.
const (
	MinHitDamage         = 1.0
	ArmorPierceMinDamage = 1.0
	DangerousSelfDamage  = 1.0
)

// Status effect parameters.
const (
	BleedDamagePerRound      = 1.0
	SlowDurationRounds       = 2
	ImmobilizeDurationRounds = 2
	StunActionLoss           = 1
)

// Burst fires three shots at disadvantage per attack action.
const BurstShots = 3

// Chance a melee combatant gets a reaction attack when the enemy leaves its
// threat range. Zero in the current ruleset; the mechanism stays wired.
const OpportunityLeaveChance = 0.0

// Weapon type tags.
const (
	WeaponTypeMelee  = "melee"
	WeaponTypeRanged = "ranged"
)

// WeaponTypes lists the valid weapon type tags.
var WeaponTypes = []string{WeaponTypeMelee, WeaponTypeRanged}
