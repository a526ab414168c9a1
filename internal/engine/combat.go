package engine

import (
	"math/rand"

	"github.com/andromeda-ttrpg/gearsim/internal/loadout"
	"github.com/andromeda-ttrpg/gearsim/internal/rules"
)

// fighter is the per-trial mutable state of one combatant. Each trial owns
// its pair of fighters; nothing here is shared across goroutines.
type fighter struct {
	spec       *loadout.WeaponSpec
	hp         float64
	actions    int
	reaction   bool
	moved      bool
	shots      int
	mustReload bool
	bleed      int
	slowed     int
	immobile   int
	rerolls    int
}

func (f *fighter) reset(spec *loadout.WeaponSpec, hp float64) {
	*f = fighter{
		spec:    spec,
		hp:      hp,
		rerolls: spec.Effects.Rerolls,
	}
}

func (f *fighter) alive() bool { return f.hp > 0 }

// effectiveSpeed applies movement statuses to the shared rank speed.
func (f *fighter) effectiveSpeed(base float64) float64 {
	if f.immobile > 0 {
		return 0
	}
	if f.slowed > 0 {
		return base * rules.SlowSpeedMult
	}
	return base
}

func rollDie(rng *rand.Rand, sides int) int { return 1 + rng.Intn(sides) }

// evaluateRoll resolves a single to-hit roll for att: raw die, Dangerous
// self-damage, Accuracy and Guarantee adjustments, then the hit check and
// margin damage against the supplied defense value.
func (d *Duel) evaluateRoll(rng *rand.Rand, att *fighter, defense, stabilization, penetration float64, disadvantage bool) (hit bool, damage float64) {
	roll := rollDie(rng, d.params.Dice)
	if disadvantage {
		if second := rollDie(rng, d.params.Dice); second < roll {
			roll = second
		}
	}
	raw := roll
	if danger := att.spec.Effects.Dangerous; danger > 0 && raw >= danger {
		att.hp -= rules.DangerousSelfDamage
	}
	if acc := att.spec.Effects.Accuracy; acc > 0 {
		roll += acc
		if roll > d.params.Dice {
			roll = d.params.Dice
		}
	}
	if g := att.spec.Effects.Guarantee; g > 0 && roll != 1 && roll < g {
		roll = g
	}
	total := float64(roll+d.params.Skill) + stabilization + penetration
	if total < defense {
		return false, 0
	}
	damage = total - defense + float64(att.spec.Damage.Roll(rng))
	if raw == d.params.Dice {
		damage += float64(att.spec.Effects.Escalation)
	}
	return true, damage
}

// rollAttack resolves one shot from att against def at the given distance:
// cover, stabilization, rerolls on a miss, Armor Pierce chip damage, then
// the Magical and Splash damage adjustments. shotFired is false when the
// target is simply out of range.
func (d *Duel) rollAttack(rng *rand.Rand, att, def *fighter, distance float64, disadvantage bool) (hit bool, damage float64, shotFired bool) {
	if distance > att.spec.Range() {
		return false, 0, false
	}
	canAffect := att.spec.Rank >= def.spec.Rank

	var stabilization float64
	if att.spec.Effects.Stabilization > 0 && !att.moved {
		stabilization = float64(att.spec.Effects.Stabilization)
	}

	defense := d.params.Defense
	var penetration float64
	// A melee target beyond its own reach counts as in cover against
	// ranged fire.
	meleeCover := !att.spec.Melee() && def.spec.Melee() && distance > def.spec.Range()
	if meleeCover {
		defense += rules.MeleeCoverBonus
		if att.spec.Effects.Penetration > 0 && canAffect {
			penetration = rules.PenetrationBonus
		}
	}

	hit, damage = d.evaluateRoll(rng, att, defense, stabilization, penetration, disadvantage)
	if !hit {
		damage = 0
		for att.rerolls > 0 {
			att.rerolls--
			var rerollDamage float64
			hit, rerollDamage = d.evaluateRoll(rng, att, defense, stabilization, penetration, disadvantage)
			if hit {
				damage = rerollDamage
				break
			}
		}
		// The chip replaces whatever a reroll recovered; the published
		// balance numbers were produced with this behavior.
		if att.spec.Effects.ArmorPierce > 0 && canAffect {
			damage = rules.ArmorPierceMinDamage
		}
	}

	if hit && damage < rules.MinHitDamage {
		damage = rules.MinHitDamage
	}
	if magicCap := float64(att.spec.Effects.Magical); damage > 0 && magicCap > 0 {
		if damage > magicCap {
			damage = magicCap*rules.MagicDamageMultiplier + (damage - magicCap)
		} else {
			damage *= rules.MagicDamageMultiplier
		}
	}
	if damage > 0 && att.spec.Effects.Splash {
		damage *= rules.SplashDamageMult
	}
	return hit, damage, true
}

// applyStatusOnHit lands att's on-hit statuses on def. Statuses only stick
// when the attacking weapon's rank is at least the defender's.
func applyStatusOnHit(att, def *fighter) {
	if att.spec.Rank < def.spec.Rank {
		return
	}
	e := &att.spec.Effects
	if e.Bleed > def.bleed {
		def.bleed = e.Bleed
	}
	if e.Slow && def.slowed < rules.SlowDurationRounds {
		def.slowed = rules.SlowDurationRounds
	}
	if e.Disorienting {
		def.reaction = false
	}
	if e.Immobilize > 0 && def.immobile < rules.ImmobilizeDurationRounds {
		def.immobile = rules.ImmobilizeDurationRounds
	}
	if e.Stun > 0 && def.actions > 0 {
		def.actions -= rules.StunActionLoss
		if def.actions < 0 {
			def.actions = 0
		}
	}
}

func recordShot(f *fighter) {
	reloadAfter := f.spec.Effects.Reload
	if reloadAfter <= 0 {
		return
	}
	f.shots++
	if f.shots >= reloadAfter {
		f.mustReload = true
	}
}

// reactionAttack is a single free shot outside the owner's turn. It spends
// no actions but respects an empty magazine, and never fires at
// disadvantage.
func (d *Duel) reactionAttack(rng *rand.Rand, att, def *fighter, distance float64) {
	if att.spec.Effects.Reload > 0 && att.mustReload {
		return
	}
	hit, damage, shotFired := d.rollAttack(rng, att, def, distance, false)
	if damage > 0 {
		def.hp -= damage
		if hit {
			applyStatusOnHit(att, def)
		}
	}
	if shotFired {
		recordShot(att)
	}
}

// aggressiveReaction fires the Aggressive Fire free attack after the
// owner's own actions, consuming its reaction for the round.
func (d *Duel) aggressiveReaction(rng *rand.Rand, att, def *fighter, distance float64) {
	if !att.spec.Effects.AggressiveFire || !att.reaction {
		return
	}
	if distance > att.spec.Range() {
		return
	}
	att.reaction = false
	d.reactionAttack(rng, att, def, distance)
}

// performAttack spends att's actions: reload if the magazine is empty,
// otherwise attack. Burst weapons fire three shots at disadvantage for two
// actions; with a single action left they fire one plain shot. Shooting a
// melee opponent inside its reach provokes its reaction unless the shooter
// has Assault; a missed Risk attack hands the defender a free
// counterattack.
func (d *Duel) performAttack(rng *rand.Rand, att, def *fighter, distance float64) {
	if att.actions <= 0 {
		return
	}
	if att.spec.Effects.Reload > 0 && att.mustReload {
		att.actions--
		att.mustReload = false
		att.shots = 0
		return
	}
	att.actions--

	shots := 1
	disadvantage := false
	if att.spec.Effects.Burst && att.actions > 0 {
		att.actions--
		shots = rules.BurstShots
		disadvantage = true
	}

	for s := 0; s < shots; s++ {
		hit, damage, shotFired := d.rollAttack(rng, att, def, distance, disadvantage)
		if !shotFired {
			break
		}
		if damage > 0 {
			def.hp -= damage
			if hit {
				applyStatusOnHit(att, def)
			}
		} else if att.spec.Effects.Risk && def.reaction && distance <= def.spec.Range() {
			def.reaction = false
			d.reactionAttack(rng, def, att, distance)
			if !att.alive() {
				return
			}
		}
		recordShot(att)

		if !att.spec.Melee() && !att.spec.Effects.Assault &&
			def.spec.Melee() && distance <= def.spec.Range() &&
			def.reaction && def.alive() {
			def.reaction = false
			d.reactionAttack(rng, def, att, distance)
			if !att.alive() {
				return
			}
		}

		if !def.alive() {
			break
		}
		if att.mustReload && att.spec.Effects.Reload > 0 {
			break
		}
	}
}
