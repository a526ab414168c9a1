// Package loadout turns caller-supplied weapon descriptions into the
// immutable specs the simulator runs on. All request validation lives
// here, before any simulation work starts.
package loadout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andromeda-ttrpg/gearsim/internal/catalog"
	"github.com/andromeda-ttrpg/gearsim/internal/dice"
	"github.com/andromeda-ttrpg/gearsim/internal/rules"
)

// ValidationError reports malformed or unrecognized request input. It maps
// to a 4xx at the API boundary and is never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Property is one resolved catalog property on a weapon.
type Property struct {
	Def catalog.Definition
	X   int // magnitude; 1 for flags
}

// Label renders the property the way the content sheets write it
// ("Bleed 2", "Reroll").
func (p Property) Label() string {
	if p.Def.Kind == catalog.Ranked {
		return fmt.Sprintf("%s %d", p.Def.Name, p.X)
	}
	return p.Def.Name
}

// WeaponSpec is an immutable parsed weapon. Parsing the same input always
// yields an equal spec.
type WeaponSpec struct {
	WeaponType string
	Damage     dice.Expr
	Properties []Property
	Rank       int
	Effects    EffectProfile
}

// Range returns the weapon's effective reach in meters.
func (w *WeaponSpec) Range() float64 {
	base := rules.RangedBaseRange
	if w.WeaponType == rules.WeaponTypeMelee {
		base = rules.MeleeBaseRange
	}
	return base + float64(w.Effects.Reach)
}

// Melee reports whether the weapon fights in close range.
func (w *WeaponSpec) Melee() bool { return w.WeaponType == rules.WeaponTypeMelee }

// EffectProfile carries the property magnitudes the round engine consumes,
// resolved once at parse time. Zero values mean "absent".
type EffectProfile struct {
	Magical        int
	Splash         bool
	Burst          bool
	Assault        bool
	ArmorPierce    int
	Escalation     int
	Reload         int
	Stabilization  int
	Bleed          int
	Guarantee      int
	Rerolls        int
	AggressiveFire bool
	Stun           int
	Slow           bool
	Dangerous      int
	Risk           bool
	Penetration    int
	Disorienting   bool
	Immobilize     int
	Accuracy       int
	Reach          int
}

func (e *EffectProfile) apply(p Property) {
	switch p.Def.Effect {
	case catalog.EffectMagical:
		e.Magical = p.X
	case catalog.EffectSplash:
		e.Splash = true
	case catalog.EffectBurst:
		e.Burst = true
	case catalog.EffectAssault:
		e.Assault = true
	case catalog.EffectArmorPierce:
		e.ArmorPierce = p.X
	case catalog.EffectEscalation:
		e.Escalation = p.X
	case catalog.EffectReload:
		e.Reload = p.X
	case catalog.EffectStabilization:
		e.Stabilization = p.X
	case catalog.EffectBleed:
		e.Bleed = p.X
	case catalog.EffectGuarantee:
		e.Guarantee = p.X
	case catalog.EffectReroll:
		e.Rerolls = p.X
	case catalog.EffectAggressiveFire:
		e.AggressiveFire = true
	case catalog.EffectStun:
		e.Stun = p.X
	case catalog.EffectSlow:
		e.Slow = true
	case catalog.EffectDangerous:
		e.Dangerous = p.X
	case catalog.EffectRisk:
		e.Risk = true
	case catalog.EffectPenetration:
		e.Penetration = p.X
	case catalog.EffectDisorienting:
		e.Disorienting = true
	case catalog.EffectImmobilize:
		e.Immobilize = p.X
	case catalog.EffectAccuracy:
		e.Accuracy = p.X
	case catalog.EffectReach:
		e.Reach = p.X
	case catalog.EffectNone:
		// accepted, no duel effect
	}
}

// Parse builds a WeaponSpec from caller input. Each element of properties
// may carry several comma- or semicolon-separated entries (spreadsheet
// cells arrive that way). The first bad token fails the whole parse.
func Parse(c *catalog.Catalog, weaponType, damage string, properties []string, rank int) (*WeaponSpec, error) {
	weaponType = strings.TrimSpace(weaponType)
	switch weaponType {
	case rules.WeaponTypeMelee, rules.WeaponTypeRanged:
	default:
		return nil, validationErrorf("unknown weapon type %q (want %q or %q)",
			weaponType, rules.WeaponTypeMelee, rules.WeaponTypeRanged)
	}
	if rank < rules.MinRank || rank > rules.MaxRank {
		return nil, validationErrorf("rank %d out of range %d-%d", rank, rules.MinRank, rules.MaxRank)
	}

	expr, err := dice.Parse(damage)
	if err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	if expr.Mean() <= 0 {
		return nil, validationErrorf("damage %q must be positive", damage)
	}

	spec := &WeaponSpec{
		WeaponType: weaponType,
		Damage:     expr,
		Rank:       rank,
	}
	for _, cell := range properties {
		for _, entry := range splitCell(cell) {
			prop, err := parseProperty(c, entry)
			if err != nil {
				return nil, err
			}
			if !prop.Def.AllowsWeaponType(weaponType) {
				return nil, validationErrorf("property %q cannot be used on %s weapons", prop.Def.Name, weaponType)
			}
			spec.Properties = append(spec.Properties, prop)
			// Duplicate entries follow sheet semantics: the last one wins.
			spec.Effects.apply(prop)
		}
	}
	return spec, nil
}

func splitCell(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseProperty resolves one entry like "Reroll", "Bleed 2" or "Reach: 1".
// Name matching is exact; "bleed 2" or a Cyrillic look-alike of a Latin
// letter does not resolve.
func parseProperty(c *catalog.Catalog, entry string) (Property, error) {
	if def, ok := c.Lookup(entry); ok {
		if def.Kind == catalog.Ranked {
			return Property{Def: def, X: def.DefaultX}, nil
		}
		return Property{Def: def, X: 1}, nil
	}

	// "Name N" with optional ":" or "=" before the magnitude.
	normalized := strings.NewReplacer(":", " ", "=", " ").Replace(entry)
	if idx := strings.LastIndexAny(normalized, " \t"); idx > 0 {
		name := strings.TrimSpace(normalized[:idx])
		suffix := strings.TrimSpace(normalized[idx+1:])
		if x, err := strconv.Atoi(suffix); err == nil {
			def, ok := c.Lookup(name)
			if !ok {
				return Property{}, validationErrorf("unknown property %q", entry)
			}
			if def.Kind != catalog.Ranked {
				return Property{}, validationErrorf("property %q does not take a value", def.Name)
			}
			if x < 1 {
				return Property{}, validationErrorf("property %q value must be at least 1", def.Name)
			}
			return Property{Def: def, X: x}, nil
		}
	}
	return Property{}, validationErrorf("unknown property %q", entry)
}
