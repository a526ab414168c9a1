// Package catalog defines the weapon property table the simulator accepts.
//
// The catalog is the single source of truth for property names. Lookup is
// byte-exact: no case folding, no trimming beyond cell splitting, no fuzzy
// matching. The legacy content sheets mixed Latin "X" and Cyrillic "Х" in
// property names, and a near-miss that silently resolved to the wrong
// property would corrupt balance numbers without anyone noticing.
package catalog

import (
	"fmt"
	"sort"

	"github.com/andromeda-ttrpg/gearsim/internal/rules"
)

// Kind says whether a property is a bare flag or carries a numeric X value.
type Kind uint8

const (
	Flag Kind = iota
	Ranked
)

func (k Kind) String() string {
	if k == Ranked {
		return "ranked"
	}
	return "flag"
}

// Category groups properties for reporting.
type Category uint8

const (
	Offensive Category = iota
	Defensive
	Utility
)

func (c Category) String() string {
	switch c {
	case Defensive:
		return "defensive"
	case Utility:
		return "utility"
	default:
		return "offensive"
	}
}

// Effect identifies the combat hook a property drives. The set is closed:
// the round engine switches over these and nothing else.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectMagical
	EffectSplash
	EffectBurst
	EffectAssault
	EffectArmorPierce
	EffectEscalation
	EffectReload
	EffectStabilization
	EffectBleed
	EffectGuarantee
	EffectReroll
	EffectAggressiveFire
	EffectStun
	EffectSlow
	EffectDangerous
	EffectRisk
	EffectPenetration
	EffectDisorienting
	EffectImmobilize
	EffectAccuracy
	EffectReach
)

// Definition describes one catalog property.
type Definition struct {
	Name        string   // exact canonical name, e.g. "Armor Pierce"
	Kind        Kind
	Category    Category
	Effect      Effect
	WeaponTypes []string // allowed weapon type tags; nil means any
	DefaultX    int      // magnitude used when a ranked property omits X
}

// AllowsWeaponType reports whether the property may appear on the given
// weapon type.
func (d Definition) AllowsWeaponType(weaponType string) bool {
	if len(d.WeaponTypes) == 0 {
		return true
	}
	for _, t := range d.WeaponTypes {
		if t == weaponType {
			return true
		}
	}
	return false
}

var meleeOnly = []string{rules.WeaponTypeMelee}
var rangedOnly = []string{rules.WeaponTypeRanged}

// defaultDefs mirrors the property list of the balance rules sheet.
// Concealed and Silent are accepted for catalog completeness but have no
// duel effect; they matter for stealth scenes the simulator does not model.
var defaultDefs = []Definition{
	{Name: "Magical", Kind: Ranked, Category: Offensive, Effect: EffectMagical, DefaultX: 1},
	{Name: "Splash", Kind: Flag, Category: Offensive, Effect: EffectSplash},
	{Name: "Burst", Kind: Flag, Category: Offensive, Effect: EffectBurst, WeaponTypes: rangedOnly},
	{Name: "Assault", Kind: Flag, Category: Utility, Effect: EffectAssault, WeaponTypes: rangedOnly},
	{Name: "Armor Pierce", Kind: Ranked, Category: Offensive, Effect: EffectArmorPierce, DefaultX: 1},
	{Name: "Escalation", Kind: Ranked, Category: Offensive, Effect: EffectEscalation, DefaultX: 1},
	{Name: "Reload", Kind: Ranked, Category: Utility, Effect: EffectReload, WeaponTypes: rangedOnly, DefaultX: 1},
	{Name: "Stabilization", Kind: Ranked, Category: Offensive, Effect: EffectStabilization, WeaponTypes: rangedOnly, DefaultX: 1},
	{Name: "Bleed", Kind: Ranked, Category: Offensive, Effect: EffectBleed, DefaultX: 1},
	{Name: "Guarantee", Kind: Ranked, Category: Offensive, Effect: EffectGuarantee, DefaultX: 1},
	{Name: "Reroll", Kind: Flag, Category: Offensive, Effect: EffectReroll},
	{Name: "Aggressive Fire", Kind: Flag, Category: Offensive, Effect: EffectAggressiveFire, WeaponTypes: rangedOnly},
	{Name: "Concealed", Kind: Flag, Category: Utility, Effect: EffectNone},
	{Name: "Silent", Kind: Flag, Category: Utility, Effect: EffectNone},
	{Name: "Stun", Kind: Ranked, Category: Utility, Effect: EffectStun, DefaultX: 1},
	{Name: "Slow", Kind: Flag, Category: Utility, Effect: EffectSlow},
	{Name: "Dangerous", Kind: Ranked, Category: Offensive, Effect: EffectDangerous, DefaultX: 1},
	{Name: "Risk", Kind: Flag, Category: Offensive, Effect: EffectRisk},
	{Name: "Penetration", Kind: Ranked, Category: Offensive, Effect: EffectPenetration, DefaultX: 1},
	{Name: "Disorienting", Kind: Flag, Category: Utility, Effect: EffectDisorienting},
	{Name: "Immobilize", Kind: Ranked, Category: Utility, Effect: EffectImmobilize, DefaultX: 1},
	{Name: "Accuracy", Kind: Ranked, Category: Offensive, Effect: EffectAccuracy, DefaultX: 1},
	{Name: "Reach", Kind: Ranked, Category: Utility, Effect: EffectReach, WeaponTypes: meleeOnly, DefaultX: 1},
}

// Catalog is an immutable exact-match property table. Build it once at
// startup and share it freely; lookups never mutate state.
type Catalog struct {
	defs map[string]Definition
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(defaultDefs))}
	for _, d := range defaultDefs {
		c.defs[d.Name] = d
	}
	return c
}

// Lookup resolves a property by its exact canonical name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.defs) }

// Definitions returns all entries sorted by name, for API listings.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// effectByName maps canonical names to engine effects for drift validation
// of external catalog files.
var effectByName = func() map[string]Definition {
	m := make(map[string]Definition, len(defaultDefs))
	for _, d := range defaultDefs {
		m[d.Name] = d
	}
	return m
}()

// Validate checks that every catalog entry is backed by an engine effect.
// A name in the authoritative sheet that the engine cannot resolve is a
// deployment defect and must fail startup, not a trial at runtime.
func (c *Catalog) Validate() error {
	var unknown []string
	for name := range c.defs {
		if _, ok := effectByName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("catalog drift: %d properties have no engine effect: %v", len(unknown), unknown)
	}
	return nil
}
