// Package dice parses and rolls damage expressions.
//
// Rolling is deterministic with respect to the provided *rand.Rand: the
// same source and the same expression always produce the same sequence of
// results, which is what makes simulation trials reproducible.
package dice

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// exprRe accepts: NdM, NdM+K, NdM-K, NdM xK / *K. A bare integer is handled
// before the regexp.
var exprRe = regexp.MustCompile(`(?i)^\s*(\d+)?\s*d\s*(\d+)(\s*([+\-x*])\s*(\d+))?\s*$`)

// Expr is a parsed damage expression.
type Expr struct {
	Count int // number of dice; 0 means a flat value
	Sides int
	Op    byte // '+', '-', '*', or 0
	Mod   int
	Flat  int // value when Count == 0
	raw   string
}

// Parse parses a damage expression: a plain number ("3"), dice ("1d6",
// "2d8+1", "d6 x2"). Unparseable input is an error, never a silent zero —
// a malformed expression that rolled 0 would skew every trial that uses it.
func Parse(expr string) (Expr, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Expr{}, fmt.Errorf("empty damage expression")
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n < 0 {
			return Expr{}, fmt.Errorf("negative damage %q", expr)
		}
		return Expr{Flat: n, raw: trimmed}, nil
	}
	m := exprRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Expr{}, fmt.Errorf("malformed damage expression %q", expr)
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	if count < 1 || sides < 1 {
		return Expr{}, fmt.Errorf("malformed damage expression %q", expr)
	}
	e := Expr{Count: count, Sides: sides, raw: trimmed}
	if m[3] != "" {
		op := m[4][0]
		if op == 'x' || op == 'X' {
			op = '*'
		}
		e.Op = op
		e.Mod, _ = strconv.Atoi(m[5])
	}
	return e, nil
}

// Roll evaluates the expression with the given random source. Results are
// clamped at zero.
func (e Expr) Roll(r *rand.Rand) int {
	if e.Count == 0 {
		return e.Flat
	}
	total := 0
	for i := 0; i < e.Count; i++ {
		total += 1 + r.Intn(e.Sides)
	}
	switch e.Op {
	case '+':
		total += e.Mod
	case '-':
		total -= e.Mod
	case '*':
		total *= e.Mod
	}
	if total < 0 {
		total = 0
	}
	return total
}

// Mean returns the expected value of the expression.
func (e Expr) Mean() float64 {
	if e.Count == 0 {
		return float64(e.Flat)
	}
	mean := float64(e.Count) * (float64(e.Sides) + 1) / 2
	switch e.Op {
	case '+':
		mean += float64(e.Mod)
	case '-':
		mean -= float64(e.Mod)
	case '*':
		mean *= float64(e.Mod)
	}
	if mean < 0 {
		mean = 0
	}
	return mean
}

func (e Expr) String() string { return e.raw }
