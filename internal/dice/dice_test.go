package dice

import (
	"math/rand"
	"testing"
)

func TestParseValidExpressions(t *testing.T) {
	tests := []struct {
		in   string
		mean float64
	}{
		{"3", 3},
		{"0", 0},
		{"d6", 3.5},
		{"1d6", 3.5},
		{"2d8+1", 10},
		{"2d8-1", 8},
		{"1d6x2", 7},
		{"1d6*2", 7},
		{" 2 d 10 + 3 ", 14},
	}
	for _, tc := range tests {
		e, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got := e.Mean(); got != tc.mean {
			t.Errorf("Parse(%q).Mean() = %v, want %v", tc.in, got, tc.mean)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "  ", "-3", "abc", "d", "0d6", "d0", "1d6+", "1d6++2", "6d"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestRollStaysInBounds(t *testing.T) {
	e, err := Parse("2d6+1")
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		got := e.Roll(rng)
		if got < 3 || got > 13 {
			t.Fatalf("roll %d outside [3, 13]", got)
		}
	}
}

func TestRollFlatValue(t *testing.T) {
	e, err := Parse("7")
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		if got := e.Roll(rng); got != 7 {
			t.Fatalf("flat roll = %d, want 7", got)
		}
	}
}

func TestRollClampsNegativeModifier(t *testing.T) {
	e, err := Parse("1d2-5")
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		if got := e.Roll(rng); got < 0 {
			t.Fatalf("roll went negative: %d", got)
		}
	}
}

func TestRollDeterministicForSameSeed(t *testing.T) {
	e, _ := Parse("3d10+2")
	a := rand.New(rand.NewSource(99))
	b := rand.New(rand.NewSource(99))
	for i := 0; i < 50; i++ {
		if x, y := e.Roll(a), e.Roll(b); x != y {
			t.Fatalf("diverged at roll %d: %d vs %d", i, x, y)
		}
	}
}
