package sim

// DuelStats is the matchup outcome as the API reports it.
type DuelStats struct {
	Weapon1WinRate float64 `json:"weapon1_win_rate"`
	Weapon2WinRate float64 `json:"weapon2_win_rate"`
	AvgRounds      float64 `json:"avg_rounds"`
}

// Report is the wire shape of a finished simulation.
type Report struct {
	Result      DuelStats `json:"result"`
	Simulations int       `json:"simulations"`
	Exhausted   bool      `json:"exhausted,omitempty"`
}

func (r *Result) Report() Report {
	return Report{
		Result: DuelStats{
			Weapon1WinRate: r.Weapon1WinRate(),
			Weapon2WinRate: r.Weapon2WinRate(),
			AvgRounds:      r.AvgRounds(),
		},
		Simulations: r.Trials,
		Exhausted:   r.Exhausted,
	}
}
