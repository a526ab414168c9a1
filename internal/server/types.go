package server

// WeaponRequest is one weapon description as the API receives it. Rank is
// optional; a zero value inherits the duel's character rank.
type WeaponRequest struct {
	WeaponType string   `json:"weapon_type"`
	Damage     string   `json:"damage"`
	Properties []string `json:"properties"`
	Rank       int      `json:"rank,omitempty"`
}

// SimulateRequest is the body of POST /api/simulate and the first frame
// of a /ws/simulate session.
type SimulateRequest struct {
	Rank            int           `json:"rank"`
	Confidence      float64       `json:"confidence"`
	Weapon1         WeaponRequest `json:"weapon1"`
	Weapon2         WeaponRequest `json:"weapon2"`
	InitialDistance float64       `json:"initial_distance,omitempty"`
}

// PropertyInfo is one catalog entry as GET /api/properties reports it.
type PropertyInfo struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Category    string   `json:"category"`
	WeaponTypes []string `json:"weapon_types"`
	DefaultX    int      `json:"default_x,omitempty"`
}

// progressFrame and resultFrame are the websocket stream messages.
type progressFrame struct {
	Type      string `json:"type"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

type resultFrame struct {
	Type        string `json:"type"`
	Result      any    `json:"result"`
	Simulations int    `json:"simulations"`
	Exhausted   bool   `json:"exhausted,omitempty"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
