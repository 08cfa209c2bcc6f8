package models

// Player is a squad member. Number is the shirt number and may be zero when unknown.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number,omitempty"`
}

// PlayerRef points at a player on one side of the match.
type PlayerRef struct {
	TeamSide TeamSide `json:"team_side"`
	PlayerID string   `json:"player_id"`
}

// SubstitutionState is the single pending substitution of a match.
type SubstitutionState struct {
	PlayerOut PlayerRef `json:"player_out"`
}
