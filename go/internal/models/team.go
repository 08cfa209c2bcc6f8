package models

// TeamSide identifies which of the two match participants a team is.
type TeamSide string

const (
	TeamSideA TeamSide = "A"
	TeamSideB TeamSide = "B"
)

// Valid reports whether the side is A or B.
func (s TeamSide) Valid() bool {
	return s == TeamSideA || s == TeamSideB
}

// Team is a club taking part in a match together with its full squad.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Players []Player `json:"players"`
}

// Player looks up a squad member by id.
func (t Team) Player(id string) (Player, bool) {
	for _, p := range t.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

func (t Team) clone() Team {
	out := t
	if t.Players != nil {
		out.Players = make([]Player, len(t.Players))
		copy(out.Players, t.Players)
	}
	return out
}
