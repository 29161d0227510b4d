package engine

import (
	"slices"

	"github.com/confucious/gamebot/internal/ids"
)

func NewEmptyState() State {
	return State{
		Phase:   Setup{},
		Words:   []Word{},
		Players: []Player{},
		Clues:   []Clue{},
	}
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	out := State{
		Phase:   s.Phase,
		Words:   slices.Clone(s.Words),
		Players: slices.Clone(s.Players),
		Clues:   slices.Clone(s.Clues),
	}
	if over, ok := s.Phase.(GameOver); ok {
		over.WinningPlayers = slices.Clone(over.WinningPlayers)
		over.LosingPlayers = slices.Clone(over.LosingPlayers)
		out.Phase = over
	}
	return out
}

func (s *State) PlayerFor(user ids.UserID) (Player, bool) {
	if i := s.playerIndex(user); i >= 0 {
		return s.Players[i], true
	}
	return Player{}, false
}

func (s *State) SideOf(user ids.UserID) (Side, bool) {
	p, ok := s.PlayerFor(user)
	return p.Side, ok
}

func (s *State) IsSpymaster(user ids.UserID) bool {
	p, ok := s.PlayerFor(user)
	return ok && p.Role == RoleSpymaster
}

// PlayersOn lists a team in join order.
func (s *State) PlayersOn(side Side) []Player {
	out := []Player{}
	for _, p := range s.Players {
		if p.Side == side {
			out = append(out, p)
		}
	}
	return out
}

func (s *State) Spymaster(side Side) (ids.UserID, bool) {
	for _, p := range s.Players {
		if p.Side == side && p.Role == RoleSpymaster {
			return p.ID, true
		}
	}
	return "", false
}

func (s *State) Guessers(side Side) []ids.UserID {
	out := []ids.UserID{}
	for _, p := range s.Players {
		if p.Side == side && p.Role == RoleGuesser {
			out = append(out, p.ID)
		}
	}
	return out
}

func playerIDs(players []Player) []ids.UserID {
	out := make([]ids.UserID, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}
