package engine

import (
	"slices"

	"github.com/confucious/gamebot/internal/ids"
)

// AddToGame puts a new user on the team with fewer guessers (red on a tie).
// A user who is already playing switches teams and becomes a guesser.
func (s *State) AddToGame(user ids.UserID) Side {
	if i := s.playerIndex(user); i >= 0 {
		p := &s.Players[i]
		p.Side = p.Side.Other()
		p.Role = RoleGuesser
		return p.Side
	}

	side := SideRed
	if len(s.Guessers(SideRed)) > len(s.Guessers(SideBlue)) {
		side = SideBlue
	}
	s.Players = append(s.Players, Player{ID: user, Side: side, Role: RoleGuesser})
	return side
}

// RemoveFromGame reports whether the user was playing.
func (s *State) RemoveFromGame(user ids.UserID) bool {
	i := s.playerIndex(user)
	if i < 0 {
		return false
	}
	s.Players = slices.Delete(s.Players, i, i+1)
	return true
}

// SetSpymaster makes user the spymaster of their team, demoting whoever held it.
func (s *State) SetSpymaster(user ids.UserID) (Side, error) {
	i := s.playerIndex(user)
	if i < 0 {
		return "", userNotPlaying(user)
	}
	side := s.Players[i].Side
	for j := range s.Players {
		if s.Players[j].Side == side && s.Players[j].Role == RoleSpymaster {
			s.Players[j].Role = RoleGuesser
		}
	}
	s.Players[i].Role = RoleSpymaster
	return side, nil
}

func (s *State) SetAvoidSpymaster(user ids.UserID, avoid bool) error {
	i := s.playerIndex(user)
	if i < 0 {
		return userNotPlaying(user)
	}
	s.Players[i].AvoidSpymaster = avoid
	return nil
}

// RotateSpymasters hands each team's spymaster role to the next eligible
// player. Only allowed between games; a finished game is cleared first.
func (s *State) RotateSpymasters() error {
	if _, over := s.Phase.(GameOver); over {
		s.Reset(false)
	}
	if !isSetup(s.Phase) {
		return invalidState(s.Phase)
	}
	for _, side := range []Side{SideRed, SideBlue} {
		next, ok := s.nextSpymaster(side)
		if !ok {
			continue
		}
		if _, err := s.SetSpymaster(next); err != nil {
			return err
		}
	}
	return nil
}

// ShuffleTeams deals every player onto alternating teams in random order.
// Players avoiding the spymaster role are dealt last, so the first two dealt,
// who become spymasters, come from the willing players whenever possible.
// shuffle has the signature of rand.Shuffle.
func (s *State) ShuffleTeams(shuffle func(n int, swap func(i, j int))) error {
	if _, over := s.Phase.(GameOver); over {
		s.Reset(false)
	}
	if !isSetup(s.Phase) {
		return invalidState(s.Phase)
	}

	var willing, avoiding []Player
	for _, p := range s.Players {
		if p.AvoidSpymaster {
			avoiding = append(avoiding, p)
		} else {
			willing = append(willing, p)
		}
	}
	shuffle(len(willing), func(i, j int) { willing[i], willing[j] = willing[j], willing[i] })
	shuffle(len(avoiding), func(i, j int) { avoiding[i], avoiding[j] = avoiding[j], avoiding[i] })

	dealt := append(willing, avoiding...)
	for i := range dealt {
		dealt[i].Side = SideRed
		if i%2 == 1 {
			dealt[i].Side = SideBlue
		}
		dealt[i].Role = RoleGuesser
		if i < 2 {
			dealt[i].Role = RoleSpymaster
		}
	}
	s.Players = dealt
	return nil
}

// nextSpymaster picks the player after the current spymaster among those
// willing to serve, falling back to the whole team when nobody is willing.
func (s *State) nextSpymaster(side Side) (ids.UserID, bool) {
	team := s.PlayersOn(side)
	pool := make([]Player, 0, len(team))
	for _, p := range team {
		if !p.AvoidSpymaster {
			pool = append(pool, p)
		}
	}
	if len(pool) == 0 {
		pool = team
	}
	if len(pool) == 0 {
		return "", false
	}

	current := slices.IndexFunc(pool, func(p Player) bool { return p.Role == RoleSpymaster })
	if current < 0 {
		return pool[0].ID, true
	}
	return pool[(current+1)%len(pool)].ID, true
}

func (s *State) playerIndex(user ids.UserID) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == user })
}

func isSetup(p Phase) bool {
	switch p.(type) {
	case Setup, nil:
		return true
	default:
		return false
	}
}
