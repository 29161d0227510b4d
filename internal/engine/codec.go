package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/confucious/gamebot/internal/ids"
)

var ErrMalformedState = errors.New("malformed game state")

// Field order matches the records already written by earlier versions.
type stateRecord struct {
	Words   []Word      `json:"words"`
	State   phaseRecord `json:"state"`
	Clues   []Clue      `json:"clues"`
	Players []Player    `json:"players"`
}

// phaseRecord is the tagged encoding of a Phase: "state" names the variant
// and only that variant's fields are present.
type phaseRecord struct {
	State          PhaseKind     `json:"state"`
	Side           *Side         `json:"side,omitempty"`
	Clue           *string       `json:"clue,omitempty"`
	CluedGuesses   *int          `json:"cluedGuesses,omitempty"`
	GuessesTaken   *int          `json:"guessesTaken,omitempty"`
	WinningPlayers *[]ids.UserID `json:"winningPlayers,omitempty"`
	LosingPlayers  *[]ids.UserID `json:"losingPlayers,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	rec := stateRecord{
		Words:   nonNil(s.Words),
		State:   encodePhase(s.Phase),
		Clues:   nonNil(s.Clues),
		Players: nonNil(s.Players),
	}
	return json.Marshal(rec)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	phase, err := decodePhase(rec.State)
	if err != nil {
		return err
	}
	*s = State{
		Phase:   phase,
		Words:   nonNil(rec.Words),
		Players: nonNil(rec.Players),
		Clues:   nonNil(rec.Clues),
	}
	return nil
}

// PhaseJSON gives a bare Phase the same tagged encoding it has inside State.
type PhaseJSON struct {
	Phase Phase
}

func (p PhaseJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodePhase(p.Phase))
}

func (p *PhaseJSON) UnmarshalJSON(data []byte) error {
	var rec phaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	phase, err := decodePhase(rec)
	if err != nil {
		return err
	}
	p.Phase = phase
	return nil
}

func encodePhase(p Phase) phaseRecord {
	switch p := p.(type) {
	case WaitingForClue:
		return phaseRecord{State: KindWaitingForClue, Side: &p.Side}
	case WaitingForGuesses:
		return phaseRecord{
			State:        KindWaitingForGuesses,
			Side:         &p.Side,
			Clue:         &p.Clue,
			CluedGuesses: &p.CluedGuesses,
			GuessesTaken: &p.GuessesTaken,
		}
	case GameOver:
		winners := nonNil(p.WinningPlayers)
		losers := nonNil(p.LosingPlayers)
		return phaseRecord{
			State:          KindGameOver,
			Side:           &p.WinningSide,
			WinningPlayers: &winners,
			LosingPlayers:  &losers,
		}
	default:
		return phaseRecord{State: KindSetup}
	}
}

func decodePhase(rec phaseRecord) (Phase, error) {
	var err error
	need := func(present bool, field string) {
		if !present {
			err = multierr.Append(err, fmt.Errorf("%w: %s without %q", ErrMalformedState, rec.State, field))
		}
	}

	switch rec.State {
	case KindSetup:
		return Setup{}, nil

	case KindWaitingForClue:
		need(rec.Side != nil, "side")
		if err != nil {
			return nil, err
		}
		return WaitingForClue{Side: *rec.Side}, nil

	case KindWaitingForGuesses:
		need(rec.Side != nil, "side")
		need(rec.Clue != nil, "clue")
		need(rec.CluedGuesses != nil, "cluedGuesses")
		need(rec.GuessesTaken != nil, "guessesTaken")
		if err != nil {
			return nil, err
		}
		return WaitingForGuesses{
			Side:         *rec.Side,
			Clue:         *rec.Clue,
			CluedGuesses: *rec.CluedGuesses,
			GuessesTaken: *rec.GuessesTaken,
		}, nil

	case KindGameOver:
		need(rec.Side != nil, "side")
		need(rec.WinningPlayers != nil, "winningPlayers")
		need(rec.LosingPlayers != nil, "losingPlayers")
		if err != nil {
			return nil, err
		}
		return GameOver{
			WinningSide:    *rec.Side,
			WinningPlayers: nonNil(*rec.WinningPlayers),
			LosingPlayers:  nonNil(*rec.LosingPlayers),
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown state %q", ErrMalformedState, rec.State)
	}
}

// Validate checks the structural invariants of a state, typically one just
// decoded from storage, and reports every violation found.
func (s *State) Validate() error {
	var err error
	fail := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrMalformedState}, args...)...))
	}

	seen := make(map[ids.UserID]bool, len(s.Players))
	spymasters := map[Side]int{}
	for _, p := range s.Players {
		if seen[p.ID] {
			fail("player %s listed twice", p.ID)
		}
		seen[p.ID] = true
		if !p.Side.IsTeam() {
			fail("player %s on side %q", p.ID, p.Side)
		}
		switch p.Role {
		case RoleSpymaster:
			spymasters[p.Side]++
		case RoleGuesser:
		default:
			fail("player %s has role %q", p.ID, p.Role)
		}
	}
	for side, n := range spymasters {
		if n > 1 {
			fail("%d spymasters on %s", n, side)
		}
	}

	if len(s.Words) != 0 && len(s.Words) != BoardSize {
		fail("board has %d words", len(s.Words))
	}
	for _, c := range s.Clues {
		if c.Count < 0 {
			fail("clue %q has count %d", c.Text, c.Count)
		}
	}
	for _, w := range s.Words {
		switch w.Side {
		case SideRed, SideBlue, SideNeutral, SideAssassin:
		default:
			fail("word %q on side %q", w.Text, w.Side)
		}
	}

	switch p := s.Phase.(type) {
	case WaitingForClue:
		if !p.Side.IsTeam() {
			fail("%s for side %q", p.Kind(), p.Side)
		}
	case WaitingForGuesses:
		if !p.Side.IsTeam() {
			fail("%s for side %q", p.Kind(), p.Side)
		}
		if p.GuessesTaken < 0 {
			fail("%d guesses taken", p.GuessesTaken)
		}
		if p.CluedGuesses < 0 {
			fail("clue count %d", p.CluedGuesses)
		}
	case GameOver:
		if !p.WinningSide.IsTeam() {
			fail("%s won by %q", p.Kind(), p.WinningSide)
		}
	}
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
