package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/confucious/gamebot/internal/engine"
	"github.com/confucious/gamebot/internal/ids"
	"github.com/confucious/gamebot/internal/words"
)

var ErrMalformedRecord = errors.New("malformed channel record")

const (
	gameNone      = "none"
	gameCodenames = "codenames"
)

type record struct {
	TeamID    ids.TeamID    `json:"teamId"`
	ChannelID ids.ChannelID `json:"channelId"`
	Sequence  uint64        `json:"sequenceNumber"`
	Game      gameRecord    `json:"gameState"`
	Deck      *words.Deck   `json:"wordState,omitempty"`
}

type gameRecord struct {
	Game      string        `json:"game"`
	Codenames *engine.State `json:"codenamesState,omitempty"`
}

// Encode produces the stored form of a channel.
func Encode(s State) ([]byte, error) {
	rec := record{
		TeamID:    s.Key.Team,
		ChannelID: s.Key.Channel,
		Sequence:  s.Sequence,
		Game:      gameRecord{Game: gameNone},
		Deck:      s.Deck,
	}
	if s.Game != nil {
		rec.Game = gameRecord{Game: gameCodenames, Codenames: s.Game}
	}
	return json.Marshal(rec)
}

// Decode reads a stored channel and checks the game inside it.
func Decode(data []byte) (State, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	s := State{
		Key:      ids.ChannelKey{Team: rec.TeamID, Channel: rec.ChannelID},
		Sequence: rec.Sequence,
		Deck:     rec.Deck,
	}
	if s.Key.IsZero() {
		return State{}, fmt.Errorf("%w: missing team or channel", ErrMalformedRecord)
	}

	switch rec.Game.Game {
	case gameNone, "":
	case gameCodenames:
		if rec.Game.Codenames == nil {
			return State{}, fmt.Errorf("%w: codenames without codenamesState", ErrMalformedRecord)
		}
		if err := rec.Game.Codenames.Validate(); err != nil {
			return State{}, err
		}
		s.Game = rec.Game.Codenames
	default:
		return State{}, fmt.Errorf("%w: unknown game %q", ErrMalformedRecord, rec.Game.Game)
	}
	return s, nil
}

func (s State) MarshalJSON() ([]byte, error) {
	return Encode(s)
}

func (s *State) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
