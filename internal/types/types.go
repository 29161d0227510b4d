package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/engine"
	"github.com/confucious/gamebot/internal/ids"
	"github.com/confucious/gamebot/internal/store"
	"github.com/confucious/gamebot/internal/words"
)

var ErrBadMessage = errors.New("bad message")

// ClientMessage is one action as sent over HTTP or the websocket. Count is
// the text the spymaster typed, e.g. "3" or "unlimited".
type ClientMessage struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Sequence uint64 `json:"sequence,omitempty"`
	Clue     string `json:"clue,omitempty"`
	Count    string `json:"count,omitempty"`
	Word     string `json:"word,omitempty"`
}

type ServerMessage struct {
	Type     string           `json:"type"` // "StateSnapshot" | "Outcome" | "Error"
	Sequence uint64           `json:"sequence,omitempty"`
	State    *channel.State   `json:"state,omitempty"`
	Outcome  *channel.Outcome `json:"outcome,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
}

const (
	MsgStateSnapshot = "StateSnapshot"
	MsgOutcome       = "Outcome"
	MsgError         = "Error"
)

func (m ClientMessage) Action() (channel.Action, error) {
	if strings.TrimSpace(m.Type) == "" {
		return channel.Action{}, fmt.Errorf("%w: missing type", ErrBadMessage)
	}
	a := channel.Action{
		Type:     channel.ActionType(m.Type),
		User:     ids.UserID(m.User),
		Sequence: m.Sequence,
		Clue:     m.Clue,
		Word:     m.Word,
	}
	if a.Type == channel.ActGiveClue {
		n, err := channel.ParseClueCount(m.Count)
		if err != nil {
			return channel.Action{}, err
		}
		a.Count = n
	}
	return a, nil
}

func Snapshot(seq uint64, st channel.State) ServerMessage {
	return ServerMessage{Type: MsgStateSnapshot, Sequence: seq, State: &st}
}

func Outcome(seq uint64, out channel.Outcome) ServerMessage {
	return ServerMessage{Type: MsgOutcome, Sequence: seq, Outcome: &out}
}

func Error(seq uint64, err error) ServerMessage {
	return ServerMessage{Type: MsgError, Sequence: seq, Error: err.Error(), Code: ErrorCode(err)}
}

var errorCodes = []struct {
	err  error
	code string
}{
	{channel.ErrStaleSequence, "stale_sequence"},
	{store.ErrConflict, "conflict"},
	{channel.ErrNoGame, "no_game"},
	{channel.ErrGameInProgress, "game_in_progress"},
	{channel.ErrUnknownAction, "unknown_action"},
	{channel.ErrMissingUser, "missing_user"},
	{channel.ErrBadClue, "bad_clue"},
	{channel.ErrBadClueCount, "bad_clue_count"},
	{ErrBadMessage, "bad_message"},
	{ids.ErrBadChannelKey, "bad_channel"},
	{words.ErrListTooShort, "word_list_too_short"},
	{engine.ErrInvalidState, "invalid_state"},
	{engine.ErrUserNotPlaying, "user_not_playing"},
	{engine.ErrNotEnoughPlayers, "not_enough_players"},
	{engine.ErrNeedSpymaster, "need_spymaster"},
	{engine.ErrPlayerIsNotSpymaster, "player_is_not_spymaster"},
	{engine.ErrPlayerIsNotGuesser, "player_is_not_guesser"},
	{engine.ErrWrongTurn, "wrong_turn"},
	{engine.ErrMustGuessOneWord, "must_guess_one_word"},
	{engine.ErrUnknownWord, "unknown_word"},
	{engine.ErrWordAlreadyGuessed, "word_already_guessed"},
	{engine.ErrNotEnoughWords, "not_enough_words"},
	{engine.ErrBadSideDeal, "bad_side_deal"},
	{engine.ErrNegativeClueCount, "negative_clue_count"},
}

// ErrorCode gives err a stable snake_case name for clients; unknown errors
// are "internal".
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
