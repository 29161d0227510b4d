package engine

import (
	"errors"
	"fmt"

	"github.com/confucious/gamebot/internal/ids"
)

var ErrInvalidState = errors.New("action not allowed in current phase")
var ErrUserNotPlaying = errors.New("user is not playing")
var ErrNotEnoughPlayers = errors.New("each team needs at least one guesser")
var ErrNeedSpymaster = errors.New("each team needs a spymaster")
var ErrPlayerIsNotSpymaster = errors.New("player is not the spymaster")
var ErrPlayerIsNotGuesser = errors.New("player is not a guesser")
var ErrWrongTurn = errors.New("not this team's turn")
var ErrMustGuessOneWord = errors.New("must guess at least one word before passing")
var ErrUnknownWord = errors.New("word is not on the board")
var ErrWordAlreadyGuessed = errors.New("word was already guessed")
var ErrNotEnoughWords = errors.New("not enough words for a board")
var ErrBadSideDeal = errors.New("side dealer returned too few sides")
var ErrNegativeClueCount = errors.New("clue count cannot be negative")

// StateError carries the details of a rejected action. It unwraps to one of
// the sentinel errors above, so errors.Is works on the kind.
type StateError struct {
	Kind  error
	Phase Phase
	User  ids.UserID
	Word  string
}

func (e *StateError) Error() string {
	switch {
	case e.Phase != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Phase)
	case e.User != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.User)
	case e.Word != "":
		return fmt.Sprintf("%v: %q", e.Kind, e.Word)
	default:
		return e.Kind.Error()
	}
}

func (e *StateError) Unwrap() error { return e.Kind }

func invalidState(p Phase) error {
	if p == nil {
		p = Setup{}
	}
	return &StateError{Kind: ErrInvalidState, Phase: p}
}

func userNotPlaying(user ids.UserID) error {
	return &StateError{Kind: ErrUserNotPlaying, User: user}
}

func wordError(kind error, word string) error {
	return &StateError{Kind: kind, Word: word}
}
