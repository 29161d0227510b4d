// Package channel applies one chat action to one channel's persisted state.
//
// The flow for every action is: load the channel State, call Apply, store the
// returned State. Apply is pure; it never touches the State it was given and
// performs no I/O beyond the word supply it is handed in Env.
package channel

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/confucious/gamebot/internal/engine"
	"github.com/confucious/gamebot/internal/ids"
	"github.com/confucious/gamebot/internal/words"
)

var ErrStaleSequence = errors.New("action sequence number already applied")
var ErrNoGame = errors.New("no game set up in this channel")
var ErrGameInProgress = errors.New("a game is already set up in this channel")
var ErrUnknownAction = errors.New("unknown action")
var ErrMissingUser = errors.New("action has no user")
var ErrBadClue = errors.New("clue must be a single word")

type ActionType string

const (
	ActSetupGame        ActionType = "setup_game"
	ActShutdownGame     ActionType = "shutdown_game"
	ActJoin             ActionType = "join"
	ActLeave            ActionType = "leave"
	ActBecomeSpymaster  ActionType = "become_spymaster"
	ActAvoidSpymaster   ActionType = "avoid_spymaster"
	ActAllowSpymaster   ActionType = "allow_spymaster"
	ActRotateSpymasters ActionType = "rotate_spymasters"
	ActShuffleTeams     ActionType = "shuffle_teams"
	ActBeginGame        ActionType = "begin_game"
	ActGiveClue         ActionType = "give_clue"
	ActGuess            ActionType = "guess"
	ActPass             ActionType = "pass"
	ActForcePass        ActionType = "force_pass"
	ActEndGame          ActionType = "end_game"
	ActResetEverything  ActionType = "reset_everything"
)

// State is everything stored for one channel.
type State struct {
	Key      ids.ChannelKey
	Sequence uint64
	// Game is nil until a game is set up in the channel.
	Game *engine.State
	// Deck is created on the first begin_game.
	Deck *words.Deck
}

type Action struct {
	Type     ActionType
	User     ids.UserID
	Sequence uint64
	Clue     string
	Count    int
	Word     string
}

// Outcome describes what an applied action did, for whoever reports it back
// to the channel. Side is the actor's team, except after begin_game and the
// passes where it is the team now up.
type Outcome struct {
	Type     ActionType         `json:"type"`
	User     ids.UserID         `json:"user"`
	Side     engine.Side        `json:"side,omitempty"`
	Removed  bool               `json:"removed,omitempty"`
	Guess    engine.GuessResult `json:"guess,omitempty"`
	WordSide engine.Side        `json:"wordSide,omitempty"`
	Phase    *engine.PhaseJSON  `json:"phase,omitempty"`
}

// Env is the randomness and word source used by Apply. Zero fields fall back
// to the production defaults.
type Env struct {
	Words        []string
	Shuffle      func(n int, swap func(i, j int))
	WordShuffler func([]string) []string
	SideShuffler func() []engine.Side
}

func New(key ids.ChannelKey) State {
	return State{Key: key}
}

func (s State) Clone() State {
	out := s
	if s.Game != nil {
		g := s.Game.Clone()
		out.Game = &g
	}
	out.Deck = s.Deck.Clone()
	return out
}

// Apply runs one action against s. Actions must arrive with strictly
// increasing sequence numbers; anything else is rejected untouched. A rule
// violation still consumes the sequence number: the returned state keeps the
// game as it was but records the new sequence.
func Apply(s State, a Action, env Env) (Outcome, State, error) {
	if a.Sequence <= s.Sequence {
		return Outcome{}, s, fmt.Errorf("%w: %d, last applied %d", ErrStaleSequence, a.Sequence, s.Sequence)
	}

	next := s.Clone()
	next.Sequence = a.Sequence
	out, err := apply(&next, a, env.withDefaults())
	if err != nil {
		rejected := s.Clone()
		rejected.Sequence = a.Sequence
		return Outcome{}, rejected, err
	}

	out.Type, out.User = a.Type, a.User
	if next.Game != nil {
		out.Phase = &engine.PhaseJSON{Phase: next.Game.Phase}
	}
	return out, next, nil
}

func apply(s *State, a Action, env Env) (Outcome, error) {
	if a.User == "" {
		return Outcome{}, ErrMissingUser
	}

	switch a.Type {
	case ActSetupGame:
		if s.Game != nil {
			return Outcome{}, ErrGameInProgress
		}
		g := engine.NewEmptyState()
		s.Game = &g
		return Outcome{}, nil

	case ActShutdownGame:
		if s.Game == nil {
			return Outcome{}, ErrNoGame
		}
		s.Game = nil
		return Outcome{}, nil
	}

	g := s.Game
	if g == nil {
		if !knownAction(a.Type) {
			return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
		}
		return Outcome{}, ErrNoGame
	}

	switch a.Type {
	case ActJoin:
		return Outcome{Side: g.AddToGame(a.User)}, nil

	case ActLeave:
		return Outcome{Removed: g.RemoveFromGame(a.User)}, nil

	case ActBecomeSpymaster:
		side, err := g.SetSpymaster(a.User)
		return Outcome{Side: side}, err

	case ActAvoidSpymaster, ActAllowSpymaster:
		return Outcome{}, g.SetAvoidSpymaster(a.User, a.Type == ActAvoidSpymaster)

	case ActRotateSpymasters:
		return Outcome{}, g.RotateSpymasters()

	case ActShuffleTeams:
		return Outcome{}, g.ShuffleTeams(env.Shuffle)

	case ActBeginGame:
		if err := g.ReadyToStart(); err != nil {
			return Outcome{}, err
		}
		if s.Deck == nil {
			deck, err := words.NewDeck(env.Words, env.Shuffle)
			if err != nil {
				return Outcome{}, err
			}
			s.Deck = deck
		}
		batch, err := s.Deck.Supplier(env.Shuffle)()
		if err != nil {
			return Outcome{}, err
		}
		err = g.BeginGame(batch, engine.BeginOptions{WordShuffler: env.WordShuffler, SideShuffler: env.SideShuffler})
		if err != nil {
			return Outcome{}, err
		}
		side, _ := engine.ActiveSide(g.Phase)
		return Outcome{Side: side}, nil

	case ActGiveClue:
		clue := strings.TrimSpace(a.Clue)
		if clue == "" || strings.ContainsAny(clue, " \t\n") {
			return Outcome{}, ErrBadClue
		}
		if a.Count < 0 {
			return Outcome{}, ErrBadClueCount
		}
		if err := g.AcceptClue(clue, a.Count, a.User); err != nil {
			return Outcome{}, err
		}
		side, _ := g.SideOf(a.User)
		return Outcome{Side: side}, nil

	case ActGuess:
		result, wordSide, err := g.AcceptGuess(a.Word, a.User)
		if err != nil {
			return Outcome{}, err
		}
		side, _ := g.SideOf(a.User)
		return Outcome{Side: side, Guess: result, WordSide: wordSide}, nil

	case ActPass, ActForcePass:
		side, err := g.PassTurn(a.User, a.Type == ActForcePass)
		return Outcome{Side: side}, err

	case ActEndGame:
		g.Reset(false)
		return Outcome{}, nil

	case ActResetEverything:
		g.Reset(true)
		return Outcome{}, nil

	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}

func knownAction(t ActionType) bool {
	switch t {
	case ActSetupGame, ActShutdownGame, ActJoin, ActLeave, ActBecomeSpymaster,
		ActAvoidSpymaster, ActAllowSpymaster, ActRotateSpymasters, ActShuffleTeams,
		ActBeginGame, ActGiveClue, ActGuess, ActPass, ActForcePass, ActEndGame,
		ActResetEverything:
		return true
	default:
		return false
	}
}

func (e Env) withDefaults() Env {
	if e.Shuffle == nil {
		e.Shuffle = rand.Shuffle
	}
	if e.WordShuffler == nil {
		e.WordShuffler = engine.ColumnMinimizingShuffle
	}
	if e.SideShuffler == nil {
		e.SideShuffler = engine.DefaultSideShuffler
	}
	return e
}
