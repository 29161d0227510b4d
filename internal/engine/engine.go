package engine

import (
	"fmt"
	"strings"

	"github.com/confucious/gamebot/internal/ids"
)

type Side string

const (
	SideRed      Side = "red"
	SideBlue     Side = "blue"
	SideNeutral  Side = "neutral"
	SideAssassin Side = "assassin"
)

// IsTeam reports whether players can be on s.
func (s Side) IsTeam() bool {
	return s == SideRed || s == SideBlue
}

// Other returns the opposing team. Only red and blue have one.
func (s Side) Other() Side {
	switch s {
	case SideRed:
		return SideBlue
	case SideBlue:
		return SideRed
	default:
		panic("engine: no other side for " + string(s))
	}
}

type Role string

const (
	RoleSpymaster Role = "spymaster"
	RoleGuesser   Role = "guesser"
)

type Word struct {
	Text    string `json:"word"`
	Side    Side   `json:"side"`
	Guessed bool   `json:"guessed"`
}

type Player struct {
	ID             ids.UserID `json:"id"`
	Side           Side       `json:"side"`
	Role           Role       `json:"role"`
	AvoidSpymaster bool       `json:"avoidSpymaster"`
}

// State is the whole game for one channel. It is always loaded, mutated and
// stored as a unit.
type State struct {
	Phase   Phase
	Words   []Word
	Players []Player
	Clues   []Clue
}

type GuessResult string

const (
	GuessCorrect  GuessResult = "correct"
	GuessWrong    GuessResult = "wrong"
	GuessGameOver GuessResult = "gameOver"
)

// BeginOptions carries the randomness used to lay out a board.
type BeginOptions struct {
	// WordShuffler reorders the supplied words before they are paired with
	// sides. Nil keeps the supplied order.
	WordShuffler func([]string) []string
	// SideShuffler produces the 25 side assignments. Nil uses DefaultSideShuffler.
	SideShuffler func() []Side
}

// ReadyToStart checks that a game can begin from the current phase and roster.
func (s *State) ReadyToStart() error {
	if !canStart(s.Phase) {
		return invalidState(s.Phase)
	}
	if _, ok := s.Spymaster(SideRed); !ok {
		return ErrNeedSpymaster
	}
	if _, ok := s.Spymaster(SideBlue); !ok {
		return ErrNeedSpymaster
	}
	if len(s.Guessers(SideRed)) == 0 || len(s.Guessers(SideBlue)) == 0 {
		return ErrNotEnoughPlayers
	}
	return nil
}

// BeginGame lays out a fresh board and hands the first clue to the side with
// more words. Coming from GameOver the previous game is cleared and the
// spymasters rotate first.
func (s *State) BeginGame(words []string, opts BeginOptions) error {
	if !canStart(s.Phase) {
		return invalidState(s.Phase)
	}
	if len(words) < BoardSize {
		return ErrNotEnoughWords
	}

	shuffle := opts.WordShuffler
	if shuffle == nil {
		shuffle = identity
	}
	dealSides := opts.SideShuffler
	if dealSides == nil {
		dealSides = DefaultSideShuffler
	}
	laidOut, sides := shuffle(words), dealSides()
	if len(laidOut) < BoardSize {
		return ErrNotEnoughWords
	}
	if len(sides) < BoardSize {
		return fmt.Errorf("%w: %d", ErrBadSideDeal, len(sides))
	}

	if _, over := s.Phase.(GameOver); over {
		s.Reset(false)
		if err := s.RotateSpymasters(); err != nil {
			return err
		}
	}
	if err := s.ReadyToStart(); err != nil {
		return err
	}

	s.Words = buildBoard(laidOut, sides)

	// Ties go to blue.
	counts := s.RemainingCounts()
	if counts[SideRed] > counts[SideBlue] {
		s.Phase = WaitingForClue{Side: SideRed}
	} else {
		s.Phase = WaitingForClue{Side: SideBlue}
	}
	return nil
}

// AcceptClue records a clue from the spymaster whose team is up.
func (s *State) AcceptClue(text string, count int, user ids.UserID) error {
	waiting, ok := s.Phase.(WaitingForClue)
	if !ok {
		return invalidState(s.Phase)
	}
	player, ok := s.PlayerFor(user)
	if !ok {
		return userNotPlaying(user)
	}
	if waiting.Side != player.Side {
		return ErrWrongTurn
	}
	if player.Role != RoleSpymaster {
		return ErrPlayerIsNotSpymaster
	}
	if count < 0 {
		return ErrNegativeClueCount
	}

	s.Clues = append(s.Clues, Clue{Text: text, Side: player.Side, Count: count})
	s.Phase = WaitingForGuesses{Side: player.Side, Clue: text, CluedGuesses: count, GuessesTaken: 0}
	return nil
}

// AcceptGuess resolves one guess from a guesser whose team is up. It returns
// the outcome and the side the guessed word belonged to.
func (s *State) AcceptGuess(guess string, user ids.UserID) (GuessResult, Side, error) {
	turn, ok := s.Phase.(WaitingForGuesses)
	if !ok {
		return "", "", invalidState(s.Phase)
	}
	player, ok := s.PlayerFor(user)
	if !ok {
		return "", "", userNotPlaying(user)
	}
	if turn.Side != player.Side {
		return "", "", ErrWrongTurn
	}
	if player.Role != RoleGuesser {
		return "", "", ErrPlayerIsNotGuesser
	}

	idx := s.wordIndex(guess)
	if idx < 0 {
		return "", "", wordError(ErrUnknownWord, guess)
	}
	if s.Words[idx].Guessed {
		return "", "", wordError(ErrWordAlreadyGuessed, guess)
	}
	s.Words[idx].Guessed = true
	word := s.Words[idx]

	side := turn.Side
	switch {
	case word.Side == SideAssassin:
		s.Phase = s.gameOver(side.Other())
		return GuessGameOver, word.Side, nil

	case word.Side != side:
		if s.RemainingCounts()[side.Other()] == 0 {
			s.Phase = s.gameOver(side.Other())
			return GuessGameOver, word.Side, nil
		}
		s.Phase = WaitingForClue{Side: side.Other()}
		return GuessWrong, word.Side, nil

	default:
		if s.RemainingCounts()[side] == 0 {
			s.Phase = s.gameOver(side)
			return GuessGameOver, word.Side, nil
		}
		// The guess after the clued count is the bonus guess; taking it ends the turn.
		if limited(turn.CluedGuesses) && turn.GuessesTaken >= turn.CluedGuesses {
			s.Phase = WaitingForClue{Side: side.Other()}
			return GuessCorrect, word.Side, nil
		}
		turn.GuessesTaken++
		s.Phase = turn
		return GuessCorrect, word.Side, nil
	}
}

// PassTurn ends the guessing team's turn and returns the side now up.
// A forced pass skips every player check and also works while waiting for a
// clue.
func (s *State) PassTurn(user ids.UserID, force bool) (Side, error) {
	if force {
		switch p := s.Phase.(type) {
		case WaitingForClue:
			s.Phase = WaitingForClue{Side: p.Side.Other()}
			return p.Side.Other(), nil
		case WaitingForGuesses:
			s.Phase = WaitingForClue{Side: p.Side.Other()}
			return p.Side.Other(), nil
		default:
			return "", invalidState(s.Phase)
		}
	}

	turn, ok := s.Phase.(WaitingForGuesses)
	if !ok {
		return "", invalidState(s.Phase)
	}
	player, ok := s.PlayerFor(user)
	if !ok {
		return "", userNotPlaying(user)
	}
	if turn.Side != player.Side {
		return "", ErrWrongTurn
	}
	if player.Role != RoleGuesser {
		return "", ErrPlayerIsNotGuesser
	}
	if turn.GuessesTaken == 0 {
		return "", ErrMustGuessOneWord
	}
	s.Phase = WaitingForClue{Side: turn.Side.Other()}
	return turn.Side.Other(), nil
}

// Reset returns to Setup and clears the board and clues, optionally the
// roster as well.
func (s *State) Reset(includingPlayers bool) {
	s.Phase = Setup{}
	s.Words = []Word{}
	s.Clues = []Clue{}
	if includingPlayers {
		s.Players = []Player{}
	}
}

func (s *State) gameOver(winner Side) GameOver {
	return GameOver{
		WinningSide:    winner,
		WinningPlayers: playerIDs(s.PlayersOn(winner)),
		LosingPlayers:  playerIDs(s.PlayersOn(winner.Other())),
	}
}

func (s *State) wordIndex(guess string) int {
	guess = strings.TrimSpace(guess)
	for i, w := range s.Words {
		if strings.EqualFold(w.Text, guess) {
			return i
		}
	}
	return -1
}

func identity(words []string) []string {
	return words
}
