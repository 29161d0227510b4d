package engine

import (
	"fmt"

	"github.com/confucious/gamebot/internal/ids"
)

type PhaseKind string

const (
	KindSetup             PhaseKind = "setup"
	KindWaitingForClue    PhaseKind = "waitingForClue"
	KindWaitingForGuesses PhaseKind = "waitingForGuesses"
	KindGameOver          PhaseKind = "gameOver"
)

// Phase is exactly one of Setup, WaitingForClue, WaitingForGuesses or GameOver.
type Phase interface {
	Kind() PhaseKind
	isPhase()
}

type Setup struct{}

type WaitingForClue struct {
	Side Side
}

type WaitingForGuesses struct {
	Side         Side
	Clue         string
	CluedGuesses int
	GuessesTaken int
}

// GameOver keeps the roster as it stood when the game was decided.
type GameOver struct {
	WinningSide    Side
	WinningPlayers []ids.UserID
	LosingPlayers  []ids.UserID
}

func (Setup) Kind() PhaseKind             { return KindSetup }
func (WaitingForClue) Kind() PhaseKind    { return KindWaitingForClue }
func (WaitingForGuesses) Kind() PhaseKind { return KindWaitingForGuesses }
func (GameOver) Kind() PhaseKind          { return KindGameOver }

func (Setup) isPhase()             {}
func (WaitingForClue) isPhase()    {}
func (WaitingForGuesses) isPhase() {}
func (GameOver) isPhase()          {}

func (Setup) String() string { return string(KindSetup) }

func (p WaitingForClue) String() string {
	return fmt.Sprintf("%s(%s)", KindWaitingForClue, p.Side)
}

func (p WaitingForGuesses) String() string {
	return fmt.Sprintf("%s(%s, %q, %d/%d)", KindWaitingForGuesses, p.Side, p.Clue, p.GuessesTaken, p.CluedGuesses)
}

func (p GameOver) String() string {
	return fmt.Sprintf("%s(%s)", KindGameOver, p.WinningSide)
}

// ActiveSide returns the team that is up, if a turn is in progress.
func ActiveSide(p Phase) (Side, bool) {
	switch p := p.(type) {
	case WaitingForClue:
		return p.Side, true
	case WaitingForGuesses:
		return p.Side, true
	default:
		return "", false
	}
}

func canStart(p Phase) bool {
	switch p.(type) {
	case Setup, GameOver, nil:
		return true
	default:
		return false
	}
}
