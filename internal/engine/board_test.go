package engine

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/confucious/gamebot/internal/ids"
)

func countSides(sides []Side) map[Side]int {
	counts := map[Side]int{}
	for _, s := range sides {
		counts[s]++
	}
	return counts
}

func TestDefaultSideShuffler(t *testing.T) {
	for i := 0; i < 50; i++ {
		sides := DefaultSideShuffler()
		if len(sides) != BoardSize {
			t.Fatalf("got %d sides", len(sides))
		}
		counts := countSides(sides)
		if counts[SideAssassin] != 1 || counts[SideNeutral] != 7 {
			t.Fatalf("assassin/neutral counts: %v", counts)
		}
		red, blue := counts[SideRed], counts[SideBlue]
		if !(red == 9 && blue == 8) && !(red == 8 && blue == 9) {
			t.Fatalf("team counts: %v", counts)
		}
	}
}

func TestColumnMinimizingShuffle(t *testing.T) {
	// Five words of each length 1 through 5, interleaved.
	var words []string
	for i := 0; i < 5; i++ {
		for length := 1; length <= 5; length++ {
			words = append(words, strings.Repeat(string(rune('a'+i)), length))
		}
	}

	out := ColumnMinimizingShuffle(words)
	if len(out) != BoardSize {
		t.Fatalf("got %d words", len(out))
	}

	sortedIn, sortedOut := slices.Clone(words), slices.Clone(out)
	slices.Sort(sortedIn)
	slices.Sort(sortedOut)
	if !slices.Equal(sortedIn, sortedOut) {
		t.Fatalf("shuffle changed the word set: %v", out)
	}

	for col := 0; col < BoardColumns; col++ {
		want := utf8.RuneCountInString(out[col])
		for row := 1; row < BoardRows; row++ {
			if got := utf8.RuneCountInString(out[row*BoardColumns+col]); got != want {
				t.Fatalf("column %d mixes lengths %d and %d: %v", col, want, got, out)
			}
		}
	}
}

func TestColumnMinimizingShuffleUsesFirstBoardOfWords(t *testing.T) {
	words := append(slices.Clone(boardWords), "extra1", "extra2")
	out := ColumnMinimizingShuffle(words)
	if len(out) != BoardSize {
		t.Fatalf("got %d words", len(out))
	}
	if slices.Contains(out, "extra1") || slices.Contains(out, "extra2") {
		t.Fatalf("words past the board size leaked in: %v", out)
	}
}

func TestBeginGame(t *testing.T) {
	s := withSpymasters(t)

	if err := s.BeginGame(boardWords, BeginOptions{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(s.Words) != BoardSize {
		t.Fatalf("board has %d words", len(s.Words))
	}
	side, ok := ActiveSide(s.Phase)
	if _, waiting := s.Phase.(WaitingForClue); !waiting || !ok {
		t.Fatalf("phase: got %#v", s.Phase)
	}

	counts := s.RemainingCounts()
	if counts[SideAssassin] != 1 || counts[SideNeutral] != 7 || counts[side] != 9 || counts[side.Other()] != 8 {
		t.Fatalf("counts %v for starting side %s", counts, side)
	}
}

func TestBeginGameUsesPolicies(t *testing.T) {
	s := withSpymasters(t)
	reversed := func(words []string) []string {
		out := slices.Clone(words)
		slices.Reverse(out)
		return out
	}

	err := s.BeginGame(boardWords, BeginOptions{WordShuffler: reversed, SideShuffler: fixedSides})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Words[0] != (Word{Text: "Y", Side: SideRed}) || s.Words[24] != (Word{Text: "A", Side: SideAssassin}) {
		t.Fatalf("board: first %+v last %+v", s.Words[0], s.Words[24])
	}
	assertPhase(t, s, WaitingForClue{Side: SideRed})
}

func TestBeginGameTieGoesToBlue(t *testing.T) {
	s := withSpymasters(t)
	even := func() []Side {
		var sides []Side
		sides = append(sides, SideAssassin)
		sides = appendN(sides, SideNeutral, 8)
		sides = appendN(sides, SideRed, 8)
		sides = appendN(sides, SideBlue, 8)
		return sides
	}

	if err := s.BeginGame(boardWords, BeginOptions{SideShuffler: even}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	assertPhase(t, s, WaitingForClue{Side: SideBlue})
}

func TestBeginGameRejected(t *testing.T) {
	cases := []struct {
		name    string
		users   []ids.UserID
		masters []ids.UserID
		words   []string
		opts    BeginOptions
		wantErr error
	}{
		{name: "nobody playing", words: boardWords, wantErr: ErrNeedSpymaster},
		{name: "one spymaster", users: []ids.UserID{"playerA"}, masters: []ids.UserID{"playerA"}, words: boardWords, wantErr: ErrNeedSpymaster},
		{
			name:    "spymasters without guessers",
			users:   []ids.UserID{"playerA", "playerB"},
			masters: []ids.UserID{"playerA", "playerB"},
			words:   boardWords,
			wantErr: ErrNotEnoughPlayers,
		},
		{
			name:    "one team without guessers",
			users:   []ids.UserID{"playerA", "playerB", "playerC"},
			masters: []ids.UserID{"playerA", "playerB"},
			words:   boardWords,
			wantErr: ErrNotEnoughPlayers,
		},
		{
			name:    "short word list",
			users:   []ids.UserID{"playerA", "playerB", "playerC", "playerD"},
			masters: []ids.UserID{"playerA", "playerB"},
			words:   boardWords[:24],
			wantErr: ErrNotEnoughWords,
		},
		{
			name:    "short side deal",
			users:   []ids.UserID{"playerA", "playerB", "playerC", "playerD"},
			masters: []ids.UserID{"playerA", "playerB"},
			words:   boardWords,
			opts:    BeginOptions{SideShuffler: func() []Side { return fixedSides()[:20] }},
			wantErr: ErrBadSideDeal,
		},
		{
			name:    "word shuffler drops words",
			users:   []ids.UserID{"playerA", "playerB", "playerC", "playerD"},
			masters: []ids.UserID{"playerA", "playerB"},
			words:   boardWords,
			opts:    BeginOptions{WordShuffler: func(w []string) []string { return w[:BoardSize-1] }},
			wantErr: ErrNotEnoughWords,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewEmptyState()
			for _, u := range tc.users {
				s.AddToGame(u)
			}
			for _, u := range tc.masters {
				mustSpymaster(t, &s, u)
			}
			err := s.BeginGame(tc.words, tc.opts)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(s.Words) != 0 {
				t.Fatalf("rejected start built a board")
			}
		})
	}
}

func TestBeginGameWhilePlaying(t *testing.T) {
	s := startedGame(t)
	if err := s.BeginGame(boardWords, BeginOptions{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestBeginGameAfterGameOverRotatesSpymasters(t *testing.T) {
	s := cluedGame(t, 3)
	mustGuess(t, &s, "y", "playerC")
	if _, over := s.Phase.(GameOver); !over {
		t.Fatalf("expected game over, got %#v", s.Phase)
	}

	if err := s.BeginGame(boardWords, BeginOptions{SideShuffler: fixedSides}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if spymasterOf(&s, SideRed) != "playerC" || spymasterOf(&s, SideBlue) != "playerD" {
		t.Fatalf("spymasters: red=%q blue=%q", spymasterOf(&s, SideRed), spymasterOf(&s, SideBlue))
	}
	if len(s.Clues) != 0 {
		t.Fatalf("clues should be cleared, got %v", s.Clues)
	}
	for _, w := range s.Words {
		if w.Guessed {
			t.Fatalf("fresh board has a guessed word: %+v", w)
		}
	}
	assertPhase(t, s, WaitingForClue{Side: SideRed})
}

func TestBadDealAfterGameOverKeepsTheResult(t *testing.T) {
	s := cluedGame(t, 3)
	mustGuess(t, &s, "y", "playerC")
	before := s.Clone()

	err := s.BeginGame(boardWords, BeginOptions{SideShuffler: func() []Side { return nil }})
	if !errors.Is(err, ErrBadSideDeal) {
		t.Fatalf("want ErrBadSideDeal, got %v", err)
	}
	if !reflect.DeepEqual(s, before) {
		t.Fatalf("rejected start changed the finished game")
	}
}

func TestGivenClues(t *testing.T) {
	s := cluedGame(t, 2)
	mustGuess(t, &s, "j", "playerC")
	if err := s.AcceptClue("blue1", Unlimited, "playerB"); err != nil {
		t.Fatalf("AcceptClue: %v", err)
	}

	clues := s.GivenClues()
	if len(clues[SideRed]) != 1 || clues[SideRed][0].Text != "1" {
		t.Fatalf("red clues: %+v", clues[SideRed])
	}
	if len(clues[SideBlue]) != 1 || !clues[SideBlue][0].IsUnlimited() || clues[SideBlue][0].DisplayCount() != "unlimited" {
		t.Fatalf("blue clues: %+v", clues[SideBlue])
	}
}

func TestDisplayCount(t *testing.T) {
	cases := []struct {
		count int
		want  string
	}{
		{count: 0, want: "unlimited"},
		{count: 1, want: "1"},
		{count: MaxCountedClue, want: "9"},
		{count: MaxCountedClue + 1, want: "unlimited"},
		{count: Unlimited, want: "unlimited"},
	}
	for _, tc := range cases {
		c := Clue{Text: "x", Side: SideRed, Count: tc.count}
		if got := c.DisplayCount(); got != tc.want {
			t.Errorf("count %d: got %q, want %q", tc.count, got, tc.want)
		}
		if c.IsUnlimited() != (tc.want == "unlimited") {
			t.Errorf("count %d: IsUnlimited disagrees with %q", tc.count, tc.want)
		}
	}
}
