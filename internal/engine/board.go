package engine

import (
	"math/rand/v2"
	"slices"
	"unicode/utf8"
)

const (
	BoardRows    = 5
	BoardColumns = 5
	BoardSize    = BoardRows * BoardColumns

	assassinWords = 1
	neutralWords  = 7
	teamWords     = 8
)

// DefaultSideShuffler returns the side of every board position: one assassin,
// seven neutral, eight per team plus a ninth for a randomly chosen team, in
// random order.
func DefaultSideShuffler() []Side {
	sides := make([]Side, 0, BoardSize)
	sides = append(sides, SideAssassin)
	sides = appendN(sides, SideNeutral, neutralWords)
	sides = appendN(sides, SideRed, teamWords)
	sides = appendN(sides, SideBlue, teamWords)
	if rand.IntN(2) == 0 {
		sides = append(sides, SideRed)
	} else {
		sides = append(sides, SideBlue)
	}
	rand.Shuffle(len(sides), func(i, j int) { sides[i], sides[j] = sides[j], sides[i] })
	return sides
}

// ColumnMinimizingShuffle lays out the first 25 words so that words of similar
// length share a column, which keeps a rendered 5x5 grid narrow. Only the
// placement changes; the set of words does not.
func ColumnMinimizingShuffle(words []string) []string {
	if len(words) < BoardSize {
		return slices.Clone(words)
	}
	byLength := slices.Clone(words[:BoardSize])
	slices.SortStableFunc(byLength, func(a, b string) int {
		return utf8.RuneCountInString(a) - utf8.RuneCountInString(b)
	})

	columns := make([][]string, BoardColumns)
	for c := range columns {
		band := byLength[c*BoardRows : (c+1)*BoardRows]
		rand.Shuffle(len(band), func(i, j int) { band[i], band[j] = band[j], band[i] })
		columns[c] = band
	}
	rand.Shuffle(len(columns), func(i, j int) { columns[i], columns[j] = columns[j], columns[i] })

	out := make([]string, 0, BoardSize)
	for row := 0; row < BoardRows; row++ {
		for col := 0; col < BoardColumns; col++ {
			out = append(out, columns[col][row])
		}
	}
	return out
}

// RemainingCounts counts unguessed words per side. Sides with nothing left
// are present with zero.
func (s *State) RemainingCounts() map[Side]int {
	counts := map[Side]int{SideRed: 0, SideBlue: 0, SideNeutral: 0, SideAssassin: 0}
	for _, w := range s.Words {
		if !w.Guessed {
			counts[w.Side]++
		}
	}
	return counts
}

// buildBoard pairs words with sides position by position.
func buildBoard(words []string, sides []Side) []Word {
	n := min(len(words), len(sides), BoardSize)
	board := make([]Word, n)
	for i := range board {
		board[i] = Word{Text: words[i], Side: sides[i]}
	}
	return board
}

func appendN(sides []Side, side Side, n int) []Side {
	for range n {
		sides = append(sides, side)
	}
	return sides
}
