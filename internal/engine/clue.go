package engine

import "strconv"

// Unlimited is the clue count for "guess as many as you like". Zero and any
// count above MaxCountedClue are also unlimited.
const Unlimited = 99

// MaxCountedClue is the largest count that limits guessing.
const MaxCountedClue = 9

type Clue struct {
	Text  string `json:"word"`
	Side  Side   `json:"side"`
	Count int    `json:"count"`
}

func (c Clue) IsUnlimited() bool {
	return !limited(c.Count)
}

// DisplayCount is the count as players see it.
func (c Clue) DisplayCount() string {
	if c.IsUnlimited() {
		return "unlimited"
	}
	return strconv.Itoa(c.Count)
}

// GivenClues groups the clue log by team, oldest first.
func (s *State) GivenClues() map[Side][]Clue {
	grouped := map[Side][]Clue{SideRed: {}, SideBlue: {}}
	for _, c := range s.Clues {
		grouped[c.Side] = append(grouped[c.Side], c)
	}
	return grouped
}

func limited(count int) bool {
	return count > 0 && count <= MaxCountedClue
}
