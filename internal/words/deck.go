package words

import (
	"fmt"
	"slices"
)

// Deck walks through a shuffled word list one board at a time. It is stored
// with the channel between games.
type Deck struct {
	Index int      `json:"index"`
	Words []string `json:"words"`
}

// NewDeck shuffles a copy of list. shuffle has the signature of rand.Shuffle.
func NewDeck(list []string, shuffle func(n int, swap func(i, j int))) (*Deck, error) {
	if len(list) < BatchSize {
		return nil, fmt.Errorf("%w: %d words", ErrListTooShort, len(list))
	}
	d := &Deck{Words: slices.Clone(list)}
	d.reshuffle(shuffle)
	return d, nil
}

// NextBatch returns the next 25 words. When fewer than 25 are left the whole
// list is reshuffled and dealing starts over.
func (d *Deck) NextBatch(shuffle func(n int, swap func(i, j int))) ([]string, error) {
	if len(d.Words) < BatchSize {
		return nil, fmt.Errorf("%w: %d words", ErrListTooShort, len(d.Words))
	}
	if d.Index < 0 || d.Index+BatchSize > len(d.Words) {
		d.reshuffle(shuffle)
	}
	batch := slices.Clone(d.Words[d.Index : d.Index+BatchSize])
	d.Index += BatchSize
	return batch, nil
}

// Supplier binds the deck to a shuffle function.
func (d *Deck) Supplier(shuffle func(n int, swap func(i, j int))) Supplier {
	return func() ([]string, error) {
		return d.NextBatch(shuffle)
	}
}

func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	return &Deck{Index: d.Index, Words: slices.Clone(d.Words)}
}

func (d *Deck) reshuffle(shuffle func(n int, swap func(i, j int))) {
	d.Index = 0
	shuffle(len(d.Words), func(i, j int) { d.Words[i], d.Words[j] = d.Words[j], d.Words[i] })
}
