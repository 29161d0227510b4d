package channel

import (
	"errors"
	"strconv"
	"strings"

	"github.com/confucious/gamebot/internal/engine"
)

var ErrBadClueCount = errors.New("clue count must be a number or \"unlimited\"")

// ParseClueCount reads the number a spymaster typed after a clue. Counts of
// ten or more, and the word "unlimited", mean no limit.
func ParseClueCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "unlimited") {
		return engine.Unlimited, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrBadClueCount
	}
	if n >= 10 {
		return engine.Unlimited, nil
	}
	return n, nil
}
