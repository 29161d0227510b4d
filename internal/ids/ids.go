package ids

import (
	"errors"
	"strings"
)

var ErrBadChannelKey = errors.New("bad channel key")

type UserID string

type TeamID string

type ChannelID string

// ChannelKey identifies one game: a chat workspace plus a channel inside it.
type ChannelKey struct {
	Team    TeamID
	Channel ChannelID
}

func (k ChannelKey) String() string {
	return string(k.Team) + "|" + string(k.Channel)
}

func (k ChannelKey) IsZero() bool {
	return k.Team == "" || k.Channel == ""
}

func ParseChannelKey(s string) (ChannelKey, error) {
	team, channel, ok := strings.Cut(s, "|")
	if !ok || team == "" || channel == "" {
		return ChannelKey{}, ErrBadChannelKey
	}
	return ChannelKey{Team: TeamID(team), Channel: ChannelID(channel)}, nil
}

// NewChannelKey rejects empty ids and team ids containing the "|" separator.
func NewChannelKey(team, channel string) (ChannelKey, error) {
	if team == "" || channel == "" || strings.Contains(team, "|") {
		return ChannelKey{}, ErrBadChannelKey
	}
	return ChannelKey{Team: TeamID(team), Channel: ChannelID(channel)}, nil
}
