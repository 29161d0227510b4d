package store

import (
	"context"
	"sync"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/ids"
)

// Memory keeps encoded states in a map. State is lost on restart.
type Memory struct {
	mu       sync.RWMutex
	channels map[ids.ChannelKey]memoryEntry
}

type memoryEntry struct {
	sequence uint64
	payload  []byte
}

func NewMemory() *Memory {
	return &Memory{channels: make(map[ids.ChannelKey]memoryEntry)}
}

func (m *Memory) Load(_ context.Context, key ids.ChannelKey) (channel.State, error) {
	m.mu.RLock()
	entry, ok := m.channels[key]
	m.mu.RUnlock()
	if !ok {
		return channel.New(key), nil
	}
	return channel.Decode(entry.payload)
}

func (m *Memory) Save(_ context.Context, s channel.State, prevSequence uint64) error {
	payload, err := channel.Encode(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channels[s.Key].sequence != prevSequence {
		return ErrConflict
	}
	m.channels[s.Key] = memoryEntry{sequence: s.Sequence, payload: payload}
	return nil
}

func (m *Memory) Close() error { return nil }
