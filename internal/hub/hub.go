// Package hub keeps one lobby actor per channel key.
package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/confucious/gamebot/internal/ids"
	"github.com/confucious/gamebot/internal/lobby"
)

var ErrClosed = errors.New("hub is shut down")

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	Key   ids.ChannelKey
	Reply chan *lobby.Lobby
}

// EnsureLobby starts the channel's lobby if it is not running.
type EnsureLobby struct {
	Key   ids.ChannelKey
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Key ids.ChannelKey
}

// SweepIdle shuts down lobbies with no clients that have been quiet since
// before Cutoff. The number stopped is sent on Reply when it is not nil.
type SweepIdle struct {
	Cutoff time.Time
	Reply  chan int
}

type ShutdownHub struct{}

func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (SweepIdle) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[ids.ChannelKey]*lobby.Lobby
	deps    lobby.Deps
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, deps lobby.Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[ids.ChannelKey]*lobby.Lobby),
		deps:    deps,
		log:     deps.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.live(msg.Key) // May be nil

			case EnsureLobby:
				if lb := h.live(msg.Key); lb != nil {
					msg.Reply <- lb
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Key, h.deps)
				h.lobbies[msg.Key] = lb
				h.log.Debug("lobby started", zap.Stringer("channel", msg.Key))
				msg.Reply <- lb

			case RemoveLobby:
				if lb := h.lobbies[msg.Key]; lb != nil {
					stopLobby(lb)
					delete(h.lobbies, msg.Key)
				}

			case SweepIdle:
				n := h.sweep(msg.Cutoff)
				if msg.Reply != nil {
					msg.Reply <- n
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// live returns the running lobby for key, forgetting one that has stopped.
func (h *Hub) live(key ids.ChannelKey) *lobby.Lobby {
	lb := h.lobbies[key]
	if lb == nil {
		return nil
	}
	select {
	case <-lb.Done():
		delete(h.lobbies, key)
		return nil
	default:
		return lb
	}
}

func (h *Hub) sweep(cutoff time.Time) int {
	stopped := 0
	for key, lb := range h.lobbies {
		last, idle := lb.IdleSince()
		if !idle || !last.Before(cutoff) {
			continue
		}
		stopLobby(lb)
		delete(h.lobbies, key)
		stopped++
	}
	if stopped > 0 {
		h.log.Info("stopped idle lobbies", zap.Int("count", stopped), zap.Int("remaining", len(h.lobbies)))
	}
	return stopped
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		stopLobby(lb)
	}
	clear(h.lobbies)
	h.cancel()
}

// stopLobby asks lb to shut down. A lobby that already stopped may have a
// full inbox nobody reads, so give up once it is done.
func stopLobby(lb *lobby.Lobby) {
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	}
}

// Ensure returns the running lobby for key, starting it if needed.
func (h *Hub) Ensure(ctx context.Context, key ids.ChannelKey) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- EnsureLobby{Key: key, Reply: reply}:
	case <-h.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-h.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// StartSweeper schedules SweepIdle on a cron spec such as "@every 10m",
// stopping lobbies idle for longer than idle. Stop the returned cron on exit.
func (h *Hub) StartSweeper(spec string, idle time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		select {
		case h.inbox <- SweepIdle{Cutoff: time.Now().Add(-idle)}:
		case <-h.ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule idle sweep %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }
