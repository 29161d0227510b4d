// Package lobby runs one actor goroutine per chat channel. The actor
// serializes actions for its channel, persists each result and pushes
// snapshots to subscribed clients.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/ids"
	"github.com/confucious/gamebot/internal/store"
)

var ErrClosed = errors.New("lobby is shut down")

type Msg interface{ isLobbyMsg() }

// Submit applies one action. An action with Sequence 0 is given the next
// number after the stored one.
type Submit struct {
	Action channel.Action
	Reply  chan Result
}

func (Submit) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Result struct {
	Outcome  channel.Outcome
	Sequence uint64
	Err      error
}

type Snapshot struct {
	Sequence uint64
	State    channel.State
}

type View struct {
	Sequence   uint64
	NumClients int
	State      channel.State
	Err        error
}

type Deps struct {
	Store  store.Store
	Env    channel.Env
	Logger *zap.Logger
}

type Lobby struct {
	key     ids.ChannelKey
	inbox   chan Msg
	clients map[string]chan Snapshot
	store   store.Store
	env     channel.Env
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	lastActive atomic.Int64
	numClients atomic.Int32
}

func NewLobby(parent context.Context, key ids.ChannelKey, deps Deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Lobby{
		key:     key,
		inbox:   make(chan Msg, 64),
		clients: make(map[string]chan Snapshot),
		store:   deps.Store,
		env:     deps.Env,
		log:     logger.With(zap.Stringer("channel", key)),
		ctx:     ctx,
		cancel:  cancel,
	}
	l.touch()

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			l.touch()
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = msg.Outbox
				l.numClients.Store(int32(len(l.clients)))
				st, err := l.store.Load(l.ctx, l.key)
				if err != nil {
					l.log.Error("load for join failed", zap.Error(err))
					break
				}
				l.send(msg.ClientID, Snapshot{Sequence: st.Sequence, State: st})

			case Leave:
				// Already gone if send dropped it as slow.
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
					l.numClients.Store(int32(len(l.clients)))
				}

			case Submit:
				msg.Reply <- l.submit(msg.Action)

			case GetState:
				st, err := l.store.Load(l.ctx, l.key)
				msg.Reply <- View{
					Sequence:   st.Sequence,
					NumClients: len(l.clients),
					State:      st,
					Err:        err,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) submit(a channel.Action) Result {
	assigned := a.Sequence == 0
	for attempt := 0; ; attempt++ {
		current, err := l.store.Load(l.ctx, l.key)
		if err != nil {
			l.log.Error("load failed", zap.Error(err))
			return Result{Err: fmt.Errorf("load %s: %w", l.key, err)}
		}
		if assigned {
			a.Sequence = current.Sequence + 1
		}

		outcome, next, applyErr := channel.Apply(current, a, l.env)
		if next.Sequence != current.Sequence {
			err := l.store.Save(l.ctx, next, current.Sequence)
			if errors.Is(err, store.ErrConflict) && assigned && attempt == 0 {
				l.log.Debug("save conflict, retrying", zap.Uint64("sequence", a.Sequence))
				continue
			}
			if err != nil {
				l.log.Error("save failed", zap.Uint64("sequence", a.Sequence), zap.Error(err))
				return Result{Err: fmt.Errorf("save %s: %w", l.key, err)}
			}
		}

		fields := []zap.Field{
			zap.String("action", string(a.Type)),
			zap.String("user", string(a.User)),
			zap.Uint64("sequence", a.Sequence),
		}
		if applyErr != nil {
			l.log.Info("action rejected", append(fields, zap.Error(applyErr))...)
			return Result{Sequence: next.Sequence, Err: applyErr}
		}
		l.log.Info("action applied", fields...)
		l.broadcast(Snapshot{Sequence: next.Sequence, State: next})
		return Result{Outcome: outcome, Sequence: next.Sequence}
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.numClients.Store(0)
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id := range l.clients {
		l.send(id, snap)
	}
}

// send drops a client whose outbox is full.
func (l *Lobby) send(id string, snap Snapshot) {
	ch := l.clients[id]
	select {
	case ch <- snap:
	default:
		close(ch)
		delete(l.clients, id)
		l.numClients.Store(int32(len(l.clients)))
		l.log.Info("dropped slow client", zap.String("client", id))
	}
}

func (l *Lobby) touch() {
	l.lastActive.Store(time.Now().UnixNano())
}

// Inbox exposes the actor's mailbox to the hub and transports.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Key() ids.ChannelKey { return l.key }

// Done is closed once the lobby has shut down.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// IdleSince reports when the lobby last handled a message, and whether it
// has no subscribed clients.
func (l *Lobby) IdleSince() (time.Time, bool) {
	return time.Unix(0, l.lastActive.Load()), l.numClients.Load() == 0
}

// Apply submits a and waits for its result.
func (l *Lobby) Apply(ctx context.Context, a channel.Action) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- Submit{Action: a, Reply: reply}:
	case <-l.ctx.Done():
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res, nil
	case <-l.ctx.Done():
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// State returns the channel's stored state as the actor sees it.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, v.Err
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
