package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confucious/gamebot/internal/hub"
	"github.com/confucious/gamebot/internal/ids"
	"github.com/confucious/gamebot/internal/lobby"
	"github.com/confucious/gamebot/internal/types"
)

// Handler streams a channel's snapshots to the client and accepts actions in
// the other direction. Each action is answered with an Outcome or Error
// message; snapshots and answers may interleave in either order.
// originPatterns lists the cross-origin hosts allowed to connect.
func Handler(h *hub.Hub, originPatterns []string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := ids.NewChannelKey(r.URL.Query().Get("team"), r.URL.Query().Get("channel"))
		if err != nil {
			http.Error(w, "missing team or channel", http.StatusBadRequest)
			return
		}

		lb, err := h.Ensure(r.Context(), key)
		if err != nil {
			http.Error(w, "channel unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Debug("websocket accept failed", zap.Stringer("channel", key), zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := logger.With(zap.Stringer("channel", key), zap.String("client", clientID))
		out := make(chan lobby.Snapshot, 8)

		select {
		case lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}:
		case <-lb.Done():
			conn.Close(websocket.StatusTryAgainLater, "channel closed")
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
			case <-lb.Done():
			}
		}()
		log.Debug("client connected")

		// Writer goroutine. The lobby closes out on Leave, on a slow-client
		// drop and on shutdown; writeCtx covers a lobby that never drains Leave.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case snap, ok := <-out:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "channel closed")
						return
					}
					if err := write(writeCtx, conn, types.Snapshot(snap.Sequence, snap.State)); err != nil {
						log.Debug("snapshot write failed", zap.Error(err))
					}
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(r.Context(), conn, types.Error(0, types.ErrBadMessage))
				continue
			}
			action, err := cm.Action()
			if err != nil {
				_ = write(r.Context(), conn, types.Error(0, err))
				continue
			}

			res, err := lb.Apply(r.Context(), action)
			switch {
			case errors.Is(err, lobby.ErrClosed):
				return
			case err != nil:
				_ = write(r.Context(), conn, types.Error(0, err))
			case res.Err != nil:
				_ = write(r.Context(), conn, types.Error(res.Sequence, res.Err))
			default:
				_ = write(r.Context(), conn, types.Outcome(res.Sequence, res.Outcome))
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
