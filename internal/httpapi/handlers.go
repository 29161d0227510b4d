package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/engine"
	"github.com/confucious/gamebot/internal/hub"
	"github.com/confucious/gamebot/internal/ids"
	"github.com/confucious/gamebot/internal/lobby"
	"github.com/confucious/gamebot/internal/store"
	"github.com/confucious/gamebot/internal/types"
	"github.com/confucious/gamebot/internal/words"
)

// maxBody bounds an action request.
const maxBody = 16 << 10

func PostAction(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := channelKey(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, types.Error(0, err))
			return
		}

		var cm types.ClientMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&cm); err != nil {
			writeJSON(w, http.StatusBadRequest, types.Error(0, fmt.Errorf("%w: %v", types.ErrBadMessage, err)))
			return
		}
		action, err := cm.Action()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, types.Error(0, err))
			return
		}

		res, err := apply(r.Context(), h, key, action)
		if err != nil {
			logger.Error("submit failed", zap.Stringer("channel", key), zap.Error(err))
			writeJSON(w, statusFor(err), types.Error(0, err))
			return
		}
		if res.Err != nil {
			writeJSON(w, statusFor(res.Err), types.Error(res.Sequence, res.Err))
			return
		}
		writeJSON(w, http.StatusOK, types.Outcome(res.Sequence, res.Outcome))
	}
}

func GetState(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := channelKey(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, types.Error(0, err))
			return
		}
		lb, err := h.Ensure(r.Context(), key)
		if err != nil {
			writeJSON(w, statusFor(err), types.Error(0, err))
			return
		}
		view, err := lb.State(r.Context())
		if err != nil {
			writeJSON(w, statusFor(err), types.Error(0, err))
			return
		}
		writeJSON(w, http.StatusOK, types.Snapshot(view.Sequence, view.State))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// apply submits to the channel's lobby, restarting it once if it was swept
// between lookup and submit.
func apply(ctx context.Context, h *hub.Hub, key ids.ChannelKey, a channel.Action) (lobby.Result, error) {
	for attempt := 0; ; attempt++ {
		lb, err := h.Ensure(ctx, key)
		if err != nil {
			return lobby.Result{}, err
		}
		res, err := lb.Apply(ctx, a)
		if errors.Is(err, lobby.ErrClosed) && attempt == 0 {
			continue
		}
		return res, err
	}
}

func channelKey(r *http.Request) (ids.ChannelKey, error) {
	return ids.NewChannelKey(chi.URLParam(r, "team"), chi.URLParam(r, "channel"))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, channel.ErrStaleSequence), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, types.ErrBadMessage), errors.Is(err, ids.ErrBadChannelKey),
		errors.Is(err, channel.ErrUnknownAction), errors.Is(err, channel.ErrMissingUser),
		errors.Is(err, channel.ErrBadClue), errors.Is(err, channel.ErrBadClueCount):
		return http.StatusBadRequest
	case isRuleViolation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lobby.ErrClosed), errors.Is(err, hub.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isRuleViolation(err error) bool {
	var se *engine.StateError
	return errors.As(err, &se) ||
		errors.Is(err, channel.ErrNoGame) ||
		errors.Is(err, channel.ErrGameInProgress) ||
		errors.Is(err, words.ErrListTooShort) ||
		errors.Is(err, engine.ErrNotEnoughPlayers) ||
		errors.Is(err, engine.ErrNeedSpymaster) ||
		errors.Is(err, engine.ErrPlayerIsNotSpymaster) ||
		errors.Is(err, engine.ErrPlayerIsNotGuesser) ||
		errors.Is(err, engine.ErrWrongTurn) ||
		errors.Is(err, engine.ErrMustGuessOneWord) ||
		errors.Is(err, engine.ErrNotEnoughWords) ||
		errors.Is(err, engine.ErrNegativeClueCount)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
