package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/config"
	"github.com/confucious/gamebot/internal/httpapi"
	"github.com/confucious/gamebot/internal/hub"
	"github.com/confucious/gamebot/internal/lobby"
	"github.com/confucious/gamebot/internal/store"
	"github.com/confucious/gamebot/internal/words"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := cfg.Logger()
	if err != nil {
		panic(err)
	}
	os.Exit(finish(logger, run(cfg, logger)))
}

// finish logs how the server stopped and flushes the logger, returning the
// process exit code.
func finish(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func run(cfg config.Config, logger *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	list, err := words.Load(cfg.WordsFile)
	if err != nil {
		return err
	}
	logger.Info("word list loaded", zap.Int("words", len(list)), zap.String("file", cfg.WordsFile))

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	// Build the hub with storage and the word list injected
	// The hub outlives the signal so in-flight requests can finish.
	h := hub.NewHub(context.Background(), lobby.Deps{Store: st, Env: channel.Env{Words: list}, Logger: logger})
	if cfg.SweepSpec != "" {
		sweeper, err := h.StartSweeper(cfg.SweepSpec, cfg.IdleAfter)
		if err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(h, cfg.WSOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store.Backend))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	select {
	case h.Inbox() <- hub.ShutdownHub{}:
	case <-h.Done():
	}
	<-h.Done()
	return err
}
