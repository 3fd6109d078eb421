package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/geoquiz/apps/go-server/assets"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/config"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/database"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/events"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/httpserver"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/quiz"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/regions"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/results"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/session"
	"github.com/robalobadob/geoquiz/apps/go-server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	set, err := regions.Load(cfg.RegionsFile, cfg.RegionsNameProperty)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load regions")
	}
	log.Info().Int("regions", set.Len()).Str("source", set.Source()).Msg("regions loaded")

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	res := results.NewStore(db)

	pub, err := events.Connect(cfg.NATSURL)
	if err != nil {
		// Events are best effort; the game works without a broker.
		log.Warn().Err(err).Msg("nats unavailable, events disabled")
		pub = events.Noop{}
	}
	defer pub.Close()

	h := hooks{results: res, events: pub, timeout: 5 * time.Second}
	mgr := session.NewManager(session.Config{
		Regions:      set.Names(),
		Options:      quiz.Options{Lives: cfg.GameLives, Duration: cfg.DurationSeconds()},
		TickInterval: cfg.TickInterval,
		IdleTTL:      cfg.SessionIdleTTL,
		OnStart:      h.started,
		OnFinish:     h.finished,
	}, store.NewMemoryStore[*session.Session]())
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go mgr.RunSweeper(ctx)

	srv := httpserver.New(mgr, set, res, httpserver.Options{
		ClientOrigin:   cfg.ClientOrigin,
		JWTSecret:      cfg.JWTSecret,
		JWTExpiresDays: cfg.JWTExpiresDays,
		CookieName:     cfg.CookieName,
		Production:     cfg.Production,
	})
	hs := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mgr.Close()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("starting go-server")
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
