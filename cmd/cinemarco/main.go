package main

import (
	"context"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cinemarco/cinemarco/internal/api"
	"github.com/cinemarco/cinemarco/internal/config"
	"github.com/cinemarco/cinemarco/internal/database"
	"github.com/cinemarco/cinemarco/internal/logger"
	"github.com/cinemarco/cinemarco/internal/metadata"
	"github.com/cinemarco/cinemarco/internal/scheduler"
	"github.com/cinemarco/cinemarco/internal/websocket"
	"github.com/cinemarco/cinemarco/web"
)

func main() {
	// .env is optional; real deployments use config file or env vars.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting Cinemarco")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	hub := websocket.NewHub()
	go hub.Run()

	server := api.NewServer(db.Conn(), hub, cfg, log.Logger)

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	refresher := metadata.NewRefresher(server.Library(), server.TMDB(), server.Progress(), log.Logger)
	if err := sched.Register(scheduler.Task{
		ID:   "metadata-refresh",
		Name: "Refresh metadata",
		Cron: cfg.Scheduler.MetadataRefreshCron,
		Run:  refresher.Run,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to register metadata refresh task")
	}
	server.SetScheduler(sched)
	sched.Start()

	if distFS, err := web.DistFS(); err == nil {
		registerFrontendHandler(server.Echo(), distFS)
	} else {
		log.Warn().Err(err).Msg("frontend assets unavailable")
	}

	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("scheduler shutdown error")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
}

// registerFrontendHandler serves the embedded SPA, falling back to
// index.html for client-side routes.
func registerFrontendHandler(e *echo.Echo, distFS fs.FS) {
	fileServer := http.FileServer(http.FS(distFS))

	e.GET("/*", func(c echo.Context) error {
		path := c.Request().URL.Path

		if strings.HasPrefix(path, "/api/") || path == "/ws" {
			return echo.ErrNotFound
		}

		if path != "/" {
			cleanPath := strings.TrimPrefix(path, "/")
			if file, err := distFS.Open(cleanPath); err == nil {
				file.Close()
				fileServer.ServeHTTP(c.Response(), c.Request())
				return nil
			}
		}

		indexFile, err := distFS.Open("index.html")
		if err != nil {
			return echo.ErrNotFound
		}
		defer indexFile.Close()

		return c.Stream(http.StatusOK, "text/html; charset=utf-8", indexFile)
	})
}
