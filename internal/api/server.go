// Package api assembles the HTTP server and wires services to routes.
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/cinemarco/cinemarco/internal/collections"
	"github.com/cinemarco/cinemarco/internal/config"
	"github.com/cinemarco/cinemarco/internal/friends"
	"github.com/cinemarco/cinemarco/internal/library"
	"github.com/cinemarco/cinemarco/internal/metadata/tmdb"
	"github.com/cinemarco/cinemarco/internal/progress"
	"github.com/cinemarco/cinemarco/internal/scheduler"
	"github.com/cinemarco/cinemarco/internal/stats"
	"github.com/cinemarco/cinemarco/internal/tags"
	"github.com/cinemarco/cinemarco/internal/watchimport"
	"github.com/cinemarco/cinemarco/internal/websocket"
)

// Server handles HTTP requests for the Cinemarco API.
type Server struct {
	echo   *echo.Echo
	db     *sql.DB
	hub    *websocket.Hub
	logger zerolog.Logger
	cfg    *config.Config

	libraryService     *library.Service
	friendsService     *friends.Service
	tagsService        *tags.Service
	collectionsService *collections.Service
	statsService       *stats.Service
	tmdbClient         *tmdb.Client
	progressManager    *progress.Manager
	importService      *watchimport.Service
	scheduler          *scheduler.Scheduler
}

// NewServer creates the API server and all its services.
func NewServer(db *sql.DB, hub *websocket.Hub, cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		db:     db,
		hub:    hub,
		logger: logger,
		cfg:    cfg,
	}

	s.libraryService = library.NewService(db, hub, logger)
	s.friendsService = friends.NewService(db, logger)
	s.tagsService = tags.NewService(db, logger)
	s.collectionsService = collections.NewService(db, logger)
	s.statsService = stats.NewService(db, logger)
	s.tmdbClient = tmdb.NewClient(cfg.TMDB, logger)
	s.progressManager = progress.NewManager(hub, logger)

	catalog := watchimport.NewTMDBCatalog(s.tmdbClient)
	matcher := watchimport.NewMatcher(catalog, s.libraryService, s.friendsService, logger)
	importer := watchimport.NewImporter(s.libraryService, s.friendsService, s.progressManager, logger)
	s.importService = watchimport.NewService(matcher, importer, s.libraryService, s.collectionsService, logger)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// SetScheduler attaches the background task scheduler so its routes can
// be served. Must be called before Start.
func (s *Server) SetScheduler(sched *scheduler.Scheduler) {
	s.scheduler = sched
	handlers := scheduler.NewHandlers(sched)
	handlers.RegisterRoutes(s.echo.Group("/api/v1/tasks"))
}

// Library returns the library service, for wiring background tasks.
func (s *Server) Library() *library.Service {
	return s.libraryService
}

// TMDB returns the catalog client, for wiring background tasks.
func (s *Server) TMDB() *tmdb.Client {
	return s.tmdbClient
}

// Progress returns the progress manager, for wiring background tasks.
func (s *Server) Progress() *progress.Manager {
	return s.progressManager
}

// Echo returns the underlying Echo instance (for serving static files).
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	ctx := c.Request().Context()

	entryCount, _ := s.libraryService.Count(ctx)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":        config.Version,
		"entryCount":     entryCount,
		"tmdbConfigured": s.tmdbClient.IsConfigured(),
	})
}

func (s *Server) testTMDB(c echo.Context) error {
	if err := s.tmdbClient.Test(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
