package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cinemarco/cinemarco/internal/collections"
	"github.com/cinemarco/cinemarco/internal/friends"
	"github.com/cinemarco/cinemarco/internal/library"
	"github.com/cinemarco/cinemarco/internal/stats"
	"github.com/cinemarco/cinemarco/internal/tags"
	"github.com/cinemarco/cinemarco/internal/watchimport"
)

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.BodyLimit("5M"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ws", s.hub.HandleWebSocket)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)
	api.POST("/tmdb/test", s.testTMDB)

	entryHandlers := library.NewHandlers(s.libraryService)
	entries := api.Group("/entries")
	entryHandlers.RegisterRoutes(entries)

	tagHandlers := tags.NewHandlers(s.tagsService)
	tagHandlers.RegisterRoutes(api.Group("/tags"))
	tagHandlers.RegisterEntryRoutes(entries)

	friendHandlers := friends.NewHandlers(s.friendsService)
	friendHandlers.RegisterRoutes(api.Group("/friends"))

	collectionHandlers := collections.NewHandlers(s.collectionsService)
	collectionHandlers.RegisterRoutes(api.Group("/collections"))

	statsHandlers := stats.NewHandlers(s.statsService, s.logger)
	statsHandlers.RegisterRoutes(api.Group("/stats"))

	importHandlers := watchimport.NewHandlers(s.importService)
	importHandlers.RegisterRoutes(api.Group("/import"))
}
