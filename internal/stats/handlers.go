package stats

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handlers provides HTTP handlers for statistics.
type Handlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHandlers creates stats handlers.
func NewHandlers(service *Service, logger zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger.With().Str("component", "stats-api").Logger(),
	}
}

// RegisterRoutes registers stats routes on the given group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/summary", h.Summary)
	g.GET("/watches-by-year", h.WatchesByYear)
	g.GET("/ratings", h.RatingDistribution)
	g.GET("/top-friends", h.TopFriends)
	g.GET("/most-watched", h.MostWatched)
}

func (h *Handlers) Summary(c echo.Context) error {
	sum, err := h.service.Summary(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute summary")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute summary")
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handlers) WatchesByYear(c echo.Context) error {
	counts, err := h.service.WatchesByYear(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute watches by year")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute watches by year")
	}
	if counts == nil {
		counts = []YearCount{}
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *Handlers) RatingDistribution(c echo.Context) error {
	counts, err := h.service.RatingDistribution(c.Request().Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute rating distribution")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute rating distribution")
	}
	if counts == nil {
		counts = []RatingCount{}
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *Handlers) TopFriends(c echo.Context) error {
	counts, err := h.service.TopFriends(c.Request().Context(), limitParam(c))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute top friends")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute top friends")
	}
	if counts == nil {
		counts = []FriendCount{}
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *Handlers) MostWatched(c echo.Context) error {
	counts, err := h.service.MostWatched(c.Request().Context(), limitParam(c))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute most watched")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute most watched")
	}
	if counts == nil {
		counts = []EntryCount{}
	}
	return c.JSON(http.StatusOK, counts)
}

func limitParam(c echo.Context) int {
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return 0
}
