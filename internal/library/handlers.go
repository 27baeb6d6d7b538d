package library

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for library operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates new library handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the library routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/watches", h.ListWatches)
	g.POST("/:id/watches", h.AddWatch)
	g.DELETE("/:id/watches/:watchId", h.DeleteWatch)
}

// List returns library entries with optional filtering.
// GET /api/v1/entries
func (h *Handlers) List(c echo.Context) error {
	opts := ListEntriesOptions{
		Search:    c.QueryParam("search"),
		MediaType: MediaType(c.QueryParam("mediaType")),
	}
	if page := c.QueryParam("page"); page != "" {
		opts.Page, _ = strconv.Atoi(page)
	}
	if pageSize := c.QueryParam("pageSize"); pageSize != "" {
		opts.PageSize, _ = strconv.Atoi(pageSize)
	}

	entries, err := h.service.List(c.Request().Context(), opts)
	if err != nil {
		if errors.Is(err, ErrInvalidEntry) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

// Get returns a single entry.
// GET /api/v1/entries/:id
func (h *Handlers) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	entry, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

// Create creates a new entry.
// POST /api/v1/entries
func (h *Handlers) Create(c echo.Context) error {
	var input CreateEntryInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.service.Create(c.Request().Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEntry), errors.Is(err, ErrInvalidRating):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDuplicateTmdbID):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, entry)
}

// Update updates an existing entry.
// PUT /api/v1/entries/:id
func (h *Handlers) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var input UpdateEntryInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.service.Update(c.Request().Context(), id, &input)
	if err != nil {
		switch {
		case errors.Is(err, ErrEntryNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidEntry), errors.Is(err, ErrInvalidRating):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

// Delete deletes an entry.
// DELETE /api/v1/entries/:id
func (h *Handlers) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ListWatches returns all watches for an entry.
// GET /api/v1/entries/:id/watches
func (h *Handlers) ListWatches(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	watches, err := h.service.ListWatches(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, watches)
}

// AddWatch records a watch for an entry.
// POST /api/v1/entries/:id/watches
func (h *Handlers) AddWatch(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var input AddWatchInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	watch, err := h.service.AddWatch(c.Request().Context(), id, &input)
	if err != nil {
		switch {
		case errors.Is(err, ErrEntryNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidDate):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, watch)
}

// DeleteWatch removes a single watch record.
// DELETE /api/v1/entries/:id/watches/:watchId
func (h *Handlers) DeleteWatch(c echo.Context) error {
	watchID, err := strconv.ParseInt(c.Param("watchId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid watch id")
	}

	if err := h.service.DeleteWatch(c.Request().Context(), watchID); err != nil {
		if errors.Is(err, ErrWatchNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
