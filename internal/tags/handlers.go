package tags

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for tag operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates new tag handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the tag routes. Entry-scoped tag routes are
// registered separately under the entries group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/entries", h.EntriesForTag)
}

// RegisterEntryRoutes registers tag routes scoped to a library entry.
func (h *Handlers) RegisterEntryRoutes(g *echo.Group) {
	g.GET("/:id/tags", h.ListForEntry)
	g.PUT("/:id/tags", h.SetEntryTags)
}

// List returns all tags.
// GET /api/v1/tags
func (h *Handlers) List(c echo.Context) error {
	tags, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tags)
}

// Create creates a new tag.
// POST /api/v1/tags
func (h *Handlers) Create(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tag, err := h.service.Create(c.Request().Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDuplicateName):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, tag)
}

// Delete removes a tag.
// DELETE /api/v1/tags/:id
func (h *Handlers) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrTagNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// EntriesForTag returns the entries carrying a tag.
// GET /api/v1/tags/:id/entries
func (h *Handlers) EntriesForTag(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	entries, err := h.service.EntriesForTag(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrTagNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

// ListForEntry returns the tags attached to an entry.
// GET /api/v1/entries/:id/tags
func (h *Handlers) ListForEntry(c echo.Context) error {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	tags, err := h.service.ListForEntry(c.Request().Context(), entryID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tags)
}

// SetEntryTags replaces the tags attached to an entry.
// PUT /api/v1/entries/:id/tags
func (h *Handlers) SetEntryTags(c echo.Context) error {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Tags []string `json:"tags"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tags, err := h.service.SetEntryTags(c.Request().Context(), entryID, req.Tags)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tags)
}
