package collections

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for collection operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates new collection handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the collection routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/entries", h.AddEntry)
	g.DELETE("/:id/entries/:entryId", h.RemoveEntry)
	g.PUT("/:id/order", h.Reorder)
}

type collectionRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	EntryIDs    []int64 `json:"entryIds,omitempty"`
}

// List returns all collections.
// GET /api/v1/collections
func (h *Handlers) List(c echo.Context) error {
	collections, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, collections)
}

// Get returns a collection with its entries.
// GET /api/v1/collections/:id
func (h *Handlers) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	collection, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, collection)
}

// Create creates a collection, optionally pre-populated with entries.
// POST /api/v1/collections
func (h *Handlers) Create(c echo.Context) error {
	var req collectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var collection *Collection
	var err error
	if len(req.EntryIDs) > 0 {
		collection, err = h.service.CreateWithEntries(c.Request().Context(), req.Name, req.Description, req.EntryIDs)
	} else {
		collection, err = h.service.Create(c.Request().Context(), req.Name, req.Description)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, collection)
}

// Update changes a collection's name or description.
// PUT /api/v1/collections/:id
func (h *Handlers) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req collectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	collection, err := h.service.Update(c.Request().Context(), id, req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, ErrCollectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, collection)
}

// Delete removes a collection.
// DELETE /api/v1/collections/:id
func (h *Handlers) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// AddEntry appends an entry to a collection.
// POST /api/v1/collections/:id/entries
func (h *Handlers) AddEntry(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		EntryID int64 `json:"entryId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.AddEntry(c.Request().Context(), id, req.EntryID); err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveEntry removes an entry from a collection.
// DELETE /api/v1/collections/:id/entries/:entryId
func (h *Handlers) RemoveEntry(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	entryID, err := strconv.ParseInt(c.Param("entryId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}

	if err := h.service.RemoveEntry(c.Request().Context(), id, entryID); err != nil {
		if errors.Is(err, ErrEntryNotInList) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Reorder replaces a collection's entry ordering.
// PUT /api/v1/collections/:id/order
func (h *Handlers) Reorder(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		EntryIDs []int64 `json:"entryIds"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	collection, err := h.service.Reorder(c.Request().Context(), id, req.EntryIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrCollectionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrEntryNotInList):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, collection)
}
