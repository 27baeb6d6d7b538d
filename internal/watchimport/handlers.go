package watchimport

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinemarco/cinemarco/internal/library"
)

// Handlers provides HTTP handlers for the import wizard.
type Handlers struct {
	service *Service
}

// NewHandlers creates new import wizard handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the import wizard routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/state", h.State)
	g.POST("/file", h.UploadFile)
	g.POST("/preview/retry", h.RetryPreview)
	g.POST("/resolve/start", h.StartResolving)
	g.POST("/resolve/confirm", h.ConfirmMatch)
	g.POST("/resolve/skip", h.SkipItem)
	g.GET("/search", h.ManualSearch)
	g.POST("/start", h.StartImport)
	g.POST("/cancel", h.CancelImport)
	g.POST("/collections", h.AcceptCollection)
	g.POST("/restart", h.Restart)
	g.POST("/step", h.GoToStep)
}

// State returns the wizard state, advancing it when the batch finished.
// GET /api/v1/import/state
func (h *Handlers) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Poll())
}

// UploadFile parses an uploaded watch-history file.
// POST /api/v1/import/file
func (h *Handlers) UploadFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file upload")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := h.service.ParseFile(c.Request().Context(), fileHeader.Filename, raw)
	if err != nil {
		if errors.Is(err, ErrMalformedFile) {
			return c.JSON(http.StatusUnprocessableEntity, state)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// RetryPreview re-runs the matching pass after a failure.
// POST /api/v1/import/preview/retry
func (h *Handlers) RetryPreview(c echo.Context) error {
	state, err := h.service.RetryPreview(c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrNoActiveFile) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// StartResolving opens the ambiguous-item resolution session.
// POST /api/v1/import/resolve/start
func (h *Handlers) StartResolving(c echo.Context) error {
	state, err := h.service.StartResolving()
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// ConfirmMatch resolves the current ambiguous item with a chosen candidate.
// POST /api/v1/import/resolve/confirm
func (h *Handlers) ConfirmMatch(c echo.Context) error {
	var req struct {
		Index     int       `json:"index"`
		Candidate Candidate `json:"candidate"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := h.service.ConfirmMatch(c.Request().Context(), req.Index, req.Candidate)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// SkipItem excludes the current ambiguous item from import.
// POST /api/v1/import/resolve/skip
func (h *Handlers) SkipItem(c echo.Context) error {
	var req struct {
		Index int `json:"index"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := h.service.SkipItem(req.Index)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// ManualSearch runs an ad-hoc catalog search for the resolution UI.
// GET /api/v1/import/search
func (h *Handlers) ManualSearch(c echo.Context) error {
	query := c.QueryParam("query")
	mediaType := library.MediaType(c.QueryParam("mediaType"))
	if !mediaType.Valid() {
		mediaType = library.MediaTypeMovie
	}

	candidates, err := h.service.ManualSearch(c.Request().Context(), query, mediaType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, candidates)
}

// StartImport begins the asynchronous batch import.
// POST /api/v1/import/start
func (h *Handlers) StartImport(c echo.Context) error {
	state, err := h.service.StartImport(c.Request().Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrImportRunning):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrWrongStep), errors.Is(err, ErrNoPreview), errors.Is(err, ErrNoEligibleItems):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, state)
}

// CancelImport requests a cooperative stop of the running batch.
// POST /api/v1/import/cancel
func (h *Handlers) CancelImport(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.CancelImport())
}

// AcceptCollection creates a collection from a detected suggestion.
// POST /api/v1/import/collections
func (h *Handlers) AcceptCollection(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	collection, err := h.service.AcceptCollection(c.Request().Context(), req.Name)
	if err != nil {
		if errors.Is(err, ErrUnknownCollection) || errors.Is(err, ErrNoPreview) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, collection)
}

// Restart discards the session and returns to file selection.
// POST /api/v1/import/restart
func (h *Handlers) Restart(c echo.Context) error {
	state, err := h.service.Restart()
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}

// GoToStep jumps the wizard to an arbitrary step.
// POST /api/v1/import/step
func (h *Handlers) GoToStep(c echo.Context) error {
	var req struct {
		Step WizardStep `json:"step"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := h.service.GoToStep(req.Step)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}
