package scheduler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers exposes task inspection and manual triggering.
type Handlers struct {
	scheduler *Scheduler
}

// NewHandlers creates scheduler handlers.
func NewHandlers(scheduler *Scheduler) *Handlers {
	return &Handlers{scheduler: scheduler}
}

// RegisterRoutes registers task routes on the given group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("/:id/run", h.RunNow)
}

func (h *Handlers) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.Tasks())
}

func (h *Handlers) RunNow(c echo.Context) error {
	if err := h.scheduler.RunNow(c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}
