package resolution

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/majestic/health/internal/platform/auth"
	"github.com/majestic/health/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/metrics/resolve", h.Resolve)
	api.GET("/suggestions", h.List)
	api.POST("/suggestions", h.Submit)
	api.POST("/suggestions/:id/approve", h.Approve)
	api.POST("/suggestions/:id/reject", h.Reject)
}

// Resolve handles GET /api/v1/metrics/resolve?name=...&floor=...
func (h *Handler) Resolve(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	floor := 0.0
	if raw := c.QueryParam("floor"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "floor must be a number in [0,1]")
		}
		floor = v
	}

	res, err := h.svc.Resolve(c.Request().Context(), name, floor)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// Submit handles POST /api/v1/suggestions: the ingestion-side resolve that
// records a pending suggestion when the match lands in the review band.
func (h *Handler) Submit(c echo.Context) error {
	var body struct {
		RawName string `json:"raw_name"`
	}
	if err := c.Bind(&body); err != nil || body.RawName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "raw_name is required")
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	res, err := h.svc.ResolveForIngestion(c.Request().Context(), userID, body.RawName)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	out, err := h.svc.Suggestions(c.Request().Context(), userID, c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if out == nil {
		out = []*Suggestion{}
	}
	p := pagination.FromContext(c)
	total := len(out)
	lo, hi := p.Bounds(total)
	return c.JSON(http.StatusOK, pagination.NewResponse(out[lo:hi], total, p.Limit, p.Offset))
}

func (h *Handler) Approve(c echo.Context) error { return h.decide(c, StatusApproved) }
func (h *Handler) Reject(c echo.Context) error  { return h.decide(c, StatusRejected) }

func (h *Handler) decide(c echo.Context, status string) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	if status == StatusApproved {
		err = h.svc.Approve(c.Request().Context(), userID, id)
	} else {
		err = h.svc.Reject(c.Request().Context(), userID, id)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status})
}
