package ranges

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/majestic/health/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/metrics/:name/range", h.ResolveRange)

	grp := api.Group("/custom-ranges")
	grp.GET("", h.List)
	grp.POST("", h.Create)
	grp.GET("/:id", h.Get)
	grp.PUT("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
}

// ResolveRange handles GET /api/v1/metrics/:name/range?as_of=2024-05-01
func (h *Handler) ResolveRange(c echo.Context) error {
	name := c.Param("name")
	asOf := time.Now().UTC()
	if raw := c.QueryParam("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "as_of must be YYYY-MM-DD")
		}
		asOf = parsed
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	r, err := h.svc.ResolveRange(c.Request().Context(), userID, name, asOf)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"range": r})
}

type rangeRequest struct {
	MetricName       string     `json:"metric_name"`
	MinValue         float64    `json:"min_value"`
	MaxValue         float64    `json:"max_value"`
	Units            string     `json:"units"`
	MedicalCondition string     `json:"medical_condition"`
	ConditionDetails string     `json:"condition_details"`
	Notes            string     `json:"notes"`
	ValidFrom        *time.Time `json:"valid_from"`
	ValidUntil       *time.Time `json:"valid_until"`
}

func (req *rangeRequest) toModel(userID int64) *CustomRange {
	return &CustomRange{
		UserID:           userID,
		MetricName:       req.MetricName,
		MinValue:         req.MinValue,
		MaxValue:         req.MaxValue,
		Units:            req.Units,
		MedicalCondition: req.MedicalCondition,
		ConditionDetails: req.ConditionDetails,
		Notes:            req.Notes,
		ValidFrom:        req.ValidFrom,
		ValidUntil:       req.ValidUntil,
	}
}

func (h *Handler) Create(c echo.Context) error {
	var req rangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.MetricName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "metric_name is required")
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := h.svc.Create(c.Request().Context(), req.toModel(userID))
	if err != nil {
		return rangeError(err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	var req rangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cr := req.toModel(auth.UserIDFromContext(c.Request().Context()))
	cr.ID = id
	if err := h.svc.Update(c.Request().Context(), cr); err != nil {
		return rangeError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), userID, id); err != nil {
		return rangeError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	cr, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return rangeError(err)
	}
	return c.JSON(http.StatusOK, cr)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	grouped, err := h.svc.ListGrouped(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"grouped_ranges": grouped})
}

func rangeError(err error) error {
	switch {
	case errors.Is(err, ErrOverlap):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidBounds):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRangeNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
