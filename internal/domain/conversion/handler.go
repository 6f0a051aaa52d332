package conversion

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/metrics/convert", h.Convert)
	api.GET("/metrics/units/:group_id", h.Units)
}

type convertRequest struct {
	Value    float64 `json:"value"`
	FromUnit string  `json:"from"`
	ToUnit   string  `json:"to"`
	GroupID  string  `json:"group"`
}

func (h *Handler) Convert(c echo.Context) error {
	var req convertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FromUnit == "" || req.ToUnit == "" || req.GroupID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "from, to and group are required")
	}

	v, err := h.svc.Convert(c.Request().Context(), req.Value, req.FromUnit, req.ToUnit, req.GroupID)
	if err != nil {
		var nf *GroupNotFoundError
		if errors.As(err, &nf) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		var ce *ConversionError
		if errors.As(err, &ce) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"value": v,
		"from":  req.FromUnit,
		"to":    req.ToUnit,
		"group": req.GroupID,
	})
}

func (h *Handler) Units(c echo.Context) error {
	units, err := h.svc.AvailableUnits(c.Request().Context(), c.Param("group_id"))
	if err != nil {
		var nf *GroupNotFoundError
		if errors.As(err, &nf) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"units": units})
}
