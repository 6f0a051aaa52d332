package catalog

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/majestic/health/internal/platform/auth"
	"github.com/majestic/health/pkg/pagination"
)

// Handler exposes the admin catalog endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("/admin/catalog", auth.RequireRole("admin"))
	grp.POST("/validate", h.Validate)
	grp.POST("/diff", h.Diff)
	grp.POST("/commit", h.Commit)
	grp.GET("/versions", h.Versions)
	grp.POST("/rollback/:version_id", h.Rollback)
	grp.GET("/export", h.Export)
}

// bindProposal accepts either an uploaded XLSX workbook (multipart field
// "workbook") or a JSON proposal body. For workbook uploads it also returns
// the raw document bytes so commits can persist the original upload.
func bindProposal(c echo.Context) (*Proposal, []byte, error) {
	if file, err := c.FormFile("workbook"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "cannot open uploaded workbook")
		}
		defer src.Close()
		raw, err := io.ReadAll(src)
		if err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded workbook")
		}
		p, err := ParseWorkbook(bytes.NewReader(raw))
		if err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return p, raw, nil
	}

	var p Proposal
	if err := c.Bind(&p); err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid proposal body")
	}
	return &p, nil, nil
}

func (h *Handler) Validate(c echo.Context) error {
	p, _, err := bindProposal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.svc.Validate(p))
}

func (h *Handler) Diff(c echo.Context) error {
	p, _, err := bindProposal(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.Diff(c.Request().Context(), p)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	detailed, err := h.svc.DiffDetailed(c.Request().Context(), p)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"summary":  summary,
		"detailed": detailed,
	})
}

func (h *Handler) Commit(c echo.Context) error {
	p, document, err := bindProposal(c)
	if err != nil {
		return err
	}
	summary := c.FormValue("change_summary")
	if summary == "" {
		summary = c.QueryParam("change_summary")
	}

	author := strconv.FormatInt(auth.UserIDFromContext(c.Request().Context()), 10)

	result, err := h.svc.Commit(c.Request().Context(), p, summary, author, document)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusUnprocessableEntity, &ValidationResult{Valid: false, Errors: verr.Errors})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Versions(c echo.Context) error {
	versions, err := h.svc.Versions(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if versions == nil {
		versions = []*Version{}
	}
	p := pagination.FromContext(c)
	total := len(versions)
	lo, hi := p.Bounds(total)
	return c.JSON(http.StatusOK, pagination.NewResponse(versions[lo:hi], total, p.Limit, p.Offset))
}

func (h *Handler) Rollback(c echo.Context) error {
	versionID, err := strconv.ParseInt(c.Param("version_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "version_id must be an integer")
	}
	if err := h.svc.Rollback(c.Request().Context(), versionID); err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no snapshot for that version")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Export(c echo.Context) error {
	data, err := h.svc.ExportWorkbook(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="master_catalog.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
