package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/careergraph/internal/agent/core"
	"github.com/mohammad-safakhou/careergraph/internal/export"
	"github.com/mohammad-safakhou/careergraph/internal/logger"
	"github.com/mohammad-safakhou/careergraph/internal/validation"
	"github.com/mohammad-safakhou/careergraph/models"
)

type RoadmapHandler struct {
	Pipeline Pipeline
	Log      *logger.Logger
	Timeout  time.Duration
	Now      func() time.Time
}

type GenerateRequest struct {
	Query string `json:"query" validate:"required,min=5"`
}

// ExportRequest is the export body. Older clients also send include_styles;
// the page always inlines its styles so the key is ignored by the binder.
type ExportRequest struct {
	Roadmap models.Roadmap `json:"roadmap"`
}

func (h *RoadmapHandler) Register(g *echo.Group) {
	g.POST("/generate-roadmap", h.generate)
	g.POST("/export-roadmap", h.export)
}

// generate runs the pipeline for one query.
//
//	@Summary  Generate a career roadmap
//	@Tags     roadmap
//	@Accept   json
//	@Produce  json
//	@Success  200 {object} models.Roadmap
//	@Failure  400,422,500 {object} map[string]string
//	@Router   /api/generate-roadmap [post]
func (h *RoadmapHandler) generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx := c.Request().Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	state := h.Pipeline.Run(ctx, req.Query)
	if err := stateError(state); err != nil {
		return err
	}
	rm := state.Roadmap(h.Now())
	h.Log.Info("roadmap generated", "nodes", len(rm.Nodes), "title", rm.Title)
	return c.JSON(http.StatusOK, rm)
}

// stateError maps a terminal pipeline state onto the HTTP error the API
// reports for it, or nil when the roadmap can be returned. A recorded Error
// takes precedence over !IsValid, so a validation stage that could not parse
// its completion is a 500 rather than the 400 earlier API versions returned.
func stateError(s core.State) *echo.HTTPError {
	switch {
	case s.Error != "":
		return echo.NewHTTPError(http.StatusInternalServerError, "Error generating roadmap: "+s.Error)
	case !s.IsValid:
		msg := s.ValidationMessage
		if msg == "" {
			msg = "Query must be career or education related"
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query: "+msg)
	case len(s.Nodes) == 0:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate roadmap nodes")
	default:
		return nil
	}
}

// export renders a roadmap as a downloadable HTML page.
//
//	@Summary  Export a roadmap as standalone HTML
//	@Tags     roadmap
//	@Accept   json
//	@Produce  html
//	@Router   /api/export-roadmap [post]
func (h *RoadmapHandler) export(c echo.Context) error {
	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req.Roadmap); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "roadmap: "+verr.Error())
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	page, err := export.HTML(req.Roadmap)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Export failed: %v", err))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+export.Filename(req.Roadmap.Title))
	return c.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, page)
}
