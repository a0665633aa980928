package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/careergraph/config"
)

type StatusHandler struct {
	Config  *config.Config
	Version string
	Now     func() time.Time
}

func (h *StatusHandler) Register(e *echo.Echo) {
	e.GET("/", h.root)
	e.GET("/health", h.health)
}

func (h *StatusHandler) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "careergraph",
		"version": h.Version,
		"endpoints": []string{
			"POST /api/generate-roadmap",
			"POST /api/export-roadmap",
			"GET /health",
			"GET /metrics",
		},
	})
}

func (h *StatusHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      h.Now().UTC().Format(time.RFC3339),
		"llm_configured": h.Config.LLM.Configured(),
		"search_enabled": h.Config.Sources.WebSearch.Enabled,
	})
}
