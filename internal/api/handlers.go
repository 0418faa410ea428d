package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"pharmadash/internal/engine"
	"pharmadash/internal/logging"
	"pharmadash/internal/models"
	"pharmadash/internal/source"
)

var logger = logging.New("api")

type Handler struct {
	src      source.Source
	sessions *SessionStore
}

func NewHandler(src source.Source, sessions *SessionStore) *Handler {
	return &Handler{src: src, sessions: sessions}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	api.GET("/periods", h.GetPeriods)
	api.GET("/periods/:period/summary", h.GetSummary)
	api.GET("/periods/:period/top-drugs", h.GetTopDrugs)
	api.GET("/periods/:period/company-sales", h.GetCompanySales)
	api.GET("/periods/:period/countries/:country", h.GetCountrySummary)
	api.GET("/periods/:period/companies/:company", h.GetCompanySummary)

	api.POST("/sessions", h.CreateSession)
	api.DELETE("/sessions/:id", h.DeleteSession)

	views := api.Group("/views/:view")
	views.GET("", h.GetView)
	views.PUT("/period", h.SetPeriod)
	views.POST("/reload", h.ReloadView)
	views.PUT("/filters/:field", h.SetFilter)
	views.DELETE("/filters", h.ClearFilters)
	views.PUT("/search", h.SetSearch)
	views.PUT("/sort", h.SetSort)
	views.POST("/sort/:field/toggle", h.ToggleSort)
	views.POST("/page/:op", h.MovePage)
	views.PUT("/page", h.GotoPage)
	views.PUT("/page-size", h.SetPageSize)
	views.GET("/export.csv", h.ExportCSV)
	views.GET("/export.xlsx", h.ExportXLSX)
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *Handler) GetPeriods(c echo.Context) error {
	periods, err := h.src.Periods(c.Request().Context())
	if err != nil {
		logger.Errorf("list periods: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch periods").SetInternal(err)
	}
	return c.JSON(http.StatusOK, periods)
}

// periodRows fetches the raw set of the :period path parameter.
func (h *Handler) periodRows(c echo.Context) ([]models.Record, error) {
	period := c.Param("period")
	rows, err := h.src.Records(c.Request().Context(), period)
	switch {
	case errors.Is(err, source.ErrNotFound):
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown period "+period)
	case errors.Is(err, context.Canceled):
		return nil, err
	case err != nil:
		logger.Errorf("records %s: %v", period, err)
		return nil, echo.NewHTTPError(http.StatusBadGateway, "failed to fetch period "+period).SetInternal(err)
	}
	return rows, nil
}

func (h *Handler) GetSummary(c echo.Context) error {
	rows, err := h.periodRows(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.Aggregate(rows))
}

// returns the top drugs, at most 10
func (h *Handler) GetTopDrugs(c echo.Context) error {
	rows, err := h.periodRows(c)
	if err != nil {
		return err
	}
	data := engine.Aggregate(rows).TopDrugs
	limit, _ := getPaginationParams(c, len(data))

	if limit < len(data) {
		return c.JSON(http.StatusOK, data[:limit])
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetCompanySales(c echo.Context) error {
	rows, err := h.periodRows(c)
	if err != nil {
		return err
	}
	stats := engine.Aggregate(rows).CompanySales
	total := len(stats)
	limit, offset := getPaginationParams(c, total)

	if offset >= total {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"data":   []models.SalesItem{},
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	}

	end := min(offset+limit, total)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   stats[offset:end],
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetCountrySummary(c echo.Context) error {
	rows, err := h.periodRows(c)
	if err != nil {
		return err
	}
	country := c.Param("country")
	summary, ok := engine.CountrySummary(rows, country)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no estimates for country "+country)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetCompanySummary(c echo.Context) error {
	rows, err := h.periodRows(c)
	if err != nil {
		return err
	}
	company := c.Param("company")
	summary, ok := engine.CompanySummary(rows, company)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no estimates for company "+company)
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) CreateSession(c echo.Context) error {
	u := h.sessions.Create()
	logger.Debugf("session %s created", u.ID)
	return c.JSON(http.StatusCreated, map[string]string{"id": u.ID})
}

func (h *Handler) DeleteSession(c echo.Context) error {
	if !h.sessions.Delete(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, ErrSessionNotFound.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
