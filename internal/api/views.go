package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"pharmadash/internal/engine"
	"pharmadash/internal/models"
)

const SessionHeader = "X-Session-ID"

const (
	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type periodRequest struct {
	Period string `json:"period"`
}

type filterRequest struct {
	Value string `json:"value"`
}

type searchRequest struct {
	Text string `json:"text"`
}

type pageRequest struct {
	Index int `json:"index"`
}

type pageSizeRequest struct {
	Size int `json:"size"`
}

// tableView resolves the session header and the :view parameter.
func (h *Handler) tableView(c echo.Context) (*engine.Session[models.Record], error) {
	u, err := h.sessions.Get(c.Request().Header.Get(SessionHeader))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	v, err := u.view(c.Param("view"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("%v: %s", err, c.Param("view")))
	}
	return v, nil
}

// engineError maps a state transition error onto the HTTP response.
func engineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrUnknownField), errors.Is(err, engine.ErrPageSize):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func (h *Handler) GetView(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v.View())
}

// SetPeriod loads a period into the view. A failed load is not an HTTP
// error: the previous rows stay and the view carries the load error.
func (h *Handler) SetPeriod(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	var req periodRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Period) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "period is required")
	}

	err = v.Load(c.Request().Context(), req.Period)
	var le *engine.LoadError
	switch {
	case err == nil, errors.Is(err, engine.ErrStale), errors.As(err, &le):
	default:
		return err
	}
	return c.JSON(http.StatusOK, v.View())
}

// refresher is implemented by caching sources.
type refresher interface {
	Refresh(ctx context.Context, period string)
}

func (h *Handler) ReloadView(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	if r, ok := h.src.(refresher); ok && v.Period() != "" {
		r.Refresh(c.Request().Context(), v.Period())
	}
	err = v.Reload(c.Request().Context())
	var le *engine.LoadError
	if err != nil && !errors.Is(err, engine.ErrStale) && !errors.As(err, &le) {
		return err
	}
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) SetFilter(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := v.SetFilter(c.Param("field"), req.Value); err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) ClearFilters(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	v.ClearFilters()
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) SetSearch(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	v.SetSearch(req.Text)
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) SetSort(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	var req engine.SortState
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := v.SetSort(req); err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) ToggleSort(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	if err := v.ToggleSort(c.Param("field")); err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) MovePage(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	switch c.Param("op") {
	case "first":
		v.FirstPage()
	case "previous", "prev":
		v.PreviousPage()
	case "next":
		v.NextPage()
	case "last":
		v.LastPage()
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown page operation "+c.Param("op"))
	}
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) GotoPage(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	var req pageRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	v.GotoPage(req.Index)
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) SetPageSize(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	var req pageSizeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := v.SetPageSize(req.Size); err != nil {
		return engineError(err)
	}
	return c.JSON(http.StatusOK, v.View())
}

func (h *Handler) ExportCSV(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	payload, err := engine.SerializeCSV(v.Filtered(), v.Schema())
	if err != nil {
		return err
	}
	return sendExport(c, exportName(c.Param("view"), v)+".csv", mimeCSV, payload)
}

func (h *Handler) ExportXLSX(c echo.Context) error {
	v, err := h.tableView(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := engine.WriteXLSX(&buf, v.Filtered(), v.Schema()); err != nil {
		return err
	}
	return sendExport(c, exportName(c.Param("view"), v)+".xlsx", mimeXLSX, buf.Bytes())
}

// exportName suggests a file name without extension.
func exportName(view string, v *engine.Session[models.Record]) string {
	period := v.Period()
	if period == "" {
		period = "none"
	}
	if view == ViewCompany {
		company := v.Selection(models.FieldCompany)
		if company == "" {
			company = "company"
		}
		return fmt.Sprintf("%s_%s_drug_sales", company, period)
	}
	return "drug_estimation_" + period
}

func sendExport(c echo.Context, filename, contentType string, payload []byte) error {
	etag := engine.ETag(payload)
	if match := c.Request().Header.Get("If-None-Match"); match == etag {
		return c.NoContent(http.StatusNotModified)
	}
	header := c.Response().Header()
	header.Set("ETag", etag)
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	return c.Blob(http.StatusOK, contentType, payload)
}
