package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// Handler serves the demo endpoints.
type Handler struct {
	queries Querier
	log     *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(queries Querier, log *slog.Logger) *Handler {
	return &Handler{queries: queries, log: log}
}

// Index renders the query page.
func (h *Handler) Index(c echo.Context) error {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, page)
}

// Healthz reports liveness.
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// UserQuery parses the picker form into a combo query and returns the BT
// values as a flat JSON list. With detail=true the full result is returned.
func (h *Handler) UserQuery(c echo.Context) error {
	if id := c.FormValue("id"); id != "Query" {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown request id "+strconv.Quote(id))
	}

	spec, err := specFromForm(c)
	if err != nil {
		return err
	}

	res, err := h.queries.Values(c.Request().Context(), spec)
	if err != nil {
		return err
	}

	c.Response().Header().Set("X-Penguin-Rows", strconv.Itoa(res.Rows))
	c.Response().Header().Set("X-Penguin-Elapsed-Ms", strconv.FormatFloat(res.ElapsedMs, 'f', 3, 64))

	if c.QueryParam("detail") == "true" {
		return c.JSON(http.StatusOK, res)
	}
	values := res.Values
	if values == nil {
		values = []float64{}
	}
	return c.JSON(http.StatusOK, values)
}

// specFromForm reads temporal ("start - end"), rowselect, colselect and
// pselect ("lower,upper").
func specFromForm(c echo.Context) (query.Spec, error) {
	span, err := query.ParseDateSpan(c.FormValue("temporal"))
	if err != nil {
		return query.Spec{}, err
	}
	rows, err := query.ParseRange("rowselect", c.FormValue("rowselect"))
	if err != nil {
		return query.Spec{}, err
	}
	cols, err := query.ParseRange("colselect", c.FormValue("colselect"))
	if err != nil {
		return query.Spec{}, err
	}
	values, err := query.ParseValueRange(c.FormValue("pselect"))
	if err != nil {
		return query.Spec{}, err
	}

	return query.Spec{
		Mode:       query.ModeCombo,
		Continuity: query.Continuous,
		Dates:      &span,
		Month:      query.MonthAll,
		Rows:       &rows,
		Cols:       &cols,
		Values:     &values,
	}, nil
}
