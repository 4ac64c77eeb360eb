// Package reporting serves read-only views of the patient record set: the
// filtered and paginated table, the dashboard aggregates and CSV export. It
// runs the same pipeline the terminal client uses.
package reporting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/diagreg/diagreg/internal/domain/patient"
	"github.com/diagreg/diagreg/internal/pipeline"
	"github.com/diagreg/diagreg/pkg/pagination"
)

// RecordLister is the part of patient.Service the reports read from.
type RecordLister interface {
	ListRecords(ctx context.Context) ([]patient.Record, error)
}

// ExportRecorder is notified of the size of each export.
type ExportRecorder interface {
	RecordExport(n int)
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	records RecordLister
	exports ExportRecorder
	now     func() time.Time
}

// NewHandler creates a new reporting handler. exports may be nil.
func NewHandler(records RecordLister, exports ExportRecorder) *Handler {
	return &Handler{records: records, exports: exports, now: time.Now}
}

// RegisterRoutes registers the reporting API routes. Static segments win over
// the record :id route in echo's router.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patient-records")
	g.GET("/view", h.View)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/export", h.Export)
}

// stateFromQuery builds the pipeline state from from, to, q, field, sort and
// dir query parameters.
func stateFromQuery(c echo.Context) (pipeline.State, error) {
	r, err := pipeline.ParseDateRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return pipeline.State{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s := pipeline.NewState().
		WithRange(r).
		WithSearch(c.QueryParam("q"), c.QueryParam("field"))
	if field := c.QueryParam("sort"); field != "" {
		if _, ok := patient.FieldByKey(field); !ok {
			return pipeline.State{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown sort field %q", field))
		}
		s = s.WithSort(pipeline.SortConfig{Field: field, Direction: pipeline.ParseDirection(c.QueryParam("dir"))})
	}
	return s, nil
}

func (h *Handler) load(c echo.Context) ([]patient.Record, error) {
	records, err := h.records.ListRecords(c.Request().Context())
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load records")
	}
	return records, nil
}

// View returns one page of the filtered, searched and sorted records. Pages
// past the end yield an empty data array.
func (h *Handler) View(c echo.Context) error {
	s, err := stateFromQuery(c)
	if err != nil {
		return err
	}
	records, err := h.load(c)
	if err != nil {
		return err
	}

	p := pagination.FromContext(c)
	v := pipeline.Compute(records, s)
	items := pagination.Slice(v.Sorted, p.Page, p.PageSize)
	return c.JSON(http.StatusOK, pagination.NewResponse(items, v.Total, p.Page, p.PageSize))
}

// Dashboard returns the aggregates of the date-filtered records. Search and
// sort parameters are ignored.
func (h *Handler) Dashboard(c echo.Context) error {
	r, err := pipeline.ParseDateRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	records, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pipeline.Aggregate(pipeline.Filter(records, r)))
}

// Export streams the current view as a CSV attachment.
func (h *Handler) Export(c echo.Context) error {
	s, err := stateFromQuery(c)
	if err != nil {
		return err
	}
	records, err := h.load(c)
	if err != nil {
		return err
	}

	v := pipeline.Compute(records, s)
	var buf bytes.Buffer
	if err := pipeline.ExportCSV(&buf, v.Sorted); err != nil {
		if errors.Is(err, pipeline.ErrEmptyExport) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": err.Error()})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed")
	}
	if h.exports != nil {
		h.exports.RecordExport(len(v.Sorted))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", pipeline.ExportFilename(h.now())))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
