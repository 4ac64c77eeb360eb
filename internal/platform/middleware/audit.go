package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const recordsPrefix = "/api/v1/patient-records"

// Audit logs one "record_access" line for every request that reads or
// changes patient records: the action, the record id when the path names
// one, and the final status.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, recordsPrefix) {
				return next(c)
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			rid, _ := c.Get("request_id").(string)
			action, recordID := classifyRecordPath(req.Method, path)
			status := c.Response().Status

			evt := logger.Info()
			if status >= 400 {
				evt = logger.Warn()
			}
			evt.
				Str("type", "audit").
				Str("request_id", rid).
				Str("action", action).
				Str("record_id", recordID).
				Str("method", req.Method).
				Str("remote_ip", c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Int("status", status).
				Msg("record_access")

			return nil
		}
	}
}

// classifyRecordPath maps a request on the records API to an action and
// the addressed record id, if any.
//
//   - GET    /api/v1/patient-records          -> list
//   - GET    /api/v1/patient-records/<id>     -> read <id>
//   - POST   /api/v1/patient-records          -> create
//   - PUT    /api/v1/patient-records/<id>     -> update <id>
//   - DELETE /api/v1/patient-records/<id>     -> delete <id>
//   - GET    /api/v1/patient-records/export   -> export
func classifyRecordPath(method, path string) (action, recordID string) {
	rest := strings.Trim(strings.TrimPrefix(path, recordsPrefix), "/")
	if rest != "" {
		if _, err := uuid.Parse(rest); err == nil {
			recordID = rest
		} else {
			// view, dashboard, export
			return rest, ""
		}
	}

	switch method {
	case http.MethodPost:
		return "create", recordID
	case http.MethodPut, http.MethodPatch:
		return "update", recordID
	case http.MethodDelete:
		return "delete", recordID
	}
	if recordID == "" {
		return "list", ""
	}
	return "read", recordID
}
