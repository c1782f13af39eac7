// internal/app/features/export/handler.go
package export

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	"github.com/dalemusser/registryhub/internal/app/system/auditlog"
	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/dalemusser/registryhub/internal/app/system/export"
	"github.com/dalemusser/registryhub/internal/app/system/metrics"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler produces registry spreadsheets.
type Handler struct {
	Registry *applicantstore.Store
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	now      func() time.Time
}

func NewHandler(registry *applicantstore.Store, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Registry: registry,
		ErrLog:   errLog,
		AuditLog: audit,
		Metrics:  m,
		Log:      logger,
		now:      time.Now,
	}
}

// ServeExcel handles GET /export/excel. The workbook is built in memory so
// a failure can still be reported as JSON.
func (h *Handler) ServeExcel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Export())
	defer cancel()

	records, err := h.Registry.ListApproved(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list approved applicants failed", err, "A database error occurred.")
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, records, now); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			uierrors.BadRequest(w, "Nothing to export.")
			return
		}
		h.ErrLog.LogServerError(w, r, "build spreadsheet failed", err, "Failed to build spreadsheet.")
		return
	}

	h.Metrics.ObserveExport(time.Since(start))
	h.AuditLog.RegistryExported(ctx, r, authz.ActorID(r), len(records))

	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename(now)}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Warn("spreadsheet write interrupted", zap.Error(err))
	}
}
