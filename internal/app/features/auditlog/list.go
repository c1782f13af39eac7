// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	"github.com/dalemusser/registryhub/internal/app/store/audit"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	pageSize    = 50
	maxPage     = 10000
	historySize = 200
	dateLayout  = "2006-01-02"

	defaultFailedHours = 24
	maxFailedHours     = 720
)

// ServeList handles GET /api/audit with optional filters:
// category, event_type, applicant_id, start_date, end_date (YYYY-MM-DD) and page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	eventType := strings.TrimSpace(q.Get("event_type"))

	page := 1
	if s := strings.TrimSpace(q.Get("page")); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 1 || p > maxPage {
			uierrors.WriteField(w, http.StatusBadRequest, fmt.Sprintf("page must be between 1 and %d.", maxPage), "page")
			return
		}
		page = p
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if category != "" && eventTypesForCategory(category) == nil {
		uierrors.WriteField(w, http.StatusBadRequest, "Unknown category.", "category")
		return
	}
	if eventType != "" && !knownEventType(category, eventType) {
		uierrors.WriteField(w, http.StatusBadRequest, "Unknown event type.", "event_type")
		return
	}
	if s := strings.TrimSpace(q.Get("applicant_id")); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			uierrors.WriteField(w, http.StatusBadRequest, "Invalid applicant id.", "applicant_id")
			return
		}
		filter.ApplicantID = &id
	}
	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			uierrors.WriteField(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD.", "start_date")
			return
		}
		filter.StartTime = &t
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			uierrors.WriteField(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD.", "end_date")
			return
		}
		// inclusive of the whole day
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &end
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit query failed", err, "A database error occurred.")
		return
	}
	total, err := h.Audit.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit count failed", err, "A database error occurred.")
		return
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	uierrors.JSON(w, http.StatusOK, listResponse{
		Items:      h.views(ctx, events),
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	})
}

// ServeApplicantHistory handles GET /api/audit/applicants/{id}: every
// recorded event for one applicant record, newest first.
func (h *Handler) ServeApplicantHistory(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Applicant not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Audit.GetByApplicant(ctx, id, historySize)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "audit history failed", err, "A database error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, h.views(ctx, events))
}

// ServeFailedLogins handles GET /api/audit/failed-logins?hours=N: failed
// sign-in attempts in the last N hours (default 24, at most 720).
func (h *Handler) ServeFailedLogins(w http.ResponseWriter, r *http.Request) {
	hours := defaultFailedHours
	if s := strings.TrimSpace(r.URL.Query().Get("hours")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxFailedHours {
			uierrors.WriteField(w, http.StatusBadRequest, "hours must be between 1 and 720.", "hours")
			return
		}
		hours = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	events, err := h.Audit.GetFailedLogins(ctx, since, historySize)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed login query failed", err, "A database error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, h.views(ctx, events))
}

// views converts events for output, resolving actor ids to usernames.
// A failed lookup only costs the names.
func (h *Handler) views(ctx context.Context, events []audit.Event) []eventView {
	ids := make([]primitive.ObjectID, 0, len(events))
	seen := make(map[primitive.ObjectID]struct{})
	for _, e := range events {
		if e.ActorID == nil {
			continue
		}
		if _, ok := seen[*e.ActorID]; !ok {
			seen[*e.ActorID] = struct{}{}
			ids = append(ids, *e.ActorID)
		}
	}

	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) > 0 {
		users, err := h.Users.GetByIDs(ctx, ids)
		if err != nil {
			h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		}
		for _, u := range users {
			names[u.ID] = u.Username
		}
	}

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		v := eventView{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			v.ActorID = e.ActorID.Hex()
			v.ActorName = names[*e.ActorID]
		}
		if e.ApplicantID != nil {
			v.ApplicantID = e.ApplicantID.Hex()
		}
		out = append(out, v)
	}
	return out
}
