// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/registryhub/internal/app/store/audit"
	"github.com/dalemusser/registryhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login attempts).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for applicant events (intake, review, registry changes, exports).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.ApplicantID != nil {
		fields = append(fields, zap.String("applicant_id", event.ApplicantID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryIntake, audit.CategoryReview, audit.CategoryRegistry:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if (setting == "all" || setting == "log") && l.zapLog != nil {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil && l.zapLog != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func requestEvent(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginSuccess)
	e.ActorID = &userID
	e.Details = map[string]string{"username": username}
	l.Log(ctx, e)
}

// LoginFailed logs a failed login. reason is one of "user_not_found",
// "wrong_password" or "user_disabled"; userID is nil when the user is unknown.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, userID *primitive.ObjectID, username, reason string) {
	eventType := audit.EventLoginFailedWrongPassword
	switch reason {
	case "user_not_found":
		eventType = audit.EventLoginFailedUserNotFound
	case "user_disabled":
		eventType = audit.EventLoginFailedUserDisabled
	}
	e := requestEvent(r, audit.CategoryAuth, eventType)
	e.ActorID = userID
	e.Success = false
	e.FailureReason = reason
	e.Details = map[string]string{"attempted_username": username}
	l.Log(ctx, e)
}

// LoginRateLimited logs a login attempt rejected by the rate limiter.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, username string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit)
	e.Success = false
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"attempted_username": username}
	l.Log(ctx, e)
}

// --- Applicant Events ---

// ApplicantRegistered logs a new submission to the pending queue.
func (l *Logger) ApplicantRegistered(ctx context.Context, r *http.Request, applicantID primitive.ObjectID) {
	e := requestEvent(r, audit.CategoryIntake, audit.EventApplicantRegistered)
	e.ApplicantID = &applicantID
	l.Log(ctx, e)
}

// ApplicantApproved logs the promotion of a pending record into the registry.
func (l *Logger) ApplicantApproved(ctx context.Context, r *http.Request, actorID *primitive.ObjectID, pendingID, registryID primitive.ObjectID) {
	e := requestEvent(r, audit.CategoryReview, audit.EventApplicantApproved)
	e.ActorID = actorID
	e.ApplicantID = &registryID
	e.Details = map[string]string{"pending_id": pendingID.Hex()}
	l.Log(ctx, e)
}

// ApplicantRejected logs a rejection.
func (l *Logger) ApplicantRejected(ctx context.Context, r *http.Request, actorID *primitive.ObjectID, applicantID primitive.ObjectID) {
	e := requestEvent(r, audit.CategoryReview, audit.EventApplicantRejected)
	e.ActorID = actorID
	e.ApplicantID = &applicantID
	l.Log(ctx, e)
}

// ApplicantUpdated logs an administrative full-record update.
func (l *Logger) ApplicantUpdated(ctx context.Context, r *http.Request, actorID *primitive.ObjectID, applicantID primitive.ObjectID, registrationNumber string) {
	e := requestEvent(r, audit.CategoryRegistry, audit.EventApplicantUpdated)
	e.ActorID = actorID
	e.ApplicantID = &applicantID
	e.Details = map[string]string{"registration_number": registrationNumber}
	l.Log(ctx, e)
}

// ApplicantSelfUpdated logs a self-service edit.
func (l *Logger) ApplicantSelfUpdated(ctx context.Context, r *http.Request, applicantID primitive.ObjectID, replacedAttachments int) {
	e := requestEvent(r, audit.CategoryRegistry, audit.EventApplicantSelfUpdated)
	e.ApplicantID = &applicantID
	e.Details = map[string]string{"replaced_attachments": strconv.Itoa(replacedAttachments)}
	l.Log(ctx, e)
}

// ApplicantDeleted logs a registry deletion.
func (l *Logger) ApplicantDeleted(ctx context.Context, r *http.Request, actorID *primitive.ObjectID, applicantID primitive.ObjectID, registrationNumber string) {
	e := requestEvent(r, audit.CategoryRegistry, audit.EventApplicantDeleted)
	e.ActorID = actorID
	e.ApplicantID = &applicantID
	e.Details = map[string]string{"registration_number": registrationNumber}
	l.Log(ctx, e)
}

// RegistryExported logs a spreadsheet export.
func (l *Logger) RegistryExported(ctx context.Context, r *http.Request, actorID *primitive.ObjectID, rows int) {
	e := requestEvent(r, audit.CategoryRegistry, audit.EventRegistryExported)
	e.ActorID = actorID
	e.Details = map[string]string{"rows": strconv.Itoa(rows)}
	l.Log(ctx, e)
}
