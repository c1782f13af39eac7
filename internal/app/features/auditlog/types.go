// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/registryhub/internal/app/store/audit"
)

// eventView is a single audit event as returned to the client.
type eventView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	ActorName     string            `json:"actor_name,omitempty"` // resolved from ActorID
	ApplicantID   string            `json:"applicant_id,omitempty"`
	IP            string            `json:"ip"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// listResponse is the body of GET /api/audit.
type listResponse struct {
	Items      []eventView `json:"items"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Total      int64       `json:"total"`
	HasPrev    bool        `json:"has_prev"`
	HasNext    bool        `json:"has_next"`
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedUserDisabled,
		audit.EventLoginFailedRateLimit,
	}
	intakeEvents := []string{audit.EventApplicantRegistered}
	reviewEvents := []string{audit.EventApplicantApproved, audit.EventApplicantRejected}
	registryEvents := []string{
		audit.EventApplicantUpdated,
		audit.EventApplicantSelfUpdated,
		audit.EventApplicantDeleted,
		audit.EventRegistryExported,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryIntake:
		return intakeEvents
	case audit.CategoryReview:
		return reviewEvents
	case audit.CategoryRegistry:
		return registryEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(intakeEvents)+len(reviewEvents)+len(registryEvents))
		all = append(all, authEvents...)
		all = append(all, intakeEvents...)
		all = append(all, reviewEvents...)
		return append(all, registryEvents...)
	default:
		return nil
	}
}

func knownEventType(category, eventType string) bool {
	for _, t := range eventTypesForCategory(category) {
		if t == eventType {
			return true
		}
	}
	return false
}
