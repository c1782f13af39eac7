// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"slices"
	"strings"

	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role whitelists for the guarded operations.
var (
	// ReviewRoles may list pending applicants and approve or reject them.
	ReviewRoles = []string{models.RoleAdmin, models.RoleSecretary}
	// ExportRoles may download the registry spreadsheet.
	ExportRoles = []string{models.RoleAdmin, models.RoleSecretary}
	// RegistryAdminRoles may rewrite or delete registry records.
	RegistryAdminRoles = []string{models.RoleAdmin}
	// AuditRoles may read the audit trail.
	AuditRoles = []string{models.RoleAdmin}
)

// UserCtx returns the user's role (lowercased), username, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, username string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Fail closed: a token subject that is not an ObjectID is never trusted.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Username, userID, true
}

// ActorID returns the current user's ObjectID, or nil when nobody is signed in.
// Used to attribute audit events.
func ActorID(r *http.Request) *primitive.ObjectID {
	_, _, id, ok := UserCtx(r)
	if !ok {
		return nil
	}
	return &id
}

// HasAnyRole reports whether a signed-in user holds one of roles. Role names
// compare case-insensitively; an anonymous request holds none.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	return ok && slices.ContainsFunc(roles, func(want string) bool {
		return strings.EqualFold(strings.TrimSpace(want), role)
	})
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// CanReview reports whether the current user may decide pending applicants.
func CanReview(r *http.Request) bool {
	return HasAnyRole(r, ReviewRoles...)
}

// CanExport reports whether the current user may download the registry.
func CanExport(r *http.Request) bool {
	return HasAnyRole(r, ExportRoles...)
}

// CanManageRegistry reports whether the current user may edit or delete
// registry records.
func CanManageRegistry(r *http.Request) bool {
	return HasAnyRole(r, RegistryAdminRoles...)
}

// CanReadAudit reports whether the current user may read the audit trail.
func CanReadAudit(r *http.Request) bool {
	return HasAnyRole(r, AuditRoles...)
}
