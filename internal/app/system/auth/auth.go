package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// User is the authenticated staff user injected into r.Context().
type User struct {
	ID       string
	Username string
	Role     string
}

// UserFetcher loads the current state of a user on each request, so role
// changes and disabled accounts take effect without waiting for the token
// to expire. It returns (nil, nil) when the user is missing or disabled and
// a non-nil error only when the lookup itself failed.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*User, error)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*User)
	return u, ok
}

// WithTestUser injects u into the request context. For tests only.
func WithTestUser(r *http.Request, u *User) *http.Request {
	return withUser(r, u)
}

// Guard validates bearer tokens and resolves them to users.
type Guard struct {
	tokens  *TokenManager
	fetcher UserFetcher
	log     *zap.Logger
}

// NewGuard returns a Guard. fetcher may be nil, in which case the role in
// the token is trusted as-is.
func NewGuard(tokens *TokenManager, fetcher UserFetcher, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{tokens: tokens, fetcher: fetcher, log: log}
}

// LoadBearerUser injects the user into context when the request carries a
// valid "Authorization: Bearer" token. Requests without one, or with a bad
// one, pass through anonymously; RequireSignedIn/RequireRole decide.
// A failed user lookup is a server error, not an anonymous request.
func (g *Guard) LoadBearerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := g.tokens.Parse(raw)
		if err != nil {
			g.log.Debug("bearer token rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		u := &User{ID: claims.UserID(), Role: strings.ToLower(claims.Role)}
		if g.fetcher != nil {
			u, err = g.fetcher.FetchUser(r.Context(), claims.UserID())
			if err != nil {
				g.log.Error("bearer user lookup failed",
					zap.String("user_id", claims.UserID()), zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if u == nil {
				g.log.Debug("bearer token for unknown or disabled user",
					zap.String("user_id", claims.UserID()))
				next.ServeHTTP(w, r)
				return
			}
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadBearerUser).
// If not, it responds 401 with a JSON body.
func RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures there is a user with one of the allowed roles in
// context. No user → 401; a user with another role → 403.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)

			// 1) Not signed in → 401 semantics
			if !ok {
				unauthorized(w)
				return
			}

			// 2) Signed in but wrong role → 403 semantics
			if _, has := set[strings.ToLower(u.Role)]; !has {
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func withUser(r *http.Request, u *User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="registryhub"`)
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
