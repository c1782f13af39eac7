package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID       string
	Username string
	Role     string
}

// AdminUser returns a TestUser with admin role.
func AdminUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Username: "admin",
		Role:     models.RoleAdmin,
	}
}

// SecretaryUser returns a TestUser with secretario role.
func SecretaryUser() TestUser {
	return TestUser{
		ID:       primitive.NewObjectID().Hex(),
		Username: "secretaria",
		Role:     models.RoleSecretary,
	}
}

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses the bearer middleware and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.User{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// WithBearer sets the Authorization header to a bearer token.
func WithBearer(r *http.Request, token string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewAuthenticatedRequest creates an HTTP request with a user in context.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, user)
}

// NewJSONRequest creates a request whose body is v encoded as JSON.
func NewJSONRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body io.Reader
	switch b := v.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// FilePart is one file in a multipart request.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// NewMultipartRequest creates a multipart/form-data request with the given
// fields and files.
func NewMultipartRequest(t *testing.T, method, target string, fields url.Values, files ...FilePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("write field %s: %v", k, err)
			}
		}
	}
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="` + f.Field + `"; filename="` + f.Filename + `"`}
		if f.ContentType != "" {
			h["Content-Type"] = []string{f.ContentType}
		}
		pw, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part %s: %v", f.Field, err)
		}
		if _, err := pw.Write(f.Data); err != nil {
			t.Fatalf("write part %s: %v", f.Field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// ValidForm returns the form values of a complete, valid submission.
func ValidForm(name, nationalID, email string) url.Values {
	return url.Values{
		"name":                 {name},
		"national_id":          {nationalID},
		"phone":                {"(21) 99999-0000"},
		"email":                {email},
		"state":                {"RJ"},
		"city":                 {"Rio de Janeiro"},
		"address":              {"Rua A, 10"},
		"postal_code":          {"20000-000"},
		"sex":                  {"feminino"},
		"birth_date":           {"1980-05-17"},
		"affiliation":          {"Marinha"},
		"professional_status":  {"Ativa"},
		"education":            {"superior"},
		"unit":                 {"Núcleo Centro"},
		"referrer_name":        {"João Souza"},
		"referrer_national_id": {"111.444.777-35"},
		"wants_to_contribute":  {"false"},
		"incarnate":            {"true"},
	}
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON decodes the response body into v.
func (r *ResponseRecorder) DecodeJSON(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", r.Body.String(), err)
	}
}
