package registry_test

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	"github.com/dalemusser/registryhub/internal/app/features/registry"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	"github.com/dalemusser/registryhub/internal/app/system/uploads"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/dalemusser/registryhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	router   chi.Router
	registry *applicantstore.Store
	blobs    *attachmentstore.Store
	fixtures *testutil.Fixtures
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupIndexedDB(t)
	logger := zap.NewNop()
	reg := applicantstore.NewRegistry(db)
	blobs := attachmentstore.New(db, "")
	h := registry.NewHandler(reg, blobs, 1024, uierrors.NewErrorLogger(logger), nil, nil, logger)

	r := chi.NewRouter()
	registry.MountRoutes(r, h, nil)
	return env{router: r, registry: reg, blobs: blobs, fixtures: testutil.NewFixtures(t, db)}
}

func (e env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e env) approved(t *testing.T, name, nid, email, regNum string) models.Applicant {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := testutil.SampleApplicant(name, nid, email)
	a.RegistrationNumber = regNum
	return e.fixtures.CreateApproved(ctx, a)
}

func (e env) put(t *testing.T, name string, data []byte) primitive.ObjectID {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	id, err := e.blobs.Put(ctx, name, "image/png", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("put blob: %v", err)
	}
	return id
}

// jsonRecord converts form values into a JSON object body.
func jsonRecord(name, nid, email string) map[string]string {
	out := map[string]string{}
	for k, v := range testutil.ValidForm(name, nid, email) {
		out[k] = v[0]
	}
	return out
}

func TestServeLookup(t *testing.T) {
	e := newEnv(t)
	e.approved(t, "Ana", "123.456.789-00", "ana@example.com", "CR-1")

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"formatted", "/buscar?national_id=123.456.789-00", http.StatusOK},
		{"digits only", "/buscar?national_id=12345678900", http.StatusOK},
		{"camel alias", "/buscar?nationalId=12345678900", http.StatusOK},
		{"birth date match", "/buscar?cpf=12345678900&birth_date=1980-05-17", http.StatusOK},
		{"birth date mismatch", "/buscar?national_id=12345678900&birth_date=1980-05-18", http.StatusNotFound},
		{"bad birth date", "/buscar?national_id=12345678900&birth_date=17/05/1980", http.StatusBadRequest},
		{"unknown", "/buscar?national_id=99999999999", http.StatusNotFound},
		{"missing", "/buscar", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.do(testutil.NewRequest(http.MethodGet, tt.target)).AssertStatus(t, tt.want)
		})
	}
}

func TestServeLookup_RawStoredValue(t *testing.T) {
	e := newEnv(t)
	e.approved(t, "Ana", "12345678900", "ana@example.com", "")

	rec := e.do(testutil.NewRequest(http.MethodGet, "/buscar?national_id=123.456.789-00"))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Applicant
	rec.DecodeJSON(t, &got)
	if got.Name != "Ana" {
		t.Errorf("Name = %q", got.Name)
	}
}

func TestAdminRoutes_AccessGuard(t *testing.T) {
	e := newEnv(t)
	e.approved(t, "Ana", "12345678900", "ana@example.com", "CR-1")

	e.do(testutil.NewRequest(http.MethodDelete, "/CR-1")).AssertStatus(t, http.StatusUnauthorized)
	e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/CR-1", testutil.SecretaryUser())).AssertStatus(t, http.StatusForbidden)
}

func TestHandleAdminUpdate(t *testing.T) {
	e := newEnv(t)
	orig := e.approved(t, "Ana", "12345678900", "ana@example.com", "CR-1")

	body := jsonRecord("Ana Maria", "12345678900", "ana.maria@example.com")
	req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, "/CR-1", body), testutil.AdminUser())
	rec := e.do(req)
	rec.AssertStatus(t, http.StatusOK)

	var got models.Applicant
	rec.DecodeJSON(t, &got)
	if got.ID != orig.ID {
		t.Errorf("ID changed: %s -> %s", orig.ID.Hex(), got.ID.Hex())
	}
	if got.Name != "Ana Maria" || got.Email != "ana.maria@example.com" {
		t.Errorf("fields not updated: %+v", got)
	}
	if got.RegistrationNumber != "CR-1" {
		t.Errorf("RegistrationNumber = %q, want kept", got.RegistrationNumber)
	}
	if got.Status != models.StatusApproved {
		t.Errorf("Status = %q", got.Status)
	}
}

func TestHandleAdminUpdate_Errors(t *testing.T) {
	e := newEnv(t)
	e.approved(t, "Ana", "12345678900", "ana@example.com", "CR-1")
	e.approved(t, "Bia", "98765432100", "bia@example.com", "CR-2")
	admin := testutil.AdminUser()

	invalid := jsonRecord("Ana", "12345678900", "ana@example.com")
	invalid["education"] = "phd"

	tests := []struct {
		name   string
		target string
		body   any
		status int
		field  string
	}{
		{"missing record", "/CR-404", jsonRecord("X", "11122233344", "x@example.com"), http.StatusNotFound, ""},
		{"invalid field", "/CR-1", invalid, http.StatusBadRequest, "education"},
		{"email taken", "/CR-1", jsonRecord("Ana", "12345678900", "BIA@example.com"), http.StatusConflict, "email"},
		{"national id taken", "/CR-1", jsonRecord("Ana", "987.654.321-00", "ana@example.com"), http.StatusConflict, "national_id"},
		{"bad json", "/CR-1", "{", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, tt.target, tt.body), admin)
			rec := e.do(req)
			rec.AssertStatus(t, tt.status)
			if tt.field != "" {
				var b uierrors.Body
				rec.DecodeJSON(t, &b)
				if b.Field != tt.field {
					t.Errorf("field = %q, want %q", b.Field, tt.field)
				}
			}
		})
	}
}

func TestHandleAdminDelete(t *testing.T) {
	e := newEnv(t)
	photo := e.put(t, "p.png", []byte("p"))
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := testutil.SampleApplicant("Ana", "12345678900", "ana@example.com")
	a.RegistrationNumber = "CR-1"
	a.PhotoID = &photo
	rec := e.fixtures.CreateApproved(ctx, a)

	admin := testutil.AdminUser()
	e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/CR-1", admin)).AssertStatus(t, http.StatusOK)

	if _, err := e.registry.GetByID(ctx, rec.ID); err != mongo.ErrNoDocuments {
		t.Errorf("record should be deleted, err=%v", err)
	}
	if _, err := e.blobs.Open(ctx, photo); err != attachmentstore.ErrNotFound {
		t.Errorf("photo should be deleted, err=%v", err)
	}

	e.do(testutil.NewAuthenticatedRequest(http.MethodDelete, "/CR-1", admin)).AssertStatus(t, http.StatusNotFound)
}

func TestHandleSelfUpdate_ReplacesAttachment(t *testing.T) {
	e := newEnv(t)
	oldPhoto := e.put(t, "old.png", []byte("old"))
	credential := e.put(t, "cred.pdf", []byte("cred"))
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := testutil.SampleApplicant("Ana", "12345678900", "ana@example.com")
	a.RegistrationNumber = "CR-1"
	a.PhotoID = &oldPhoto
	a.CredentialID = &credential
	orig := e.fixtures.CreateApproved(ctx, a)

	form := testutil.ValidForm("Ana", "12345678900", "ana@example.com")
	form.Set("city", "Niterói")
	form.Set("registration_number", "HACK")
	req := testutil.NewMultipartRequest(t, http.MethodPut, "/atualizar/"+orig.ID.Hex(), form,
		testutil.FilePart{Field: uploads.FieldPhoto, Filename: "new.png", ContentType: "image/png", Data: []byte("new")})
	rec := e.do(req)
	rec.AssertStatus(t, http.StatusOK)

	got, err := e.registry.GetByID(ctx, orig.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.City != "Niterói" {
		t.Errorf("City = %q", got.City)
	}
	if got.RegistrationNumber != "CR-1" {
		t.Errorf("self-service changed registration number to %q", got.RegistrationNumber)
	}
	if got.PhotoID == nil || *got.PhotoID == oldPhoto {
		t.Fatalf("photo not replaced: %v", got.PhotoID)
	}
	if got.CredentialID == nil || *got.CredentialID != credential {
		t.Errorf("credential should be kept")
	}

	blob, err := e.blobs.Open(ctx, *got.PhotoID)
	if err != nil {
		t.Fatalf("open new photo: %v", err)
	}
	data, _ := io.ReadAll(blob)
	blob.Close()
	if string(data) != "new" {
		t.Errorf("new photo bytes = %q", data)
	}
	if _, err := e.blobs.Open(ctx, oldPhoto); err != attachmentstore.ErrNotFound {
		t.Errorf("old photo should be deleted, err=%v", err)
	}
}

func TestHandleSelfUpdate_Errors(t *testing.T) {
	e := newEnv(t)
	orig := e.approved(t, "Ana", "12345678900", "ana@example.com", "")
	e.approved(t, "Bia", "98765432100", "bia@example.com", "")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	queued := e.fixtures.CreatePending(ctx, testutil.SampleApplicant("Cris", "11122233344", "cris@example.com"))

	bad := testutil.ValidForm("Ana", "12345678900", "ana@example.com")
	bad.Del("unit")
	noReferrer := testutil.ValidForm("Ana", "12345678900", "ana@example.com")
	noReferrer.Del("referrer_name")

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{"bad id", func() *http.Request {
			return testutil.NewMultipartRequest(t, http.MethodPut, "/atualizar/xyz", testutil.ValidForm("Ana", "12345678900", "ana@example.com"))
		}, http.StatusNotFound},
		{"unknown id", func() *http.Request {
			return testutil.NewMultipartRequest(t, http.MethodPut, "/atualizar/"+primitive.NewObjectID().Hex(), testutil.ValidForm("Ana", "12345678900", "ana@example.com"))
		}, http.StatusNotFound},
		{"pending id", func() *http.Request {
			return testutil.NewMultipartRequest(t, http.MethodPut, "/atualizar/"+queued.ID.Hex(), testutil.ValidForm("Cris", "11122233344", "cris@example.com"))
		}, http.StatusNotFound},
		{"missing field", func() *http.Request {
			return testutil.NewMultipartRequest(t, http.MethodPut, "/atualizar/"+orig.ID.Hex(), bad)
		}, http.StatusBadRequest},
		{"missing referrer", func() *http.Request {
			return testutil.NewMultipartRequest(t, http.MethodPut, "/atualizar/"+orig.ID.Hex(), noReferrer)
		}, http.StatusBadRequest},
		{"email taken", func() *http.Request {
			return testutil.NewMultipartRequest(t, http.MethodPut, "/atualizar/"+orig.ID.Hex(), testutil.ValidForm("Ana", "12345678900", "bia@example.com"))
		}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.do(tt.req()).AssertStatus(t, tt.status)
		})
	}
}
