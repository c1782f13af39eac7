package review_test

import (
	"net/http"
	"reflect"
	"testing"
	"time"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	"github.com/dalemusser/registryhub/internal/app/features/review"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/dalemusser/registryhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	router   chi.Router
	pending  *applicantstore.Store
	registry *applicantstore.Store
	fixtures *testutil.Fixtures
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupIndexedDB(t)
	logger := zap.NewNop()
	pending := applicantstore.NewPending(db, 24*time.Hour)
	registry := applicantstore.NewRegistry(db)
	h := review.NewHandler(pending, registry, time.Hour, uierrors.NewErrorLogger(logger), nil, nil, logger)

	r := chi.NewRouter()
	review.MountRoutes(r, h)
	return env{router: r, pending: pending, registry: registry, fixtures: testutil.NewFixtures(t, db)}
}

func (e env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e env) setStatus(t *testing.T, id, status string, user *testutil.TestUser) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPut, "/"+id+"/status", map[string]string{"status": status})
	if user != nil {
		req = testutil.WithUser(req, *user)
	}
	return e.do(req)
}

func TestServeList_OnlyPending(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fixtures.CreatePending(ctx, testutil.SampleApplicant("Ana", "11111111111", "a@example.com"))
	rejected := testutil.SampleApplicant("Bia", "22222222222", "b@example.com")
	rejected.Status = models.StatusRejected
	e.fixtures.CreatePending(ctx, rejected)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/pending", testutil.SecretaryUser()))
	rec.AssertStatus(t, http.StatusOK)

	var list []models.Applicant
	rec.DecodeJSON(t, &list)
	if len(list) != 1 || list[0].Name != "Ana" {
		t.Errorf("got %+v, want only Ana", list)
	}
}

func TestServeList_EmptyIsArray(t *testing.T) {
	e := newEnv(t)
	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/pending", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestRoutes_AccessGuard(t *testing.T) {
	e := newEnv(t)
	outsider := testutil.TestUser{ID: primitive.NewObjectID().Hex(), Username: "x", Role: "member"}

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"anonymous list", testutil.NewRequest(http.MethodGet, "/pending"), http.StatusUnauthorized},
		{"wrong role list", testutil.NewAuthenticatedRequest(http.MethodGet, "/pending", outsider), http.StatusForbidden},
		{"anonymous status", testutil.NewJSONRequest(t, http.MethodPut, "/"+primitive.NewObjectID().Hex()+"/status", `{"status":"approved"}`), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.do(tt.req).AssertStatus(t, tt.want)
		})
	}
}

func TestHandleStatus_Approve(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	photo, credential := primitive.NewObjectID(), primitive.NewObjectID()
	amount, payroll := 75.5, true
	a := testutil.SampleApplicant("Ana", "123.456.789-00", "ana@example.com")
	a.RegistrationNumber = "CR-77"
	a.AffiliationDetail = "Reserva"
	a.WantsToContribute = true
	a.ContributionAmount = &amount
	a.PayrollDeduction = &payroll
	a.Incarnate = true
	a.PhotoID = &photo
	a.CredentialID = &credential
	a.CreatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	p := e.fixtures.CreatePending(ctx, a)

	// Compare against what was stored, so time precision matches.
	before, err := e.pending.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("load pending record: %v", err)
	}

	admin := testutil.AdminUser()
	rec := e.setStatus(t, p.ID.Hex(), "approved", &admin)
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	rec.DecodeJSON(t, &body)
	if body.Status != models.StatusApproved {
		t.Errorf("status = %q", body.Status)
	}

	if _, err := e.pending.GetByID(ctx, p.ID); err != mongo.ErrNoDocuments {
		t.Errorf("pending record should be gone, got err=%v", err)
	}
	regID, err := primitive.ObjectIDFromHex(body.ID)
	if err != nil {
		t.Fatalf("bad id %q", body.ID)
	}
	got, err := e.registry.GetByID(ctx, regID)
	if err != nil {
		t.Fatalf("registry record not found: %v", err)
	}
	if got.Status != models.StatusApproved {
		t.Errorf("Status = %q, want approved", got.Status)
	}
	if got.ExpiresAt != nil {
		t.Error("registry record must not expire")
	}
	if !got.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("CreatedAt = %v, want submission time %v", got.CreatedAt, a.CreatedAt)
	}

	// Every submitted field carries over; only identity and lifecycle change.
	want := *before
	copied := *got
	for _, r := range []*models.Applicant{&want, &copied} {
		r.ID = primitive.NilObjectID
		r.Status = ""
		r.UpdatedAt = time.Time{}
		r.ExpiresAt = nil
	}
	if !reflect.DeepEqual(want, copied) {
		t.Errorf("registry record differs from submission:\n got  %+v\n want %+v", copied, want)
	}
}

func TestHandleStatus_RejectKeepsRecordOutOfRegistry(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := e.fixtures.CreatePending(ctx, testutil.SampleApplicant("Ana", "12345678900", "ana@example.com"))

	sec := testutil.SecretaryUser()
	e.setStatus(t, p.ID.Hex(), "rejeitado", &sec).AssertStatus(t, http.StatusOK)

	got, err := e.pending.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("rejected record should remain until expiry: %v", err)
	}
	if got.Status != models.StatusRejected {
		t.Errorf("Status = %q, want rejected", got.Status)
	}
	if got.ExpiresAt == nil || got.ExpiresAt.After(time.Now().Add(2*time.Hour)) {
		t.Errorf("ExpiresAt = %v, want about one hour out", got.ExpiresAt)
	}
	if _, err := e.registry.GetByNationalID(ctx, "12345678900"); err != mongo.ErrNoDocuments {
		t.Errorf("rejected record must not be in registry, err=%v", err)
	}

	// A decided record cannot be reviewed again.
	e.setStatus(t, p.ID.Hex(), "approved", &sec).AssertStatus(t, http.StatusConflict)
}

func TestHandleStatus_ApproveConflict(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fixtures.CreateApproved(ctx, testutil.SampleApplicant("Ana", "12345678900", "ana@example.com"))
	p := e.fixtures.CreatePending(ctx, testutil.SampleApplicant("Ana 2", "98765432100", "ana@example.com"))

	admin := testutil.AdminUser()
	rec := e.setStatus(t, p.ID.Hex(), "approved", &admin)
	rec.AssertStatus(t, http.StatusConflict)

	var body uierrors.Body
	rec.DecodeJSON(t, &body)
	if body.Field != "email" {
		t.Errorf("field = %q, want email", body.Field)
	}
	if got, err := e.pending.GetByID(ctx, p.ID); err != nil || got.Status != models.StatusPending {
		t.Errorf("pending record must be untouched, got %+v err=%v", got, err)
	}
}

func TestHandleStatus_BadInput(t *testing.T) {
	e := newEnv(t)
	admin := testutil.AdminUser()

	tests := []struct {
		name   string
		id     string
		status string
		want   int
	}{
		{"bad id", "not-an-id", "approved", http.StatusBadRequest},
		{"bad status", primitive.NewObjectID().Hex(), "maybe", http.StatusBadRequest},
		{"missing", primitive.NewObjectID().Hex(), "approved", http.StatusNotFound},
		{"missing reject", primitive.NewObjectID().Hex(), "rejected", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.setStatus(t, tt.id, tt.status, &admin).AssertStatus(t, tt.want)
		})
	}
}
