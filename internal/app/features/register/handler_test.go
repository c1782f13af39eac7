package register_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	"github.com/dalemusser/registryhub/internal/app/features/register"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	"github.com/dalemusser/registryhub/internal/app/system/metrics"
	"github.com/dalemusser/registryhub/internal/app/system/uploads"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/dalemusser/registryhub/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h        *register.Handler
	db       *mongo.Database
	pending  *applicantstore.Store
	blobs    *attachmentstore.Store
	fixtures *testutil.Fixtures
	metrics  *metrics.Metrics
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupIndexedDB(t)
	logger := zap.NewNop()
	pending := applicantstore.NewPending(db, 24*time.Hour)
	registry := applicantstore.NewRegistry(db)
	blobs := attachmentstore.New(db, "")
	m := metrics.New()
	h := register.NewHandler(pending, registry, blobs, 1024, uierrors.NewErrorLogger(logger), nil, m, logger)
	return env{h: h, db: db, pending: pending, blobs: blobs, fixtures: testutil.NewFixtures(t, db), metrics: m}
}

func (e env) post(t *testing.T, name, nid, email string, files ...testutil.FilePart) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/api/applicants/register", testutil.ValidForm(name, nid, email), files...)
	rec := testutil.NewRecorder()
	e.h.HandleRegister(rec, req)
	return rec
}

func (e env) countBlobs(t *testing.T) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := e.db.Collection(attachmentstore.DefaultBucket+".files").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count blobs: %v", err)
	}
	return n
}

func TestHandleRegister_Success(t *testing.T) {
	e := newEnv(t)
	photo := []byte("\x89PNG photo")

	rec := e.post(t, "Ana Souza", "123.456.789-00", "Ana@Example.com",
		testutil.FilePart{Field: uploads.FieldPhoto, Filename: "ana.png", ContentType: "image/png", Data: photo},
	)
	rec.AssertStatus(t, http.StatusCreated)

	var body uierrors.Message
	rec.DecodeJSON(t, &body)
	if body.Message != register.SubmittedMessage {
		t.Errorf("message = %q", body.Message)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	got, err := e.pending.GetByNationalID(ctx, "12345678900")
	if err != nil {
		t.Fatalf("pending record not found: %v", err)
	}
	if got.Status != models.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.Email != "ana@example.com" {
		t.Errorf("Email = %q, want lowercased", got.Email)
	}
	if got.CredentialID != nil {
		t.Error("CredentialID should be nil when no credential was sent")
	}
	if got.PhotoID == nil {
		t.Fatal("PhotoID not set")
	}

	blob, err := e.blobs.Open(ctx, *got.PhotoID)
	if err != nil {
		t.Fatalf("open photo: %v", err)
	}
	defer blob.Close()
	data, _ := io.ReadAll(blob)
	if string(data) != string(photo) {
		t.Errorf("photo bytes = %q", data)
	}
	if blob.ContentType != "image/png" {
		t.Errorf("ContentType = %q", blob.ContentType)
	}
	if n := promtest.ToFloat64(e.metrics.Registrations.WithLabelValues("created")); n != 1 {
		t.Errorf("created counter = %v", n)
	}
}

func TestHandleRegister_ValidationError(t *testing.T) {
	e := newEnv(t)

	form := testutil.ValidForm("Ana", "12345678900", "ana@example.com")
	form.Set("sex", "outro")
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/api/applicants/register", form,
		testutil.FilePart{Field: uploads.FieldPhoto, Filename: "a.png", Data: []byte("x")})
	rec := testutil.NewRecorder()
	e.h.HandleRegister(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	var body uierrors.Body
	rec.DecodeJSON(t, &body)
	if body.Field != "sex" {
		t.Errorf("field = %q, want sex", body.Field)
	}
	if n := e.countBlobs(t); n != 0 {
		t.Errorf("invalid submission stored %d blobs", n)
	}
}

func TestHandleRegister_DuplicateInPending(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fixtures.CreatePending(ctx, testutil.SampleApplicant("Ana", "123.456.789-00", "ana@example.com"))

	rec := e.post(t, "Outra", "12345678900", "other@example.com",
		testutil.FilePart{Field: uploads.FieldPhoto, Filename: "a.png", Data: []byte("x")})

	rec.AssertStatus(t, http.StatusBadRequest)
	var body uierrors.Body
	rec.DecodeJSON(t, &body)
	if body.Field != "national_id" {
		t.Errorf("field = %q, want national_id", body.Field)
	}
	if n := e.countBlobs(t); n != 0 {
		t.Errorf("duplicate submission stored %d blobs", n)
	}
}

func TestHandleRegister_DuplicateInRegistry(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fixtures.CreateApproved(ctx, testutil.SampleApplicant("Ana", "11122233344", "ana@example.com"))

	rec := e.post(t, "Outra", "99988877766", "ANA@example.com")

	rec.AssertStatus(t, http.StatusBadRequest)
	var body uierrors.Body
	rec.DecodeJSON(t, &body)
	if body.Field != "email" {
		t.Errorf("field = %q, want email", body.Field)
	}
}

func TestHandleRegister_TooLarge(t *testing.T) {
	e := newEnv(t)
	big := make([]byte, 4096)

	rec := e.post(t, "Ana", "12345678900", "ana@example.com",
		testutil.FilePart{Field: uploads.FieldCredential, Filename: "doc.pdf", Data: big})

	rec.AssertStatus(t, http.StatusRequestEntityTooLarge)
}

func TestHandleRegister_ConcurrentDuplicates(t *testing.T) {
	e := newEnv(t)

	const n = 5
	reqs := make([]*http.Request, n)
	for i := range reqs {
		reqs[i] = testutil.NewMultipartRequest(t, http.MethodPost, "/api/applicants/register",
			testutil.ValidForm("Ana", "12345678900", "ana@example.com"))
	}

	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			e.h.HandleRegister(rec, reqs[i])
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			conflicts++
		default:
			t.Errorf("unexpected status %d", c)
		}
	}
	if created != 1 || conflicts != n-1 {
		t.Errorf("created=%d conflicts=%d, want 1 and %d", created, conflicts, n-1)
	}
}
