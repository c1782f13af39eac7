package uploads_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dalemusser/registryhub/internal/app/system/uploads"
	"github.com/dalemusser/registryhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeBlobs struct {
	put     map[primitive.ObjectID][]byte
	names   map[primitive.ObjectID]string
	failOn  string
	deleted []primitive.ObjectID
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{put: map[primitive.ObjectID][]byte{}, names: map[primitive.ObjectID]string{}}
}

func (f *fakeBlobs) Put(_ context.Context, name, _ string, r io.Reader) (primitive.ObjectID, error) {
	if name == f.failOn {
		return primitive.NilObjectID, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id := primitive.NewObjectID()
	f.put[id] = data
	f.names[id] = name
	return id, nil
}

func (f *fakeBlobs) DeleteAll(_ context.Context, ids []primitive.ObjectID) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func TestParse_FilesAndValues(t *testing.T) {
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/register",
		url.Values{"name": {"Ana"}},
		testutil.FilePart{Field: uploads.FieldPhoto, Filename: "me.png", ContentType: "image/png", Data: []byte("png")},
		testutil.FilePart{Field: uploads.FieldCredential, Filename: "empty.pdf", Data: nil},
		testutil.FilePart{Field: "other", Filename: "x.bin", Data: []byte("x")},
	)
	f, err := uploads.Parse(httptest.NewRecorder(), req, 1024)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "Ana", f.Values.Get("name"))
	assert.True(t, f.Has(uploads.FieldPhoto))
	assert.False(t, f.Has(uploads.FieldCredential), "empty part counts as absent")
	assert.Len(t, f.Files, 1)
}

func TestParse_FileTooLarge(t *testing.T) {
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/register", nil,
		testutil.FilePart{Field: uploads.FieldCredential, Filename: "big.pdf", Data: bytes.Repeat([]byte("a"), 2048)},
	)
	_, err := uploads.Parse(httptest.NewRecorder(), req, 1024)
	require.Error(t, err)
	assert.True(t, errors.Is(err, uploads.ErrTooLarge))
	var tle *uploads.TooLargeError
	require.True(t, errors.As(err, &tle))
	assert.Equal(t, uploads.FieldCredential, tle.Field)
}

func TestParse_BodyTooLarge(t *testing.T) {
	// Far beyond the per-file cap times the number of file fields plus overhead.
	huge := strings.Repeat("a", 4<<20)
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/register", url.Values{"name": {huge}})
	_, err := uploads.Parse(httptest.NewRecorder(), req, 1024)
	assert.True(t, errors.Is(err, uploads.ErrTooLarge), "got %v", err)
}

func TestParse_URLEncoded(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader("name=Ana"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	f, err := uploads.Parse(httptest.NewRecorder(), req, 1024)
	require.NoError(t, err)
	assert.Equal(t, "Ana", f.Values.Get("name"))
	assert.Empty(t, f.Files)
}

func TestSave(t *testing.T) {
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/register", nil,
		testutil.FilePart{Field: uploads.FieldPhoto, Filename: "../../me.png", ContentType: "image/png", Data: []byte("png")},
		testutil.FilePart{Field: uploads.FieldCredential, Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
	)
	f, err := uploads.Parse(httptest.NewRecorder(), req, 1024)
	require.NoError(t, err)
	defer f.Close()

	blobs := newFakeBlobs()
	stored, err := uploads.Save(context.Background(), blobs, f)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	photo := stored.Ref(uploads.FieldPhoto)
	require.NotNil(t, photo)
	assert.Equal(t, []byte("png"), blobs.put[*photo])
	assert.Equal(t, "me.png", blobs.names[*photo])
	assert.Len(t, stored.IDs(), 2)
	assert.Nil(t, uploads.Stored{}.Ref(uploads.FieldPhoto))
}

func TestSave_FailureRemovesEarlierBlobs(t *testing.T) {
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/register", nil,
		testutil.FilePart{Field: uploads.FieldPhoto, Filename: "me.png", Data: []byte("png")},
		testutil.FilePart{Field: uploads.FieldCredential, Filename: "doc.pdf", Data: []byte("pdf")},
	)
	f, err := uploads.Parse(httptest.NewRecorder(), req, 1024)
	require.NoError(t, err)
	defer f.Close()

	blobs := newFakeBlobs()
	blobs.failOn = "doc.pdf"
	_, err = uploads.Save(context.Background(), blobs, f)
	require.Error(t, err)
	require.Len(t, blobs.deleted, 1)
	_, ok := blobs.put[blobs.deleted[0]]
	assert.True(t, ok, "the photo written first is deleted")
}
