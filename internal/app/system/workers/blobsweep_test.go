package workers

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	"github.com/dalemusser/registryhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeBlobs struct {
	ids       []primitive.ObjectID
	cutoff    time.Time
	deleted   []primitive.ObjectID
	listErr   error
	deleteErr map[primitive.ObjectID]error
}

func (f *fakeBlobs) ListIDsBefore(_ context.Context, t time.Time) ([]primitive.ObjectID, error) {
	f.cutoff = t
	return f.ids, f.listErr
}

func (f *fakeBlobs) Delete(_ context.Context, id primitive.ObjectID) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRefs map[primitive.ObjectID]struct{}

func (f fakeRefs) ReferencedAttachmentIDs(context.Context) (map[primitive.ObjectID]struct{}, error) {
	return f, nil
}

type failingRefs struct{}

func (failingRefs) ReferencedAttachmentIDs(context.Context) (map[primitive.ObjectID]struct{}, error) {
	return nil, errors.New("boom")
}

func TestSweep_DeletesOnlyUnreferenced(t *testing.T) {
	a, b, c, d := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	blobs := &fakeBlobs{ids: []primitive.ObjectID{a, b, c, d}}
	pending := fakeRefs{a: {}}
	registry := fakeRefs{c: {}}

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewBlobSweep(blobs, []ReferenceSource{pending, registry}, zap.NewNop(), time.Hour, 30*time.Minute)
	w.now = func() time.Time { return now }

	var reported int
	w.OnSwept(func(n int) { reported = n })

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, reported)
	assert.ElementsMatch(t, []primitive.ObjectID{b, d}, blobs.deleted)
	assert.Equal(t, now.Add(-30*time.Minute), blobs.cutoff)
}

func TestSweep_DeleteFailureSkipped(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	blobs := &fakeBlobs{
		ids:       []primitive.ObjectID{a, b},
		deleteErr: map[primitive.ObjectID]error{a: errors.New("io")},
	}
	w := NewBlobSweep(blobs, nil, zap.NewNop(), time.Hour, time.Hour)

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []primitive.ObjectID{b}, blobs.deleted)
}

func TestSweep_ReferenceErrorDeletesNothing(t *testing.T) {
	blobs := &fakeBlobs{ids: []primitive.ObjectID{primitive.NewObjectID()}}
	w := NewBlobSweep(blobs, []ReferenceSource{failingRefs{}}, zap.NewNop(), time.Hour, time.Hour)

	_, err := w.Sweep(context.Background())
	assert.Error(t, err)
	assert.Empty(t, blobs.deleted)
}

func TestBlobSweep_StartStop(t *testing.T) {
	blobs := &fakeBlobs{}
	w := NewBlobSweep(blobs, nil, zap.NewNop(), time.Millisecond, time.Hour)
	w.Start()
	time.Sleep(10 * time.Millisecond)
	w.Stop()
	w.Stop()
}

func TestSweep_Mongo(t *testing.T) {
	db := testutil.SetupIndexedDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	blobs := attachmentstore.New(db, "")
	pending := applicantstore.NewPending(db, time.Hour)
	registry := applicantstore.NewRegistry(db)

	kept, err := blobs.Put(ctx, "kept.png", "image/png", bytes.NewReader([]byte("kept")))
	require.NoError(t, err)
	orphan, err := blobs.Put(ctx, "orphan.png", "image/png", bytes.NewReader([]byte("orphan")))
	require.NoError(t, err)

	a := testutil.SampleApplicant("Ana", "12345678900", "ana@example.com")
	a.PhotoID = &kept
	_, err = pending.Create(ctx, a)
	require.NoError(t, err)

	w := NewBlobSweep(blobs, []ReferenceSource{pending, registry}, zap.NewNop(), time.Hour, time.Minute)
	w.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = blobs.Open(ctx, orphan)
	assert.ErrorIs(t, err, attachmentstore.ErrNotFound)

	b, err := blobs.Open(ctx, kept)
	require.NoError(t, err)
	b.Close()
}
