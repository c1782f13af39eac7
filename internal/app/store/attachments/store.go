// internal/app/store/attachments/store.go
package attachmentstore

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultBucket is the GridFS bucket name used when none is configured.
const DefaultBucket = "uploads"

// DefaultContentType is served for blobs stored without a content type.
const DefaultContentType = "application/octet-stream"

// ErrNotFound is returned when no blob exists for an id.
var ErrNotFound = errors.New("attachment not found")

// Blob is an open attachment. Callers must Close it.
type Blob struct {
	io.ReadCloser
	ID          primitive.ObjectID
	Name        string
	ContentType string
	Length      int64
	UploadedAt  time.Time
}

// Store keeps uploaded files in a GridFS bucket.
type Store struct {
	db   *mongo.Database
	name string
}

// New returns a Store over the named bucket (DefaultBucket when empty).
func New(db *mongo.Database, bucket string) *Store {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Store{db: db, name: bucket}
}

// bucket builds a GridFS handle bounded by ctx's deadline. Handles are
// cheap; building one per call keeps deadlines from leaking between
// concurrent requests.
func (s *Store) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(s.name))
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := b.SetReadDeadline(dl); err != nil {
			return nil, err
		}
		if err := b.SetWriteDeadline(dl); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Put stores r as a new blob and returns its id.
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader) (primitive.ObjectID, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if contentType == "" {
		contentType = DefaultContentType
	}
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	return b.UploadFromStream(name, r, opts)
}

// Open returns the blob with the given id, or ErrNotFound.
func (s *Store) Open(ctx context.Context, id primitive.ObjectID) (*Blob, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := b.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	f := ds.GetFile()
	blob := &Blob{
		ReadCloser:  ds,
		ID:          id,
		Name:        f.Name,
		ContentType: DefaultContentType,
		Length:      f.Length,
		UploadedAt:  f.UploadDate,
	}
	if len(f.Metadata) > 0 {
		if ct, ok := f.Metadata.Lookup("content_type").StringValueOK(); ok && ct != "" {
			blob.ContentType = ct
		}
	}
	return blob, nil
}

// Delete removes a blob and its chunks. A missing blob yields ErrNotFound.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	b, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	if err := b.DeleteContext(ctx, id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteAll removes every id, ignoring ones already gone. It returns the
// first other error after attempting all deletes.
func (s *Store) DeleteAll(ctx context.Context, ids []primitive.ObjectID) error {
	var first error
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) && first == nil {
			first = err
		}
	}
	return first
}

// ListIDsBefore returns the ids of blobs uploaded before t.
func (s *Store) ListIDsBefore(ctx context.Context, t time.Time) ([]primitive.ObjectID, error) {
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := b.FindContext(ctx, bson.M{"uploadDate": bson.M{"$lt": t}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var f struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&f); err != nil {
			return nil, err
		}
		ids = append(ids, f.ID)
	}
	return ids, cur.Err()
}
