// Package uploads parses applicant multipart forms and moves their file
// parts into the attachment store.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dalemusser/registryhub/internal/app/system/limits"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File field names accepted on applicant forms.
const (
	FieldPhoto      = "photo"
	FieldCredential = "credential"
)

// Fields lists the accepted file fields in storage order.
var Fields = []string{FieldPhoto, FieldCredential}

// ErrTooLarge is matched by every oversized-upload error.
var ErrTooLarge = errors.New("upload too large")

// TooLargeError reports a file part (or the whole body) over its limit.
// Field is empty when the body as a whole exceeded the cap.
type TooLargeError struct {
	Field string
	Limit int64
}

func (e *TooLargeError) Error() string {
	if e.Field == "" {
		return "request body too large"
	}
	return fmt.Sprintf("%s exceeds %d bytes", e.Field, e.Limit)
}

func (e *TooLargeError) Is(target error) bool { return target == ErrTooLarge }

// Form is a parsed multipart request.
type Form struct {
	Values url.Values
	Files  map[string]*multipart.FileHeader
	mf     *multipart.Form
}

// Has reports whether a non-empty file was sent for field.
func (f *Form) Has(field string) bool {
	_, ok := f.Files[field]
	return ok
}

// Close removes any temporary files created while parsing.
func (f *Form) Close() {
	if f != nil && f.mf != nil {
		_ = f.mf.RemoveAll()
	}
}

// Parse reads a multipart form whose file parts are each capped at
// maxPerFile bytes. Only the first file of each accepted field is kept;
// empty parts count as absent. A request that is not multipart is parsed as
// a plain urlencoded form with no files.
func Parse(w http.ResponseWriter, r *http.Request, maxPerFile int64) (*Form, error) {
	if maxPerFile <= 0 {
		maxPerFile = limits.DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MultipartBody(maxPerFile))

	err := r.ParseMultipartForm(maxPerFile)
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return nil, classify(err, maxPerFile)
		}
		return &Form{Values: r.PostForm, Files: map[string]*multipart.FileHeader{}}, nil
	}
	if err != nil {
		return nil, classify(err, maxPerFile)
	}

	f := &Form{
		Values: url.Values(r.MultipartForm.Value),
		Files:  make(map[string]*multipart.FileHeader),
		mf:     r.MultipartForm,
	}
	for _, field := range Fields {
		fhs := r.MultipartForm.File[field]
		if len(fhs) == 0 || fhs[0].Size == 0 {
			continue
		}
		if fhs[0].Size > maxPerFile {
			f.Close()
			return nil, &TooLargeError{Field: field, Limit: maxPerFile}
		}
		f.Files[field] = fhs[0]
	}
	return f, nil
}

func classify(err error, limit int64) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge) ||
		strings.Contains(err.Error(), "request body too large") {
		return &TooLargeError{Limit: limit}
	}
	return err
}

// BlobWriter stores and removes attachment blobs.
type BlobWriter interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (primitive.ObjectID, error)
	DeleteAll(ctx context.Context, ids []primitive.ObjectID) error
}

// Stored maps a file field to the blob id it was written to.
type Stored map[string]primitive.ObjectID

// IDs returns the stored blob ids.
func (s Stored) IDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(s))
	for _, field := range Fields {
		if id, ok := s[field]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Ref returns a pointer to the id stored for field, or nil.
func (s Stored) Ref(field string) *primitive.ObjectID {
	id, ok := s[field]
	if !ok {
		return nil
	}
	return &id
}

// Save writes every file in f to blobs. If any write fails, blobs already
// written by this call are deleted before the error is returned.
func Save(ctx context.Context, blobs BlobWriter, f *Form) (Stored, error) {
	stored := make(Stored, len(f.Files))
	for _, field := range Fields {
		fh, ok := f.Files[field]
		if !ok {
			continue
		}
		id, err := saveOne(ctx, blobs, fh)
		if err != nil {
			_ = blobs.DeleteAll(ctx, stored.IDs())
			return nil, fmt.Errorf("store %s: %w", field, err)
		}
		stored[field] = id
	}
	return stored, nil
}

func saveOne(ctx context.Context, blobs BlobWriter, fh *multipart.FileHeader) (primitive.ObjectID, error) {
	src, err := fh.Open()
	if err != nil {
		return primitive.NilObjectID, err
	}
	defer src.Close()
	return blobs.Put(ctx, filepath.Base(fh.Filename), fh.Header.Get("Content-Type"), src)
}
