// internal/app/features/attachments/handler.go
package attachments

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler streams stored attachments.
type Handler struct {
	Blobs  *attachmentstore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(blobs *attachmentstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Blobs: blobs, ErrLog: errLog, Log: logger}
}

// ServeImage handles GET /image/{id}, streaming the blob with its stored
// content type. Malformed and unknown ids are both 404.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Attachment not found.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	blob, err := h.Blobs.Open(ctx, id)
	if err != nil {
		if errors.Is(err, attachmentstore.ErrNotFound) {
			uierrors.NotFound(w, "Attachment not found.")
			return
		}
		h.ErrLog.LogServerError(w, r, "open attachment failed", err, "A database error occurred.")
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(blob.Length, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if blob.Name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": blob.Name}))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, blob); err != nil {
		// Headers are gone; all that is left is to log.
		h.Log.Warn("attachment stream interrupted", zap.String("blob_id", id.Hex()), zap.Error(err))
	}
}
