// internal/app/system/limits/limits.go
package limits

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// DefaultMaxUploadBytes is the per-file cap for applicant attachments.
	// Overridable with the upload_max_bytes config key.
	DefaultMaxUploadBytes = 5 << 20 // 5 MB

	// MaxJSONBody caps JSON request bodies (login, status, registry edits).
	MaxJSONBody = 1 << 20 // 1 MB

	// UploadFiles is the number of file parts a multipart form may carry.
	UploadFiles = 2

	// multipartOverhead is allowed on top of the file parts for text fields
	// and part headers.
	multipartOverhead = 1 << 20
)

// MultipartBody returns the total request body cap for a multipart form
// whose files are each limited to perFile bytes.
func MultipartBody(perFile int64) int64 {
	if perFile <= 0 {
		perFile = DefaultMaxUploadBytes
	}
	return perFile*UploadFiles + multipartOverhead
}
