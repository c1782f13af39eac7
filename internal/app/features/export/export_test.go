package export

import "time"

// SetNow overrides the handler clock.
func (h *Handler) SetNow(now func() time.Time) {
	h.now = now
}
