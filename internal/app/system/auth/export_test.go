package auth

import "time"

// SetNow overrides the clock used to issue and validate tokens.
func (m *TokenManager) SetNow(now func() time.Time) {
	m.now = now
}
