// Package customers stores the people appointments are booked for. A
// customer row is created lazily the first time a phone number is seen for
// an org; the normalized phone is unique per org.
package customers

import (
	"errors"
	"strings"
	"time"
)

// Customer is an org-scoped contact.
type Customer struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"` // normalized, see NormalizePhone
	CreatedAt time.Time `json:"created_at"`
}

// ErrNotFound is returned when a customer is not found.
var ErrNotFound = errors.New("customer not found")

// NormalizePhone reduces a raw phone string to digits plus an optional
// leading "+". Numbers that arrive with neither "+" nor a leading "0" get a
// "0" prefix so locally-dialed forms collapse to one key.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	if normalized == "" || normalized == "+" {
		return ""
	}
	if normalized[0] != '+' && normalized[0] != '0' {
		normalized = "0" + normalized
	}
	return normalized
}
