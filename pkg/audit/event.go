package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event records one document operation. NRNs are masked before they leave
// the process.
type Event struct {
	ID           string    `json:"id"`
	Time         time.Time `json:"time"`
	Operation    string    `json:"operation"`
	Outcome      string    `json:"outcome"` // "ok" or a connector failure kind
	DocumentType string    `json:"documentType,omitempty"`
	PersonNRN    string    `json:"personNrn,omitempty"`
	RequestorNRN string    `json:"requestorNrn,omitempty"`
	Municipality string    `json:"municipality,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
	Username     string    `json:"username,omitempty"`
}

// NewEvent stamps an ID and time.
func NewEvent(operation, outcome string) Event {
	return Event{
		ID:        uuid.NewString(),
		Time:      time.Now().UTC(),
		Operation: operation,
		Outcome:   outcome,
	}
}

// MaskNRN keeps the last four characters.
func MaskNRN(nrn string) string {
	nrn = strings.TrimSpace(nrn)
	if nrn == "" {
		return ""
	}
	if len(nrn) <= 4 {
		return strings.Repeat("*", len(nrn))
	}
	return strings.Repeat("*", len(nrn)-4) + nrn[len(nrn)-4:]
}
