package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one append-only record of an extraction run.
type AuditEntry struct {
	ID               uuid.UUID `json:"id"`
	ActorID          string    `json:"actor_id"`
	Action           string    `json:"action"`
	DocumentCount    int       `json:"document_count"`
	ServicesDetected int       `json:"services_detected"`
	Success          bool      `json:"success"`
	Timestamp        time.Time `json:"timestamp"`
}
