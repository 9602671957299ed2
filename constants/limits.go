package constants

import "time"

// Hard ceilings of the extraction pipeline.
const (
	MaxDocumentsPerRequest = 10
	MaxCandidateEmails     = 20
	MaxAttachmentsPerEmail = 3

	// DefaultMailboxPageLimit bounds listing calls when pages come back empty.
	DefaultMailboxPageLimit = 20

	DefaultDaysBack = 30
	MaxDaysBack     = 365

	// MaxEmailBodyChars caps the plain body inlined for one message.
	MaxEmailBodyChars = 8000
)

// AuditWriteTimeout bounds the best-effort audit append.
const AuditWriteTimeout = 5 * time.Second
