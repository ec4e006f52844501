package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// AuditLevel classifies the severity of an audit entry.
type AuditLevel string

const (
	// AuditLevelInfo records a normal successful action.
	AuditLevelInfo AuditLevel = "info"

	// AuditLevelWarning records a rejected or degraded action.
	AuditLevelWarning AuditLevel = "warning"

	// AuditLevelError records a failed action.
	AuditLevelError AuditLevel = "error"
)

// AuditEntry is an immutable record of a guarded action. Entries form
// a singly linked hash chain: each entry's checksum covers all of its
// other fields, and the next entry stores this entry's id and checksum.
// Retroactive edits therefore break either the checksum or the chain.
type AuditEntry struct {
	// ID is the unique entry identifier.
	ID string

	// Level is the severity of the entry.
	Level AuditLevel

	// Action names the guarded operation, e.g. "document.search".
	Action string

	// ResourceType and ResourceID identify the affected resource.
	ResourceType string
	ResourceID   string

	// Actor identifies who triggered the action.
	Actor string

	// Timestamp is when the action completed.
	Timestamp time.Time

	// Details holds optional free-form notes (degradations, counts).
	Details string

	// Location and Device hold optional client metadata.
	Location string
	Device   string

	// Success reports whether the action succeeded.
	Success bool

	// ErrorMessage holds the failure reason when Success is false.
	ErrorMessage string

	// Checksum is the SHA-256 hex digest over all other fields,
	// serialized in a fixed order.
	Checksum string

	// PreviousEntryID and PreviousChecksum link to the prior entry
	// in the chain. Both are empty for the chain head.
	PreviousEntryID  string
	PreviousChecksum string
}

// canonicalString serializes every field except Checksum in a fixed
// order. The timestamp is rendered in UTC RFC 3339 with nanoseconds so
// the serialization is stable across time zones and round trips.
func (e AuditEntry) canonicalString() string {
	fields := []string{
		e.ID,
		string(e.Level),
		e.Action,
		e.ResourceType,
		e.ResourceID,
		e.Actor,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Details,
		e.Location,
		e.Device,
		strconv.FormatBool(e.Success),
		e.ErrorMessage,
		e.PreviousEntryID,
		e.PreviousChecksum,
	}
	return strings.Join(fields, "\x1f")
}

// ComputeChecksum returns the SHA-256 hex digest of the entry's
// canonical serialization.
func (e AuditEntry) ComputeChecksum() string {
	sum := sha256.Sum256([]byte(e.canonicalString()))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum recomputes the entry's checksum and compares it with
// the stored value.
func VerifyChecksum(e AuditEntry) bool {
	return e.Checksum != "" && e.Checksum == e.ComputeChecksum()
}

// VerifyChain reports whether the entry correctly extends the chain.
// A chain head (no previous entry) is always valid; otherwise the
// entry's recorded previous checksum must equal the checksum actually
// stored on the prior entry.
func VerifyChain(e AuditEntry, claimedPreviousChecksum string) bool {
	if e.PreviousEntryID == "" {
		return true
	}
	return e.PreviousChecksum == claimedPreviousChecksum
}
