package migrate

import (
	"fmt"

	"github.com/roach88/sqlbridge/internal/bind"
)

// Migration is a named unit of forward-only work.
// SQL may hold several semicolon-separated statements.
type Migration struct {
	Name string `json:"name" yaml:"name"`
	SQL  string `json:"sql" yaml:"sql"`
}

// Hash returns the fingerprint recorded in the ledger for this migration.
func (m Migration) Hash() string {
	return bind.Fingerprint(m.SQL)
}

// Entry is one ledger row.
type Entry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// Status is a migration's state as seen by the engine.
// Transitions only go left to right: Unseen → Verified | Applied | Rejected.
type Status int

const (
	// StatusUnseen means the engine has not reached the migration.
	StatusUnseen Status = iota
	// StatusVerified means the migration matches its ledger row.
	StatusVerified
	// StatusApplied means the migration was executed and recorded.
	StatusApplied
	// StatusRejected means the migration diverges from the ledger.
	StatusRejected
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusUnseen:
		return "unseen"
	case StatusVerified:
		return "verified"
	case StatusApplied:
		return "applied"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Report lists what a reconciliation did, by migration name.
type Report struct {
	Verified []string `json:"verified"`
	Applied  []string `json:"applied"`
}

// Step pairs a migration name with its planned status.
type Step struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}
