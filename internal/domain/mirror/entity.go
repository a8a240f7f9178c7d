package mirror

import (
	"fmt"
	"time"
)

// Source tags every mirrored report written by this service.
const Source = "vc-analyst-backend"

// ReasonStoreUnavailable is the skip reason when the secondary store is unconfigured or unreachable.
const ReasonStoreUnavailable = "store-unavailable"

// Profile is the per-owner document, keyed by OwnerID.
type Profile struct {
	OwnerID      string    `json:"-" bson:"_id"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	DisplayName  string    `json:"displayName,omitempty" bson:"display_name,omitempty"`
	LastSyncedAt time.Time `json:"lastSyncedAt" bson:"last_synced_at"`
}

// Over returns stored with the non-empty fields of p applied on top.
// LastSyncedAt always comes from p.
func (p Profile) Over(stored Profile) Profile {
	out := stored
	out.OwnerID = p.OwnerID
	if p.Email != "" {
		out.Email = p.Email
	}
	if p.DisplayName != "" {
		out.DisplayName = p.DisplayName
	}
	out.LastSyncedAt = p.LastSyncedAt
	return out
}

// Report is a denormalized copy of a committed analysis, keyed by (OwnerID, ReportID).
type Report struct {
	OwnerID   string         `json:"ownerId" bson:"owner_id"`
	ReportID  string         `json:"reportId" bson:"report_id"`
	Title     string         `json:"title" bson:"title"`
	Summary   string         `json:"summary" bson:"summary"`
	Result    map[string]any `json:"result" bson:"result"`
	CreatedAt time.Time      `json:"createdAt" bson:"created_at"`
	SyncedAt  time.Time      `json:"syncedAt" bson:"synced_at"`
	Source    string         `json:"source" bson:"source"`
}

// Key is the composite document key.
func (r Report) Key() string { return r.OwnerID + "/" + r.ReportID }

// Status of one mirror attempt
type Status string

const (
	StatusSynced  Status = "synced"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the tri-state result of a sync. It is logged, never returned as an error.
type Outcome struct {
	Status Status
	Reason string
	Err    error
}

func Synced() Outcome { return Outcome{Status: StatusSynced} }

func Skipped(reason string) Outcome { return Outcome{Status: StatusSkipped, Reason: reason} }

func Failed(err error) Outcome { return Outcome{Status: StatusFailed, Err: err} }

func (o Outcome) String() string {
	switch o.Status {
	case StatusSkipped:
		return fmt.Sprintf("skipped(%s)", o.Reason)
	case StatusFailed:
		return fmt.Sprintf("failed(%v)", o.Err)
	default:
		return string(o.Status)
	}
}
