package domain

import (
	"encoding/json"
	"time"
)

// Warning is the canonical representation of an ingested IMGW warning.
// Optional feed fields are pointers; absent means the source omitted them.
type Warning struct {
	// ID is the warehouse row identity, assigned on first insert. It is
	// independent of the feed identifier, which is not always present.
	ID string `json:"id"`

	// IMGWID is the stable identifier from the feed, unique when present.
	IMGWID *string `json:"imgw_id"`

	Title       string     `json:"title"`
	Level       *string    `json:"level"`
	Probability int        `json:"probability"` // percent, 0..100
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	Published   *time.Time `json:"published"`
	Description *string    `json:"description"`
	Comment     string     `json:"comment"`
	Office      string     `json:"office"`

	// Areas holds the TERYT county codes the warning applies to, in feed order.
	Areas []string `json:"areas"`

	// Raw preserves the full original record for audit and debugging.
	Raw json.RawMessage `json:"raw"`

	// FetchedAt is the last time the reconciliation engine wrote this record.
	FetchedAt time.Time `json:"fetched_at"`
}

// StableID returns the feed identifier, or "" when the warning has none.
func (w Warning) StableID() string {
	if w.IMGWID == nil {
		return ""
	}
	return *w.IMGWID
}

// HasWindow reports whether both validity bounds are known, i.e. whether the
// warning can ever be evaluated as active.
func (w Warning) HasWindow() bool {
	return w.Start != nil && w.End != nil
}

// ActiveAt reports whether asOf falls inside the validity window. Warnings
// without a complete window are never active.
func (w Warning) ActiveAt(asOf time.Time) bool {
	if !w.HasWindow() {
		return false
	}
	return !w.Start.After(asOf) && !w.End.Before(asOf)
}
