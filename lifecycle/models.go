// Package lifecycle defines the single ledger-wide lifecycle record:
// the one-way obsolete flag and the global rent-rate update cooldown.
package lifecycle

import (
	"time"

	"github.com/xraph/propshare/types"
)

// State is the process-wide lifecycle record. There is exactly one per
// store. The obsolete transition is one-way: once set, every mutating
// ledger operation is rejected while reads keep working.
//
// The rent-update cooldown pair is global to the ledger, not per
// property: at most one rent-rate change is allowed per cooldown window
// across all properties.
type State struct {
	Obsolete             bool        `json:"obsolete"`
	ObsoleteAt           *time.Time  `json:"obsolete_at,omitempty"`
	LastRentUpdateAt     *time.Time  `json:"last_rent_update_at,omitempty"`
	LastRentUpdateAmount types.Money `json:"last_rent_update_amount"`
}

// Active reports whether mutating operations are still allowed.
func (s *State) Active() bool {
	return !s.Obsolete
}

// CanUpdateRent reports whether a rent-rate update at now is outside the
// cooldown window. The window must be strictly exceeded: an update at
// exactly lastUpdate+window is still too soon.
func (s *State) CanUpdateRent(now time.Time, window time.Duration) bool {
	if s.LastRentUpdateAt == nil {
		return true
	}
	return now.Sub(*s.LastRentUpdateAt) > window
}
