package models

import (
	"fmt"
	"time"
)

// DurationCode is how long an accepted interest unlocks photos for.
type DurationCode string

const (
	Duration1Day      DurationCode = "1day"
	Duration2Days     DurationCode = "2days"
	Duration1Week     DurationCode = "1week"
	Duration1Month    DurationCode = "1month"
	DurationPermanent DurationCode = "permanent"
)

// Fixed table. 1month is a flat 30 days, not a calendar month.
var grantDurations = map[DurationCode]time.Duration{
	Duration1Day:   24 * time.Hour,
	Duration2Days:  48 * time.Hour,
	Duration1Week:  7 * 24 * time.Hour,
	Duration1Month: 30 * 24 * time.Hour,
}

// ParseDurationCode validates a code coming from a request or the store.
func ParseDurationCode(s string) (DurationCode, error) {
	c := DurationCode(s)
	if c == DurationPermanent {
		return c, nil
	}
	if _, ok := grantDurations[c]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown duration code %q", s)
}

// Duration returns the window length. bounded is false for permanent.
func (c DurationCode) Duration() (d time.Duration, bounded bool) {
	d, bounded = grantDurations[c]
	return d, bounded
}

// PhotoAccessGrant is created when an owner accepts an interest with a
// duration. Expiry is derived from GrantedAt on every read.
type PhotoAccessGrant struct {
	ID           string       `json:"id"`
	GranterID    string       `json:"granter_id"`
	GranteeID    string       `json:"grantee_id"`
	DurationCode DurationCode `json:"duration_code"`
	GrantedAt    time.Time    `json:"granted_at"`
	Revoked      bool         `json:"revoked"`
	RevokedAt    *time.Time   `json:"revoked_at,omitempty"`
	InterestID   string       `json:"interest_id,omitempty"`
}
