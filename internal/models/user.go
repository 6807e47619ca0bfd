package models

import (
	"time"
)

// Account is the login identity stored in PostgreSQL.
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`

	// Internal only - never returned in JSON
	PasswordHash string `json:"-"`
}

// UserProfile is the per-user record kept in Redis. Privacy settings live
// inline so a single HGETALL answers every access check about the owner.
type UserProfile struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	IsPremium    bool            `json:"is_premium"`
	PremiumUntil *time.Time      `json:"premium_until,omitempty"`
	IsVerified   bool            `json:"is_verified"`
	CreatedAt    time.Time       `json:"created_at"`
	Privacy      PrivacySettings `json:"privacy"`
}

// HasActivePremium reports whether the premium flag is set and not past its
// optional expiry.
func (p *UserProfile) HasActivePremium(now time.Time) bool {
	if p == nil || !p.IsPremium {
		return false
	}
	if p.PremiumUntil == nil {
		return true
	}
	return now.Before(*p.PremiumUntil)
}
