package models

import (
	"fmt"
	"time"
)

// ConnectionType is the relationship state between two users.
type ConnectionType string

const (
	ConnectionNone             ConnectionType = "none"
	ConnectionSentInterest     ConnectionType = "sent_interest"
	ConnectionReceivedInterest ConnectionType = "received_interest"
	ConnectionMutualInterest   ConnectionType = "mutual_interest"
	ConnectionMatched          ConnectionType = "matched"
	ConnectionConnected        ConnectionType = "connected"
	ConnectionPremiumAccess    ConnectionType = "premium_access"
	ConnectionBlocked          ConnectionType = "blocked"
)

// ParseConnectionType rejects anything outside the known set.
func ParseConnectionType(s string) (ConnectionType, error) {
	switch t := ConnectionType(s); t {
	case ConnectionNone, ConnectionSentInterest, ConnectionReceivedInterest, ConnectionMutualInterest,
		ConnectionMatched, ConnectionConnected, ConnectionPremiumAccess, ConnectionBlocked:
		return t, nil
	}
	return "", fmt.Errorf("unknown connection type %q", s)
}

// IsConnected is true for mutual_interest, matched and connected.
func (t ConnectionType) IsConnected() bool {
	switch t {
	case ConnectionMutualInterest, ConnectionMatched, ConnectionConnected:
		return true
	}
	return false
}

// HasInterest is true when any non-blocking relationship exists.
func (t ConnectionType) HasInterest() bool {
	return t != "" && t != ConnectionNone && t != ConnectionBlocked
}

// ConnectionStatus tracks whether a record is live.
type ConnectionStatus string

const (
	ConnectionStatusActive   ConnectionStatus = "active"
	ConnectionStatusInactive ConnectionStatus = "inactive"
	ConnectionStatusPending  ConnectionStatus = "pending"
)

// ParseConnectionStatus rejects anything outside the known set.
func ParseConnectionStatus(s string) (ConnectionStatus, error) {
	switch st := ConnectionStatus(s); st {
	case ConnectionStatusActive, ConnectionStatusInactive, ConnectionStatusPending:
		return st, nil
	}
	return "", fmt.Errorf("unknown connection status %q", s)
}

// ConnectionRecord is the single canonical record for an unordered pair.
// UserA sorts before UserB. Initiator is whichever side sent first and is
// what turns a stored sent_interest into received_interest for the other side.
type ConnectionRecord struct {
	UserA     string           `json:"user_a"`
	UserB     string           `json:"user_b"`
	Type      ConnectionType   `json:"type"`
	Status    ConnectionStatus `json:"status"`
	Initiator string           `json:"initiator"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TypeFor returns the connection type as seen by viewer.
func (r *ConnectionRecord) TypeFor(viewer string) ConnectionType {
	if r == nil || r.Status == ConnectionStatusInactive {
		return ConnectionNone
	}
	if r.Type == ConnectionSentInterest && r.Initiator != viewer {
		return ConnectionReceivedInterest
	}
	return r.Type
}
