// Package domain contains core concepts of the realtime layer.
// This file defines participant identities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "strings"

// UserID is the stable identity issued by the credential issuer shared with the REST layer.
type UserID string

func (u UserID) String() string {
	return string(u)
}

// IsZero reports whether the identity has not been set.
func (u UserID) IsZero() bool {
	return strings.TrimSpace(string(u)) == ""
}
