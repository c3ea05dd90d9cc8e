// Package domain contains entity without logic, just meta-data
package domain

import "strings"

const (
	MaxUsernameLen = 36
	DefaultName    = "Anonymous"
)

// ConnID is an opaque transport connection token. The core only uses it as a key.
type ConnID string

// Attendee is a connection's membership record within one room.
type Attendee struct {
	Conn ConnID `json:"userId"`
	Name string `json:"name"`
}

// NormalizeName trims the name, falls back to DefaultName and caps the length.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	if r := []rune(name); len(r) > MaxUsernameLen {
		name = string(r[:MaxUsernameLen])
	}
	return name
}
