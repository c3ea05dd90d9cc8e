package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleHost   Role = "host"
	RoleMember Role = "member"
)

// Member is a persistent room membership with its assigned tasks.
type Member struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Tasks    []Task `json:"tasks"`
}

// RosterEntry is what finalization needs to know about a member.
type RosterEntry struct {
	Username string
	Role     Role
}

// NormalizeMembers converts a stored members document into structured members.
// Legacy rows hold plain usernames instead of objects; both shapes are accepted
// here and nowhere else.
func NormalizeMembers(raw []byte) ([]Member, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Member{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	out := make([]Member, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var name string
			if err := json.Unmarshal(item, &name); err != nil {
				return nil, fmt.Errorf("decode legacy member: %w", err)
			}
			out = append(out, Member{Username: name, Role: RoleMember, Tasks: []Task{}})
			continue
		}
		var m Member
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, fmt.Errorf("decode member: %w", err)
		}
		if m.Username == "" {
			continue
		}
		if m.Role == "" {
			m.Role = RoleMember
		}
		if m.Tasks == nil {
			m.Tasks = []Task{}
		}
		out = append(out, m)
	}
	return out, nil
}
