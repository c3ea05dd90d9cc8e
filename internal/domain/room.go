package domain

import "time"

// RoomID is the canonical key of a real-time room. It is the room code
// issued by the membership store.
type RoomID string

// StoredRoom is the persistent room record owned by the membership store.
type StoredRoom struct {
	Code      RoomID    `json:"room_code"`
	Name      string    `json:"room_name"`
	Owner     string    `json:"owner"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// Usernames lists member names in stored order.
func (r *StoredRoom) Usernames() []string {
	out := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		out = append(out, m.Username)
	}
	return out
}

// Member looks a member up by username.
func (r *StoredRoom) Member(username string) (*Member, bool) {
	for i := range r.Members {
		if r.Members[i].Username == username {
			return &r.Members[i], true
		}
	}
	return nil, false
}
