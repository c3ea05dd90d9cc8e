package core

import "github.com/dkeye/meetsync/internal/domain"

// AttendeeDirectory maps connection identity to display name for one room.
// It is not safe for concurrent use; RoomSession guards it.
type AttendeeDirectory struct {
	order []domain.ConnID
	names map[domain.ConnID]string
}

func NewAttendeeDirectory() *AttendeeDirectory {
	return &AttendeeDirectory{names: make(map[domain.ConnID]string)}
}

// Add inserts the attendee or overwrites its name. An overwritten attendee
// keeps its original position.
func (d *AttendeeDirectory) Add(conn domain.ConnID, name string) {
	if _, ok := d.names[conn]; !ok {
		d.order = append(d.order, conn)
	}
	d.names[conn] = domain.NormalizeName(name)
}

// Remove reports whether the connection was present.
func (d *AttendeeDirectory) Remove(conn domain.ConnID) bool {
	if _, ok := d.names[conn]; !ok {
		return false
	}
	delete(d.names, conn)
	for i, c := range d.order {
		if c == conn {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Rename only touches current members.
func (d *AttendeeDirectory) Rename(conn domain.ConnID, name string) bool {
	if _, ok := d.names[conn]; !ok {
		return false
	}
	d.names[conn] = domain.NormalizeName(name)
	return true
}

func (d *AttendeeDirectory) Has(conn domain.ConnID) bool {
	_, ok := d.names[conn]
	return ok
}

func (d *AttendeeDirectory) Name(conn domain.ConnID) (string, bool) {
	n, ok := d.names[conn]
	return n, ok
}

func (d *AttendeeDirectory) Len() int { return len(d.names) }

// Snapshot returns attendees in insertion order.
func (d *AttendeeDirectory) Snapshot() []domain.Attendee {
	out := make([]domain.Attendee, 0, len(d.order))
	for _, c := range d.order {
		out = append(out, domain.Attendee{Conn: c, Name: d.names[c]})
	}
	return out
}

// Conns returns member identities in insertion order.
func (d *AttendeeDirectory) Conns() []domain.ConnID {
	out := make([]domain.ConnID, len(d.order))
	copy(out, d.order)
	return out
}
