package storage

import (
	"context"

	"github.com/dkeye/meetsync/internal/domain"
)

// Store defines the persistent room membership operations used by the server.
// Lookups of unknown rooms return domain.ErrRoomNotFound.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	Create(ctx context.Context, owner, roomName string) (domain.RoomID, error)
	Join(ctx context.Context, code domain.RoomID, username string) error
	Get(ctx context.Context, code domain.RoomID) (*domain.StoredRoom, error)
	ListForUser(ctx context.Context, username string) ([]domain.StoredRoom, error)

	AddTask(ctx context.Context, code domain.RoomID, creator, assignee, title, description string) (domain.Task, error)
	Tasks(ctx context.Context, code domain.RoomID, username string) ([]domain.Task, error)

	Roster(ctx context.Context, room domain.RoomID) ([]domain.RosterEntry, error)
}
