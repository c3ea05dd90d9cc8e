package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/meetsync/internal/domain"
	"github.com/dkeye/meetsync/internal/storage"
)

const codeAttempts = 5

var _ storage.Store = (*Store)(nil)

// Store is a GORM-backed SQLite implementation of storage.Store.
type Store struct {
	db *gorm.DB
}

type roomModel struct {
	Code      string `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	Owner     string `gorm:"index"`
	Members   string `gorm:"type:text"`
	CreatedAt time.Time
}

func (roomModel) TableName() string { return "rooms" }

// NewStore opens a SQLite database at the provided path.
func NewStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate applies schema updates.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&roomModel{})
}

func generateCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:6])
}

// Create stores a room owned by owner, who becomes its host member.
func (s *Store) Create(ctx context.Context, owner, roomName string) (domain.RoomID, error) {
	members, err := encodeMembers([]domain.Member{{Username: owner, Role: domain.RoleHost, Tasks: []domain.Task{}}})
	if err != nil {
		return "", err
	}
	db := s.db.WithContext(ctx)
	for range codeAttempts {
		code := generateCode()
		var n int64
		if err := db.Model(&roomModel{}).Where("code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n > 0 {
			continue
		}
		model := roomModel{
			Code:      code,
			Name:      roomName,
			Owner:     owner,
			Members:   members,
			CreatedAt: time.Now().UTC(),
		}
		if err := db.Create(&model).Error; err != nil {
			return "", fmt.Errorf("insert room: %w", err)
		}
		log.Info().Str("module", "storage.sqlite").Str("room", code).Str("owner", owner).Msg("room created")
		return domain.RoomID(code), nil
	}
	return "", domain.ErrRoomCodeExhausted
}

// Join appends username as a plain member.
func (s *Store) Join(ctx context.Context, code domain.RoomID, username string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, room, err := load(tx, code)
		if err != nil {
			return err
		}
		if _, ok := room.Member(username); ok {
			return domain.ErrAlreadyMember
		}
		room.Members = append(room.Members, domain.Member{Username: username, Role: domain.RoleMember, Tasks: []domain.Task{}})
		return save(tx, model, room.Members)
	})
}

// Get returns the room with members normalized to the structured shape.
func (s *Store) Get(ctx context.Context, code domain.RoomID) (*domain.StoredRoom, error) {
	_, room, err := load(s.db.WithContext(ctx), code)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// ListForUser returns rooms where username is the owner or a member.
func (s *Store) ListForUser(ctx context.Context, username string) ([]domain.StoredRoom, error) {
	quoted, err := json.Marshal(username)
	if err != nil {
		return nil, err
	}
	var models []roomModel
	err = s.db.WithContext(ctx).
		Where("owner = ? OR members LIKE ?", username, "%"+string(quoted)+"%").
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredRoom, 0, len(models))
	for _, m := range models {
		room, err := toDomain(m)
		if err != nil {
			log.Warn().Err(err).Str("module", "storage.sqlite").Str("room", m.Code).Msg("skipping unreadable room")
			continue
		}
		if _, ok := room.Member(username); !ok && room.Owner != username {
			continue
		}
		out = append(out, *room)
	}
	return out, nil
}

// AddTask assigns a new task to assignee. Only the owner may create tasks.
func (s *Store) AddTask(ctx context.Context, code domain.RoomID, creator, assignee, title, description string) (domain.Task, error) {
	task := domain.Task{
		ID:          ulid.Make().String(),
		Title:       title,
		Description: description,
		CreatedBy:   creator,
		Timestamp:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, room, err := load(tx, code)
		if err != nil {
			return err
		}
		if room.Owner != creator {
			return domain.ErrNotOwner
		}
		m, ok := room.Member(assignee)
		if !ok {
			return domain.ErrMemberNotFound
		}
		m.Tasks = append(m.Tasks, task)
		return save(tx, model, room.Members)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// Tasks lists the tasks assigned to username.
func (s *Store) Tasks(ctx context.Context, code domain.RoomID, username string) ([]domain.Task, error) {
	room, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	m, ok := room.Member(username)
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return m.Tasks, nil
}

// Roster implements core.RosterSource.
func (s *Store) Roster(ctx context.Context, room domain.RoomID) ([]domain.RosterEntry, error) {
	r, err := s.Get(ctx, room)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RosterEntry, 0, len(r.Members))
	for _, m := range r.Members {
		out = append(out, domain.RosterEntry{Username: m.Username, Role: m.Role})
	}
	return out, nil
}

func load(db *gorm.DB, code domain.RoomID) (*roomModel, *domain.StoredRoom, error) {
	var model roomModel
	if err := db.Where("code = ?", string(code)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrRoomNotFound
		}
		return nil, nil, err
	}
	room, err := toDomain(model)
	if err != nil {
		return nil, nil, err
	}
	return &model, room, nil
}

func save(db *gorm.DB, model *roomModel, members []domain.Member) error {
	raw, err := encodeMembers(members)
	if err != nil {
		return err
	}
	return db.Model(model).Update("members", raw).Error
}

func toDomain(m roomModel) (*domain.StoredRoom, error) {
	members, err := domain.NormalizeMembers([]byte(m.Members))
	if err != nil {
		return nil, err
	}
	return &domain.StoredRoom{
		Code:      domain.RoomID(m.Code),
		Name:      m.Name,
		Owner:     m.Owner,
		Members:   members,
		CreatedAt: m.CreatedAt,
	}, nil
}

func encodeMembers(members []domain.Member) (string, error) {
	raw, err := json.Marshal(members)
	if err != nil {
		return "", fmt.Errorf("encode members: %w", err)
	}
	return string(raw), nil
}
