package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/dkeye/meetsync/internal/app/orch"
	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/dkeye/meetsync/internal/storage"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch  *orch.Orchestrator
	store storage.Store
	ice   []webrtc.ICEServer
}

func rememberUsername(c *gin.Context, name string) {
	s := sessions.Default(c)
	s.Set(sessionUsernameKey, name)
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
	}
}

// POST /api/rooms
func (h *handlers) createRoom(c *gin.Context) {
	var req struct {
		RoomName string `json:"room_name"`
		UserName string `json:"user_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomName == "" || req.UserName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_name and user_name required"})
		return
	}
	code, err := h.store.Create(c.Request.Context(), req.UserName, req.RoomName)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create room"})
		return
	}
	rememberUsername(c, req.UserName)
	c.JSON(http.StatusCreated, gin.H{
		"status":    "Room created",
		"room_code": code,
		"room_name": req.RoomName,
		"owner":     req.UserName,
		"members":   []string{req.UserName},
	})
}

// POST /api/rooms/join
func (h *handlers) joinRoom(c *gin.Context) {
	var req struct {
		RoomCode string `json:"room_code"`
		UserName string `json:"user_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomCode == "" || req.UserName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_code and user_name required"})
		return
	}
	ctx := c.Request.Context()
	code := domain.RoomID(req.RoomCode)
	if err := h.store.Join(ctx, code, req.UserName); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) || errors.Is(err, domain.ErrAlreadyMember) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("join room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not join room"})
		return
	}
	room, err := h.store.Get(ctx, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Room not found after join"})
		return
	}
	rememberUsername(c, req.UserName)
	c.JSON(http.StatusOK, gin.H{
		"status":    "Joined room successfully",
		"room_code": room.Code,
		"room_name": room.Name,
		"owner":     room.Owner,
		"members":   room.Usernames(),
	})
}

// GET /api/rooms/:code
func (h *handlers) getRoom(c *gin.Context) {
	room, err := h.store.Get(c.Request.Context(), domain.RoomID(c.Param("code")))
	if err != nil {
		h.storeError(c, err)
		return
	}
	members := make(map[string][]domain.Task, len(room.Members))
	for _, m := range room.Members {
		members[m.Username] = m.Tasks
	}
	c.JSON(http.StatusOK, gin.H{
		"room_code":  room.Code,
		"room_name":  room.Name,
		"owner":      room.Owner,
		"members":    members,
		"created_at": room.CreatedAt,
	})
}

// GET /api/users/:username/rooms
func (h *handlers) userRooms(c *gin.Context) {
	rooms, err := h.store.ListForUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("user rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user rooms"})
		return
	}
	type roomView struct {
		ID          domain.RoomID `json:"id"`
		Name        string        `json:"name"`
		Owner       string        `json:"owner"`
		MemberCount int           `json:"member_count"`
		CreatedAt   time.Time     `json:"created_at"`
	}
	out := make([]roomView, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomView{r.Code, r.Name, r.Owner, len(r.Members), r.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// POST /api/tasks
func (h *handlers) createTask(c *gin.Context) {
	var req struct {
		RoomCode    string `json:"room_code"`
		Creator     string `json:"creator"`
		AssignedTo  string `json:"assigned_to"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomCode == "" || req.Creator == "" || req.AssignedTo == "" || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_code, creator, assigned_to, and title required"})
		return
	}
	task, err := h.store.AddTask(c.Request.Context(), domain.RoomID(req.RoomCode), req.Creator, req.AssignedTo, req.Title, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrMemberNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Str("module", "adapters.http").Msg("create task")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add task"})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "Task created", "task": task})
}

// GET /api/tasks/:code/:username
func (h *handlers) tasks(c *gin.Context) {
	tasks, err := h.store.Tasks(c.Request.Context(), domain.RoomID(c.Param("code")), c.Param("username"))
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) || errors.Is(err, domain.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room or user not found"})
			return
		}
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GET /api/transcriptions/:room
func (h *handlers) transcriptions(c *gin.Context) {
	entries, ok := h.orch.Transcript(domain.RoomID(c.Param("room")))
	if !ok {
		entries = []domain.TranscriptEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// GET /api/videocalls/:room
func (h *handlers) call(c *gin.Context) {
	info, ok := h.orch.CallInfo(domain.RoomID(c.Param("room")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// GET /api/videocalls
func (h *handlers) calls(c *gin.Context) {
	out := make(map[domain.RoomID]core.CallInfo)
	for _, info := range h.orch.Calls() {
		out[info.Room] = info
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/ice-servers
func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.ice})
}

func (h *handlers) storeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	log.Error().Err(err).Str("module", "adapters.http").Msg("store")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
