package http

import (
	"context"
	"net/http"

	"github.com/dkeye/meetsync/internal/adapters/signal"
	"github.com/dkeye/meetsync/internal/app/orch"
	"github.com/dkeye/meetsync/internal/config"
	"github.com/dkeye/meetsync/internal/storage"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const (
	sessionName        = "MeetSessions"
	sessionUsernameKey = "username"
	clientTokenCookie  = "ct"
	cookieMaxAge       = 3600 * 24 * 7
)

// ClientTokenMiddleware tags every browser with a long-lived opaque token so
// log lines from its REST calls and WS connections can be correlated.
func ClientTokenMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(clientTokenCookie)
		if token == "" {
			token = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(clientTokenCookie, token, cookieMaxAge, "/", "", secure, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// Deps bundles what the router serves.
type Deps struct {
	Orch       *orch.Orchestrator
	Signal     *signal.SignalWSController
	Store      storage.Store
	ICEServers []webrtc.ICEServer
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secure := cfg.TLS.Enabled()
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware(secure))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{orch: deps.Orch, store: deps.Store, ice: deps.ICEServers}
	api := r.Group("/api")

	api.POST("/rooms", h.createRoom)
	api.POST("/rooms/join", h.joinRoom)
	api.GET("/rooms/:code", h.getRoom)
	api.GET("/users/:username/rooms", h.userRooms)
	api.POST("/tasks", h.createTask)
	api.GET("/tasks/:code/:username", h.tasks)

	api.GET("/transcriptions/:room", h.transcriptions)
	api.GET("/videocalls", h.calls)
	api.GET("/videocalls/:room", h.call)
	api.GET("/ice-servers", h.iceServers)

	api.GET("/ws/signal", func(c *gin.Context) {
		name, _ := sessions.Default(c).Get(sessionUsernameKey).(string)
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		deps.Signal.HandleSignal(ctx, c, name)
	})

	return r
}
