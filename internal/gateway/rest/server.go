// Package rest implements C6, the request/response gateway: a REST
// surface over the same store and event vocabulary the channel gateway
// uses, kept in broadcast parity with it per spec §4.6.
package rest

import (
	"database/sql"
	"net/http"
	"time"

	ginMw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/syncd/internal/ratelimit"
	"github.com/Laisky/syncd/internal/syncd"
	"github.com/Laisky/syncd/library/log"
)

// Broadcaster is satisfied by *channel.Server. Depending on the
// interface rather than the concrete type keeps this package free of an
// import cycle with internal/gateway/channel.
type Broadcaster interface {
	Broadcast(tenantID string, ev syncd.Event)
}

// Server is C6.
type Server struct {
	engine      *gin.Engine
	auth        *syncd.Authenticator
	store       *syncd.Store
	db          *sql.DB
	broadcaster Broadcaster
	limiter     *ratelimit.Limiter
	version     string
	startedAt   time.Time
}

// Config bundles Server's construction dependencies.
type Config struct {
	Auth           *syncd.Authenticator
	Store          *syncd.Store
	DB             *sql.DB
	Broadcaster    Broadcaster
	Limiter        *ratelimit.Limiter
	AllowedOrigins []string
	ChannelHandler http.HandlerFunc
	Version        string
}

// NewServer wires the gin engine the way the teacher's internal/web
// server does: Recovery, structured-logging middleware, CORS, then
// Prometheus metrics, before routes are registered.
func NewServer(cfg Config) *Server {
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		ginMw.NewLoggerMiddleware(
			ginMw.WithLoggerMwColored(),
			ginMw.WithLevel(log.Logger.Level().String()),
			ginMw.WithLogger(log.Logger.Named("gin")),
		),
		allowCORS(cfg.AllowedOrigins),
	)
	if err := ginMw.EnableMetric(engine); err != nil {
		log.Logger.Panic("enable metric server", zap.Error(err))
	}

	s := &Server{
		engine:      engine,
		auth:        cfg.Auth,
		store:       cfg.Store,
		db:          cfg.DB,
		broadcaster: cfg.Broadcaster,
		limiter:     cfg.Limiter,
		version:     cfg.Version,
		startedAt:   time.Now(),
	}

	engine.GET("/health", s.health)

	files := engine.Group("/files")
	files.Use(s.authMiddleware(), s.rateLimitMiddleware())
	{
		files.GET("", s.requirePermission(syncd.PermRead), s.getFile)
		files.POST("", s.requirePermission(syncd.PermWrite), s.createFile)
		files.PUT("", s.requirePermission(syncd.PermWrite), s.upsertFile)
		files.PATCH("", s.requirePermission(syncd.PermWrite), s.renameFile)
		files.DELETE("", s.requirePermission(syncd.PermWrite), s.deleteFile)
		files.DELETE("/all", s.requirePermission(syncd.PermWrite), s.deleteAllFiles)
	}

	if cfg.ChannelHandler != nil {
		engine.GET("/events", gin.WrapF(cfg.ChannelHandler))
	}

	return s
}

// Engine exposes the underlying gin.Engine for http.ListenAndServe.
func (s *Server) Engine() *gin.Engine { return s.engine }

const identityKey = "syncd.identity"

// authMiddleware extracts X-API-Key and classifies the caller via
// Authenticator, per spec §4.1's bearer-credential model.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetHeader("X-API-Key")
		identity, err := s.auth.Authenticate(ctx.Request.Context(), key)
		if err != nil {
			writeError(ctx, err)
			ctx.Abort()
			return
		}
		ctx.Set(identityKey, identity)
		ctx.Next()
	}
}

func mustIdentity(ctx *gin.Context) syncd.Identity {
	v, ok := ctx.Get(identityKey)
	if !ok {
		panic("authMiddleware did not run")
	}
	return v.(syncd.Identity)
}

// requirePermission guards a single route with the capability check
// spec §6's endpoint table requires per method (read for GET, write
// for mutations), mirroring the channel gateway's own
// `identity.Can(syncd.PermWrite)` check in dispatch.
func (s *Server) requirePermission(perm syncd.Permission) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !mustIdentity(ctx).Can(perm) {
			writeError(ctx, syncd.NewError(syncd.ErrCodeForbidden, string(perm)+" permission required"))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// rateLimitMiddleware enforces C9: a per-credential requests-per-minute
// ceiling, per spec §4.6a. Admin credentials are exempt, matching this
// codebase's convention of admin bypassing tenant-scoped controls.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity := mustIdentity(ctx)
		if identity.IsAdmin || s.limiter == nil {
			ctx.Next()
			return
		}

		allowed, err := s.limiter.Allow(ctx.Request.Context(), identity.CredentialID)
		if err != nil {
			log.Logger.Warn("rate limiter check failed, allowing request", zap.Error(err))
			ctx.Next()
			return
		}
		if !allowed {
			writeError(ctx, syncd.NewError(syncd.ErrCodeRateLimited, "rate limit exceeded"))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
