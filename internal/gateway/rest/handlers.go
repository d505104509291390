package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Laisky/syncd/internal/syncd"
)

type createBody struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type renameBody struct {
	Path    string `json:"path"`
	NewPath string `json:"newPath"`
}

// getFile handles both single-file GET (path only, no limit/offset)
// and paginated listing, per spec §6's single endpoint split on query
// parameter presence.
func (s *Server) getFile(ctx *gin.Context) {
	identity := mustIdentity(ctx)
	path := ctx.Query("path")

	if path != "" && ctx.Query("limit") == "" && ctx.Query("offset") == "" {
		s.getSingleFile(ctx, identity, path)
		return
	}

	s.listFiles(ctx, identity)
}

func (s *Server) getSingleFile(ctx *gin.Context, identity syncd.Identity, path string) {
	rec, err := s.store.Get(ctx.Request.Context(), identity.TenantID, path)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toDTO(rec, true))
}

func (s *Server) listFiles(ctx *gin.Context, identity syncd.Identity) {
	opts := syncd.ListOptions{
		PathPrefix:      ctx.Query("path"),
		PathContains:    ctx.Query("path_contains"),
		Extensions:      syncd.NormalizeExtensionFilter(ctx.Query("extension")),
		ContentContains: ctx.Query("content_contains"),
		IncludeDeleted:  ctx.Query("include_deleted") == "true",
	}
	if v := ctx.Query("is_binary"); v != "" {
		b := v == "true"
		opts.IsBinary = &b
	}
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := ctx.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	result, err := s.store.List(ctx.Request.Context(), identity.TenantID, opts)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"files":  toDTOList(result.Files),
		"total":  result.Total,
		"limit":  result.Limit,
		"offset": result.Offset,
	})
}

func (s *Server) createFile(ctx *gin.Context) {
	identity := mustIdentity(ctx)
	var body createBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		writeError(ctx, syncd.NewError(syncd.ErrCodeValidation, "invalid request body"))
		return
	}
	if err := syncd.ValidatePath(body.Path); err != nil {
		writeError(ctx, err)
		return
	}
	if err := syncd.ValidateContentSize(body.Content); err != nil {
		writeError(ctx, err)
		return
	}

	rec, err := s.store.CreateStrict(ctx.Request.Context(), identity.TenantID, body.Path, body.Content)
	if err != nil {
		writeError(ctx, err)
		return
	}

	s.broadcaster.Broadcast(identity.TenantID, syncd.FileCreatedEvent(rec))
	ctx.JSON(http.StatusCreated, toDTO(rec, false))
}

func (s *Server) upsertFile(ctx *gin.Context) {
	identity := mustIdentity(ctx)
	var body createBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		writeError(ctx, syncd.NewError(syncd.ErrCodeValidation, "invalid request body"))
		return
	}
	if err := syncd.ValidatePath(body.Path); err != nil {
		writeError(ctx, err)
		return
	}
	if err := syncd.ValidateContentSize(body.Content); err != nil {
		writeError(ctx, err)
		return
	}

	rec, created, err := s.store.Upsert(ctx.Request.Context(), identity.TenantID, body.Path, body.Content)
	if err != nil {
		writeError(ctx, err)
		return
	}

	if created {
		s.broadcaster.Broadcast(identity.TenantID, syncd.FileCreatedEvent(rec))
	} else {
		s.broadcaster.Broadcast(identity.TenantID, syncd.FileModifiedEvent(rec))
	}
	ctx.JSON(http.StatusOK, toDTO(rec, false))
}

func (s *Server) renameFile(ctx *gin.Context) {
	identity := mustIdentity(ctx)
	var body renameBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		writeError(ctx, syncd.NewError(syncd.ErrCodeValidation, "invalid request body"))
		return
	}
	if err := syncd.ValidatePath(body.Path); err != nil {
		writeError(ctx, err)
		return
	}
	if err := syncd.ValidatePath(body.NewPath); err != nil {
		writeError(ctx, err)
		return
	}

	rec, created, err := s.store.Rename(ctx.Request.Context(), identity.TenantID, body.Path, body.NewPath)
	if err != nil {
		writeError(ctx, err)
		return
	}

	if created {
		s.broadcaster.Broadcast(identity.TenantID, syncd.FileCreatedEvent(rec))
	} else {
		s.broadcaster.Broadcast(identity.TenantID, syncd.FileRenamedEvent(body.Path, rec))
	}
	ctx.JSON(http.StatusOK, toDTO(rec, false))
}

func (s *Server) deleteFile(ctx *gin.Context) {
	identity := mustIdentity(ctx)
	path := ctx.Query("path")
	if err := syncd.ValidatePath(path); err != nil {
		writeError(ctx, err)
		return
	}

	deleted, err := s.store.SoftDelete(ctx.Request.Context(), identity.TenantID, path)
	if err != nil {
		writeError(ctx, err)
		return
	}

	if deleted {
		s.broadcaster.Broadcast(identity.TenantID, syncd.FileDeletedEvent(path, time.Now().UTC()))
	}
	ctx.Status(http.StatusNoContent)
}

func (s *Server) deleteAllFiles(ctx *gin.Context) {
	identity := mustIdentity(ctx)
	count, err := s.store.SoftDeleteAll(ctx.Request.Context(), identity.TenantID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	// Bulk operation: no per-file broadcast, per spec §6 — peers
	// should resync via a subsequent list call.
	ctx.JSON(http.StatusOK, gin.H{"deleted": count})
}

func (s *Server) health(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "connected"
	details := gin.H{}

	if err := s.db.PingContext(pingCtx); err != nil {
		status = "degraded"
		dbStatus = "disconnected"
		details["error"] = err.Error()
	} else {
		stats := s.db.Stats()
		details["openConnections"] = stats.OpenConnections
		details["idleConnections"] = stats.Idle
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}

	ctx.JSON(code, gin.H{
		"status":   status,
		"version":  s.version,
		"uptime":   time.Since(s.startedAt).String(),
		"database": dbStatus,
		"details":  details,
	})
}
