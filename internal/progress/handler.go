package progress

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mediatrack/internal/auth"
)

// EntryOwner reports whether an entry belongs to a user.
type EntryOwner interface {
	Owns(ctx context.Context, userID string, entryID int64) (bool, error)
}

type Handler struct {
	Repo    *Repo
	Entries EntryOwner
	Logger  *slog.Logger
}

func NewHandler(repo *Repo, entries EntryOwner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Repo: repo, Entries: entries, Logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/entries/:id/progress", h.list)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entryID, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || entryID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	owned, err := h.Entries.Owns(c.Request.Context(), claims.UserID, entryID)
	if err != nil {
		h.Logger.Error("check entry owner", "entry_id", entryID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !owned {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, entryID, limit, offset)
	if err != nil {
		h.Logger.Error("list progress history", "entry_id", entryID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
