package entries

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"mediatrack/internal/auth"
	"mediatrack/internal/sync"
	"mediatrack/internal/validation"
	"mediatrack/pkg/models"
)

type Handler struct {
	Repo      *Repo
	Service   *Service
	Importer  *Importer
	Hub       *sync.Hub
	Validator *validation.Validator
	Logger    *slog.Logger
}

func NewHandler(svc *Service, importer *Importer, hub *sync.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Repo:      svc.Repo,
		Service:   svc,
		Importer:  importer,
		Hub:       hub,
		Validator: validation.New(),
		Logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/entries", h.list)
	rg.POST("/entries", h.create)
	rg.POST("/entries/import", h.importCandidate)
	rg.GET("/entries/:id", h.detail)
	rg.PATCH("/entries/:id", h.updateFields)
	rg.PUT("/entries/:id", h.edit)
	rg.DELETE("/entries/:id", h.remove)
}

type createReq struct {
	Title           string  `json:"title" validate:"required,max=255"`
	Category        string  `json:"category" validate:"required,oneof=anime series movie manga manhwa book game"`
	Status          string  `json:"status" validate:"omitempty,oneof=pending in_progress completed dropped"`
	Platform        string  `json:"platform" validate:"max=100"`
	ProgressCurrent int     `json:"progress_current" validate:"gte=0"`
	ProgressTotal   *int    `json:"progress_total" validate:"omitempty,gte=0"`
	EpisodesCount   *int    `json:"episodes_count" validate:"omitempty,gte=0"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0"`
	Rating          *int    `json:"rating" validate:"omitempty,gte=1,lte=10"`
	Notes           string  `json:"notes"`
	ExternalLink    string  `json:"external_link" validate:"omitempty,url"`
	CoverImage      string  `json:"cover_image" validate:"omitempty,url"`
	TagIDs          []int64 `json:"tag_ids"`
}

type editReq struct {
	Status             *string  `json:"status" validate:"omitempty,oneof=pending in_progress completed dropped"`
	ProgressCurrent    *int     `json:"progress_current" validate:"omitempty,gte=0"`
	ProgressTotal      *int     `json:"progress_total" validate:"omitempty,gte=0"`
	ClearProgressTotal bool     `json:"clear_progress_total"`
	Rating             *int     `json:"rating" validate:"omitempty,gte=1,lte=10"`
	ClearRating        bool     `json:"clear_rating"`
	Notes              *string  `json:"notes"`
	TagIDs             *[]int64 `json:"tag_ids"`
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q := ListQuery{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		TagID:    int64(parseInt(c.Query("tag"), 0)),
		Limit:    parseInt(c.Query("limit"), 20),
		Offset:   parseInt(c.Query("offset"), 0),
	}

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.Repo.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	details := make([]models.EntryDetail, 0, len(items))
	for _, e := range items {
		details = append(details, e.Detail())
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  details,
		"stats":  stats,
	})
}

func (h *Handler) create(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		h.fail(c, err)
		return
	}

	e := &models.Entry{
		UserID:          claims.UserID,
		Title:           req.Title,
		Category:        models.Category(req.Category),
		Status:          models.Status(req.Status),
		Platform:        strings.TrimSpace(req.Platform),
		ProgressCurrent: req.ProgressCurrent,
		ProgressTotal:   req.ProgressTotal,
		EpisodesCount:   req.EpisodesCount,
		DurationMinutes: req.DurationMinutes,
		Rating:          req.Rating,
		Notes:           req.Notes,
		ExternalLink:    strings.TrimSpace(req.ExternalLink),
		CoverImage:      strings.TrimSpace(req.CoverImage),
	}

	created, err := h.Service.CreateManual(c.Request.Context(), e, req.TagIDs)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(sync.EntryCreated, created)
	c.JSON(http.StatusCreated, created.Detail())
}

func (h *Handler) importCandidate(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var cand models.Candidate
	if err := c.ShouldBindJSON(&cand); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "code": "invalid_payload"})
		return
	}

	id, err := h.Importer.Import(c.Request.Context(), claims.UserID, cand)
	if err != nil {
		h.fail(c, err)
		return
	}

	if e, err := h.Repo.Get(c.Request.Context(), claims.UserID, id); err == nil && e != nil {
		h.publish(sync.EntryCreated, e)
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) detail(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := entryID(c)
	if !ok {
		return
	}

	d, err := h.Service.Detail(c.Request.Context(), claims.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) updateFields(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := entryID(c)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, applied, err := h.Service.UpdateFields(c.Request.Context(), claims.UserID, id, raw)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(sync.EntryUpdated, e)
	c.JSON(http.StatusOK, gin.H{
		"updated": applied,
		"entry":   e.Detail(),
	})
}

func (h *Handler) edit(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := entryID(c)
	if !ok {
		return
	}

	var req editReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		h.fail(c, err)
		return
	}

	in := EditInput{
		ProgressCurrent: req.ProgressCurrent,
		ProgressTotal:   req.ProgressTotal,
		ClearTotal:      req.ClearProgressTotal,
		Rating:          req.Rating,
		ClearRating:     req.ClearRating,
		Notes:           req.Notes,
		TagIDs:          req.TagIDs,
	}
	if req.Status != nil {
		st := models.Status(*req.Status)
		in.Status = &st
	}

	e, err := h.Service.Edit(c.Request.Context(), claims.UserID, id, in)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.publish(sync.EntryUpdated, e)
	c.JSON(http.StatusOK, e.Detail())
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := entryID(c)
	if !ok {
		return
	}

	deleted, err := h.Repo.Delete(c.Request.Context(), claims.UserID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
		return
	}

	h.publish(sync.EntryDeleted, &models.Entry{ID: id, UserID: claims.UserID})
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) publish(typ string, e *models.Entry) {
	if h.Hub == nil || e == nil {
		return
	}
	go h.Hub.Publish(e.UserID, sync.NewEntryEvent(typ, e))
}

// fail maps service errors onto status codes. Anything unrecognised is
// logged and reported as a 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		dup  *DuplicateError
		verr *validation.Error
	)
	switch {
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "already in your list",
			"code":        "duplicate",
			"existing_id": dup.ExistingID,
		})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, ErrMissingTitle):
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required", "code": "missing_title"})
	case errors.Is(err, ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_payload"})
	case errors.Is(err, ErrNoChanges), errors.Is(err, ErrUnknownTag):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
	default:
		h.Logger.Error("entries request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func entryID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
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
