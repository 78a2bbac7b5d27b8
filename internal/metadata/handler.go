package metadata

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Searcher     *Searcher
	DefaultLimit int
}

func NewHandler(searcher *Searcher, defaultLimit int) *Handler {
	return &Handler{Searcher: searcher, DefaultLimit: defaultLimit}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
}

func (h *Handler) search(c *gin.Context) {
	limit := h.DefaultLimit
	if s := strings.TrimSpace(c.Query("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	results := h.Searcher.Search(c.Request.Context(), c.Query("q"), limit)
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}
