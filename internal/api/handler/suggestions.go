package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/myownradio/channel-bot/internal/api/service"
)

// SuggestionHandlers holds the gin route handler for the supplemented
// "suggest more tracks" endpoint (SPEC_FULL.md SUPPLEMENTED FEATURES).
type SuggestionHandlers struct {
	svc *service.SuggestionService
}

func NewSuggestionHandlers(svc *service.SuggestionService) *SuggestionHandlers {
	return &SuggestionHandlers{svc: svc}
}

// Get handles GET /api/channels/:channelId/suggestions
func (h *SuggestionHandlers) Get(c *gin.Context) {
	channelID, err := parseChannelID(c.Param("channelId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid channel id"})
		return
	}

	suggestions, err := h.svc.Suggest(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"suggestions": suggestions,
	})
}
