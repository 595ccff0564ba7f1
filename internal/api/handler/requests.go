package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/myownradio/channel-bot/internal/api/service"
	"github.com/myownradio/channel-bot/internal/pipeline"
)

// RequestHandlers holds the gin route handlers for the track-request
// endpoints, adapted from the teacher's TrackHandlers/handler.go shape.
type RequestHandlers struct {
	svc *service.RequestService
}

func NewRequestHandlers(svc *service.RequestService) *RequestHandlers {
	return &RequestHandlers{svc: svc}
}

// defaultUserID is the single broadcast-backend account this service acts
// on behalf of. The original left user scoping as a hardcoded UserId(1)
// ("not used yet" — original_source/src/http/track_request.rs); multi-user
// scoping is out of scope here too, so this carries that forward.
const defaultUserID = pipeline.UserId(1)

func currentUser(c *gin.Context) pipeline.UserId {
	if v, ok := c.Get("userId"); ok {
		if id, ok := v.(pipeline.UserId); ok {
			return id
		}
	}
	return defaultUserID
}

// Create handles POST /api/requests
func (h *RequestHandlers) Create(c *gin.Context) {
	var body struct {
		Title            string `json:"title"`
		Artist           string `json:"artist"`
		Album            string `json:"album"`
		ValidateMetadata bool   `json:"validateMetadata"`
		ChannelID        uint64 `json:"channelId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request body"})
		return
	}
	if body.Title == "" || body.Artist == "" || body.Album == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "title, artist and album are required"})
		return
	}

	requestID, err := h.svc.Create(c.Request.Context(), currentUser(c), service.CreateRequestInput{
		Metadata: pipeline.AudioMetadata{
			Title:  body.Title,
			Artist: body.Artist,
			Album:  body.Album,
		},
		ValidateMetadata: body.ValidateMetadata,
		ChannelID:        pipeline.ChannelId(body.ChannelID),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":    "ok",
		"requestId": requestID.String(),
	})
}

// GetByID handles GET /api/requests/:id
func (h *RequestHandlers) GetByID(c *gin.Context) {
	requestID, err := pipeline.ParseRequestId(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request id"})
		return
	}

	status, err := h.svc.Status(c.Request.Context(), currentUser(c), requestID)
	if err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"requestId":     requestID.String(),
		"requestStatus": status,
	})
}

// List handles GET /api/requests
func (h *RequestHandlers) List(c *gin.Context) {
	requests, err := h.svc.List(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	out := make(map[string]pipeline.Status, len(requests))
	for id, status := range requests {
		out[id.String()] = status
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "requests": out})
}

// Retry handles POST /api/requests/:id/retry  (protected)
func (h *RequestHandlers) Retry(c *gin.Context) {
	requestID, err := pipeline.ParseRequestId(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid request id"})
		return
	}

	retried, err := h.svc.Retry(c.Request.Context(), currentUser(c), requestID)
	if err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if !retried {
		c.JSON(http.StatusConflict, gin.H{"status": "error", "error": "request is not retryable right now"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "ok", "requestId": requestID.String()})
}

func parseChannelID(s string) (pipeline.ChannelId, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return pipeline.ChannelId(id), nil
}
