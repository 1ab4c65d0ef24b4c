package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"talkmate/internal/catalog"
	"talkmate/internal/domain"
	"talkmate/internal/service"
)

// ChatHandler expone la app de conversacion de cada usuario autenticado.
type ChatHandler struct {
	logger *zap.Logger
	apps   *service.AppStore
}

func NewChatHandler(logger *zap.Logger, apps *service.AppStore) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{logger: logger, apps: apps}
}

func (h *ChatHandler) app(c *gin.Context) (*service.ChatApp, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return nil, false
	}
	return h.apps.Get(claims.UserID), true
}

// ListCharacters maneja GET /characters.
func (h *ChatHandler) ListCharacters(c *gin.Context) {
	app, ok := h.app(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": app.Catalog().Characters()})
}

// ListPersonas maneja GET /personas.
func (h *ChatHandler) ListPersonas(c *gin.Context) {
	app, ok := h.app(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"personas": app.Catalog().Personas()})
}

// Select maneja POST /chat/select.
func (h *ChatHandler) Select(c *gin.Context) {
	var req struct {
		CharacterID string `json:"character_id" binding:"required"`
		PersonaID   string `json:"persona_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid select request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	app, ok := h.app(c)
	if !ok {
		return
	}

	session, err := app.Select(req.CharacterID, req.PersonaID)
	if err != nil {
		if errors.Is(err, catalog.ErrCharacterNotFound) || errors.Is(err, catalog.ErrPersonaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("select failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not select character"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// GetMessages maneja GET /chat/messages.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	app, ok := h.app(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":       app.Snapshot(),
		"voice_enabled": app.VoiceEnabled(),
		"audio_state":   app.AudioState(),
		"input":         app.Input(),
	})
}

// PostMessage maneja POST /chat/messages. La respuesta llega por /ws.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	app, ok := h.app(c)
	if !ok {
		return
	}
	turn, err := app.Submit(c.Request.Context(), req.Text)
	h.respondSubmit(c, turn, err)
}

// SetVoice maneja PUT /chat/voice.
func (h *ChatHandler) SetVoice(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	app, ok := h.app(c)
	if !ok {
		return
	}
	app.SetVoiceEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"voice_enabled": app.VoiceEnabled()})
}

// SetInput maneja PUT /chat/input.
func (h *ChatHandler) SetInput(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	app, ok := h.app(c)
	if !ok {
		return
	}
	app.SetInput(req.Text)
	c.JSON(http.StatusOK, gin.H{"input": app.Input()})
}

// SubmitInput maneja POST /chat/input/submit.
func (h *ChatHandler) SubmitInput(c *gin.Context) {
	app, ok := h.app(c)
	if !ok {
		return
	}
	if strings.TrimSpace(app.Input()) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "input is empty"})
		return
	}
	turn, err := app.SubmitInput(c.Request.Context())
	h.respondSubmit(c, turn, err)
}

// SpeechStatus maneja GET /chat/speech.
func (h *ChatHandler) SpeechStatus(c *gin.Context) {
	app, ok := h.app(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"available": app.Speech().Available(),
		"state":     app.Speech().State(),
	})
}

func (h *ChatHandler) respondSubmit(c *gin.Context, turn *domain.Turn, err error) {
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("submit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not submit message"})
		return
	}
	if turn == nil {
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": false, "request_id": turn.RequestID})
}
