package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"wachat-server/internal/domain/conversation"
	"wachat-server/internal/interfaces/httpserver/requests"
	"wachat-server/internal/interfaces/httpserver/responses"
	"wachat-server/internal/utils/platformerrors"
)

// ConversationHandler exposes HTTP entrypoints for conversations and messages.
type ConversationHandler struct {
	service     conversation.Service
	serviceName string
	log         zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(service conversation.Service, serviceName string, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		service:     service,
		serviceName: serviceName,
		log:         log.With().Str("handler", "conversation").Logger(),
	}
}

// List handles GET /api/conversations
// @Summary List conversations
// @Description Returns all conversations with their last message, message count and unread count
// @Tags Conversations
// @Produce json
// @Success 200 {object} responses.ConversationListResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /api/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	conversations, err := h.service.ListConversations(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	c.JSON(http.StatusOK, responses.ConversationListResponse{
		Conversations: conversations,
		Count:         len(conversations),
	})
}

// Messages handles GET /api/conversations/:waId/messages
// @Summary List messages of a conversation
// @Description Returns one ascending page of messages and marks incoming messages as read
// @Tags Conversations
// @Produce json
// @Param waId path string true "Conversation wa_id"
// @Param page query int false "Page number, 1-based"
// @Param limit query int false "Page size, max 200"
// @Success 200 {object} responses.MessageListResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /api/conversations/{waId}/messages [get]
func (h *ConversationHandler) Messages(c *gin.Context) {
	waID := strings.TrimSpace(c.Param("waId"))
	if waID == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "waId is required")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := h.service.ListMessages(c.Request.Context(), waID, page, limit)
	if err != nil {
		responses.HandleError(c, err, "failed to list messages")
		return
	}

	if page < 1 {
		page = 1
	}
	c.JSON(http.StatusOK, responses.MessageListResponse{
		WaID:     waID,
		Messages: messages,
		Page:     page,
		Count:    len(messages),
	})
}

// Send handles POST /api/conversations/:waId/messages
// @Summary Send a message
// @Description Stores an outgoing message authored by the business line
// @Tags Conversations
// @Accept json
// @Produce json
// @Param waId path string true "Conversation wa_id"
// @Param request body requests.SendMessageRequest true "Message body"
// @Success 201 {object} responses.SendMessageResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /api/conversations/{waId}/messages [post]
func (h *ConversationHandler) Send(c *gin.Context) {
	waID := strings.TrimSpace(c.Param("waId"))
	if waID == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "waId is required")
		return
	}

	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "text is required")
		return
	}

	msg, err := h.service.Send(c.Request.Context(), waID, req.Text)
	if err != nil {
		responses.HandleError(c, err, "failed to send message")
		return
	}

	c.JSON(http.StatusCreated, responses.SendMessageResponse{
		Success: true,
		Data:    msg,
	})
}

// Delete handles DELETE /api/conversations/:waId
// @Summary Delete a conversation
// @Description Removes every message belonging to the conversation
// @Tags Conversations
// @Produce json
// @Param waId path string true "Conversation wa_id"
// @Success 200 {object} responses.DeleteConversationResponse
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /api/conversations/{waId} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	waID := strings.TrimSpace(c.Param("waId"))
	if waID == "" {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "waId is required")
		return
	}

	count, err := h.service.Delete(c.Request.Context(), waID)
	if err != nil {
		responses.HandleError(c, err, "failed to delete conversation")
		return
	}

	c.JSON(http.StatusOK, responses.DeleteConversationResponse{
		Success:      true,
		DeletedCount: count,
	})
}

// Health handles GET /api/health
// @Summary Service health
// @Description Reports service and store health
// @Tags Health
// @Produce json
// @Success 200 {object} responses.HealthResponse
// @Failure 503 {object} responses.HealthResponse
// @Router /api/health [get]
func (h *ConversationHandler) Health(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("store health check failed")
		c.JSON(http.StatusServiceUnavailable, responses.HealthResponse{
			Status:  "unhealthy",
			Service: h.serviceName,
		})
		return
	}

	c.JSON(http.StatusOK, responses.HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
	})
}
