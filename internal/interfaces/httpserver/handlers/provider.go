package handlers

import (
	"github.com/rs/zerolog"

	"wachat-server/internal/domain/conversation"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Webhook      *WebhookHandler
	Conversation *ConversationHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(conversationService conversation.Service, serviceName string, log zerolog.Logger) *Provider {
	return &Provider{
		Webhook:      NewWebhookHandler(conversationService, log),
		Conversation: NewConversationHandler(conversationService, serviceName, log),
	}
}
