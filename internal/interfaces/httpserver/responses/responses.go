package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/utils/platformerrors"
)

// ErrorResponse represents an error response with platform error details
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	ErrorInstance error  `json:"-"`
	RequestID     string `json:"request_id,omitempty"`
}

// HandleError handles domain errors and returns appropriate HTTP responses
func HandleError(reqCtx *gin.Context, err error, msg string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(domainErr.GetErrorType())

		errResp := ErrorResponse{
			Error:         msg,
			Message:       msg,
			ErrorInstance: domainErr,
			RequestID:     domainErr.GetRequestID(),
		}

		reqCtx.AbortWithStatusJSON(statusCode, errResp)
		return
	}
	// Non-platform errors
	errResp := ErrorResponse{
		Error:         msg,
		Message:       msg,
		ErrorInstance: err,
	}
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
}

// HandleNewError creates a new typed error at the route layer and handles it
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, msg string) {
	ctx := reqCtx.Request.Context()
	err := platformerrors.NewError(ctx, platformerrors.LayerHandler, errorType, msg, nil)

	statusCode := platformerrors.ErrorTypeToHTTPStatus(err.GetErrorType())

	errResp := ErrorResponse{
		Error:         msg,
		Message:       msg,
		ErrorInstance: err,
		RequestID:     err.GetRequestID(),
	}

	reqCtx.AbortWithStatusJSON(statusCode, errResp)
}

// WebhookAck tells the sender how an envelope was reconciled.
type WebhookAck struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
}

// AckFromOutcome maps a reconciliation outcome to the webhook acknowledgement.
func AckFromOutcome(outcome reconcile.Outcome) WebhookAck {
	return WebhookAck{
		Status:  "processed",
		Outcome: string(outcome.Kind),
	}
}

// ConversationListResponse wraps the conversation aggregates.
type ConversationListResponse struct {
	Conversations []message.Conversation `json:"conversations"`
	Count         int                    `json:"count"`
}

// MessageListResponse is one ascending page of a conversation.
type MessageListResponse struct {
	WaID     string            `json:"waId"`
	Messages []message.Message `json:"messages"`
	Page     int               `json:"page"`
	Count    int               `json:"count"`
}

// SendMessageResponse echoes the stored outgoing message.
type SendMessageResponse struct {
	Success bool             `json:"success"`
	Data    *message.Message `json:"data"`
}

// DeleteConversationResponse reports how many messages were removed.
type DeleteConversationResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deletedCount"`
}

// HealthResponse reports service and store health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
