package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"wachat-server/internal/domain/conversation"
	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/domain/webhook"
	"wachat-server/internal/infrastructure/metrics"
	"wachat-server/internal/infrastructure/observability"
	"wachat-server/internal/interfaces/httpserver/responses"
	"wachat-server/internal/utils/platformerrors"
)

// WebhookHandler receives provider webhook envelopes.
type WebhookHandler struct {
	service conversation.Service
	log     zerolog.Logger
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(service conversation.Service, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With().Str("handler", "webhook").Logger(),
	}
}

// Receive handles POST /api/webhook
// @Summary Ingest a webhook envelope
// @Description Normalizes a provider envelope into a message insert or status update and reconciles it against the store
// @Tags Webhook
// @Accept json
// @Produce json
// @Param envelope body webhook.Envelope true "Webhook envelope"
// @Success 200 {object} responses.WebhookAck
// @Failure 400 {object} responses.ErrorResponse
// @Failure 500 {object} responses.ErrorResponse
// @Router /api/webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	ctx, span := observability.StartSpan(c.Request.Context(), "webhook.receive")
	defer span.End()

	var env webhook.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "malformed webhook envelope")
		return
	}

	outcome, err := h.service.ProcessEnvelope(ctx, &env)
	if err != nil {
		metrics.RecordEnvelope("unknown", "rejected")
		responses.HandleError(c, err, "failed to process webhook envelope")
		return
	}

	metrics.RecordEnvelope(intentLabel(outcome.Kind), string(outcome.Kind))
	h.log.Debug().Str("outcome", string(outcome.Kind)).Msg("envelope processed")

	c.JSON(http.StatusOK, responses.AckFromOutcome(outcome))
}

func intentLabel(kind reconcile.OutcomeKind) string {
	switch kind {
	case reconcile.OutcomeInserted, reconcile.OutcomeDuplicate:
		return "message"
	case reconcile.OutcomeStatusChanged, reconcile.OutcomeNoMatch:
		return "status"
	default:
		return "unknown"
	}
}
