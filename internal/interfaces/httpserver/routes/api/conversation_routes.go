package api

import (
	"github.com/gin-gonic/gin"

	"wachat-server/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.GET("/conversations", handler.List)
	router.GET("/conversations/:waId/messages", handler.Messages)
	router.POST("/conversations/:waId/messages", handler.Send)
	router.DELETE("/conversations/:waId", handler.Delete)
	router.GET("/health", handler.Health)
}
