package requests

// SendMessageRequest is the body for sending a message into a conversation.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}
