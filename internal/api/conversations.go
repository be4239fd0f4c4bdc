package api

import (
	"net/http"

	"evolution-gateway/internal/store"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	Conversations *store.ConversationStore
	Messages      *store.MessageStore
}

func NewConversationHandler(conversations *store.ConversationStore, messages *store.MessageStore) *ConversationHandler {
	return &ConversationHandler{
		Conversations: conversations,
		Messages:      messages,
	}
}

// GetConversations returns all conversations with contact info, most recently
// active first.
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	summaries, err := h.Conversations.ListSummaries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if summaries == nil {
		summaries = []store.ConversationSummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

// GetMessages returns a conversation's messages in event order.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	conversationID := c.Param("id")

	messages, err := h.Messages.ListByConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// MarkRead resets a conversation's unread counter.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conversationID := c.Param("id")

	if err := h.Conversations.MarkRead(c.Request.Context(), conversationID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation marked as read"})
}
