package api

import (
	"net/http"

	"evolution-gateway/internal/evolution"
	"evolution-gateway/internal/ingest"
	"evolution-gateway/internal/models"
	"evolution-gateway/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	DB        *gorm.DB
	Client    *evolution.Client
	Ingestor  *ingest.Ingestor
	Instances *store.InstanceStore
}

func NewDashboardHandler(db *gorm.DB, client *evolution.Client, ingestor *ingest.Ingestor, instances *store.InstanceStore) *DashboardHandler {
	return &DashboardHandler{
		DB:        db,
		Client:    client,
		Ingestor:  ingestor,
		Instances: instances,
	}
}

// GetStats returns the dashboard headline counts.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	var stats struct {
		Conversations int64 `json:"conversations"`
		Contacts      int64 `json:"contacts"`
		Messages      int64 `json:"messages"`
		UnreadTotal   int64 `json:"unread_total"`
	}

	h.DB.Model(&models.Conversation{}).Count(&stats.Conversations)
	h.DB.Model(&models.Contact{}).Count(&stats.Contacts)
	h.DB.Model(&models.Message{}).Count(&stats.Messages)
	h.DB.Model(&models.Conversation{}).
		Select("COALESCE(SUM(unread_count), 0)").Scan(&stats.UnreadTotal)

	c.JSON(http.StatusOK, stats)
}

// GetInstances returns the connection state of every known instance.
func (h *DashboardHandler) GetInstances(c *gin.Context) {
	states, err := h.Instances.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if states == nil {
		states = []models.InstanceConnectionState{}
	}
	c.JSON(http.StatusOK, states)
}

type sendRequest struct {
	Instance string `json:"instance" binding:"required"`
	Number   string `json:"number" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

// SendMessage sends a user-composed text through the provider, then records
// the outgoing message through the same ingest pipeline webhook traffic uses.
// The provider's fromMe echo of this message dedups against the stored row.
func (h *DashboardHandler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	resp, err := h.Client.SendText(ctx, req.Instance, req.Number, req.Message)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message: " + err.Error()})
		return
	}

	result, err := h.Ingestor.IngestOutbound(ctx, req.Instance, req.Number, req.Message, resp.Key.ID)
	if err != nil {
		// Sent but not recorded; the provider's webhook echo will fill the gap.
		c.JSON(http.StatusOK, gin.H{"message": "Message sent", "provider_message_id": resp.Key.ID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Message sent",
		"provider_message_id": resp.Key.ID,
		"conversation_id":     result.Conversation.ID,
	})
}
