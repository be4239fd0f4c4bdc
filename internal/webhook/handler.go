package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"evolution-gateway/internal/ingest"
	"evolution-gateway/internal/store"
	"evolution-gateway/internal/ws"
	"evolution-gateway/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler is the webhook entry point. It owns the ack contract with the
// provider: a syntactically valid envelope is always acknowledged with
// success, whatever happens downstream, because a provider retry cannot fix
// an internal failure and only amplifies load.
type Handler struct {
	Ingestor  *ingest.Ingestor
	Instances *store.InstanceStore
	Hub       *ws.Hub
	Timeout   time.Duration
}

func NewHandler(ingestor *ingest.Ingestor, instances *store.InstanceStore, hub *ws.Hub, timeout time.Duration) *Handler {
	return &Handler{
		Ingestor:  ingestor,
		Instances: instances,
		Hub:       hub,
		Timeout:   timeout,
	}
}

// eventHandlers maps event kinds to their pipeline. Adding an event kind is a
// table edit.
var eventHandlers = map[string]func(*Handler, context.Context, *models.WebhookEvent) error{
	models.EventMessagesUpsert:   (*Handler).handleMessagesUpsert,
	models.EventConnectionUpdate: (*Handler).handleConnectionUpdate,
	models.EventQRUpdated:        (*Handler).handleQRUpdate,
}

// HandleEvent processes one webhook delivery.
func (h *Handler) HandleEvent(c *gin.Context) {
	var event models.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		logrus.WithError(err).Warn("Malformed webhook envelope")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	handle, ok := eventHandlers[event.Event]
	if !ok {
		logrus.WithField("event", event.Event).Info("Unhandled event type")
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
	defer cancel()

	if err := handle(h, ctx, &event); err != nil {
		// Logged with the payload so an operator can replay the event.
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":    event.Event,
			"instance": event.Instance,
			"payload":  string(event.Data),
		}).Error("Webhook processing failed")
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) handleMessagesUpsert(ctx context.Context, event *models.WebhookEvent) error {
	var data models.MessageEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode messages.upsert data: %w", err)
	}
	if data.Key.RemoteJid == "" {
		return fmt.Errorf("messages.upsert without remoteJid")
	}

	_, err := h.Ingestor.ProcessMessage(ctx, event.Instance, &data)
	return err
}

func (h *Handler) handleConnectionUpdate(ctx context.Context, event *models.WebhookEvent) error {
	var data models.ConnectionEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode connection.update data: %w", err)
	}

	if err := h.Instances.ApplyConnectionUpdate(ctx, event.Instance, data.State); err != nil {
		return err
	}
	h.notifyInstance(ctx, event.Instance)
	return nil
}

func (h *Handler) handleQRUpdate(ctx context.Context, event *models.WebhookEvent) error {
	var data models.QREventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode qr.updated data: %w", err)
	}

	if err := h.Instances.ApplyQRUpdate(ctx, event.Instance, data.QR); err != nil {
		return err
	}
	h.notifyInstance(ctx, event.Instance)
	return nil
}

func (h *Handler) notifyInstance(ctx context.Context, instanceID string) {
	if h.Hub == nil {
		return
	}
	state, err := h.Instances.Get(ctx, instanceID)
	if err != nil {
		return
	}
	h.Hub.NotifyInstanceState(*state)
}
