package ingest

import (
	"context"
	"errors"
	"time"

	"evolution-gateway/internal/automation"
	"evolution-gateway/internal/models"
	"evolution-gateway/internal/store"
	"evolution-gateway/internal/ws"
	wire "evolution-gateway/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Ingestor turns messages.upsert events into durable conversation state:
// contact resolution, conversation resolution, deduplicated message insert,
// atomic conversation aggregate update, then the automation hand-off.
type Ingestor struct {
	contacts      *store.ContactStore
	conversations *store.ConversationStore
	messages      *store.MessageStore
	engine        *automation.Engine
	hub           *ws.Hub
}

func NewIngestor(
	contacts *store.ContactStore,
	conversations *store.ConversationStore,
	messages *store.MessageStore,
	engine *automation.Engine,
	hub *ws.Hub,
) *Ingestor {
	return &Ingestor{
		contacts:      contacts,
		conversations: conversations,
		messages:      messages,
		engine:        engine,
		hub:           hub,
	}
}

// Result reports what a ProcessMessage call did.
type Result struct {
	Duplicate    bool
	Message      *models.Message
	Conversation *models.Conversation
	Action       *automation.Action
}

// ProcessMessage ingests one messages.upsert payload. A replayed delivery
// (same instance and provider message id) returns Duplicate without touching
// the conversation or the automation engine: the unique index on the messages
// table is the idempotency boundary.
func (i *Ingestor) ProcessMessage(ctx context.Context, instanceID string, event *wire.MessageEventData) (*Result, error) {
	contact, err := i.contacts.Resolve(ctx, event.Key.RemoteJid, event.PushName)
	if err != nil {
		return nil, err
	}

	conversation, err := i.conversations.Resolve(ctx, contact.ID, instanceID)
	if err != nil {
		return nil, err
	}

	direction := models.DirectionIncoming
	if event.Key.FromMe {
		direction = models.DirectionOutgoing
	}

	message := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		InstanceID:     instanceID,
		Content:        event.Text(),
		Kind:           classifyKind(event.Message),
		Direction:      direction,
		Status:         "delivered",
		Timestamp:      time.Unix(event.MessageTimestamp, 0).UTC(),
	}
	if event.Key.ID != "" {
		providerID := event.Key.ID
		message.ProviderMessageID = &providerID
	}

	if err := i.messages.Insert(ctx, message); err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			logrus.WithFields(logrus.Fields{
				"instance":   instanceID,
				"message_id": event.Key.ID,
			}).Debug("Duplicate delivery ignored")
			return &Result{Duplicate: true, Conversation: conversation}, nil
		}
		return nil, err
	}

	incoming := direction == models.DirectionIncoming
	if err := i.conversations.ApplyMessage(ctx, conversation.ID, message.Content, message.Timestamp, incoming); err != nil {
		return nil, err
	}

	result := &Result{Message: message, Conversation: conversation}

	if i.hub != nil {
		i.hub.NotifyMessage(*message)
	}

	if incoming && i.engine != nil && message.Content != "" {
		action, err := i.engine.ProcessIncomingMessage(ctx, conversation.ID, instanceID, event.Key.RemoteJid, message.Content)
		if err != nil {
			// The message is already durable; automation failures stay local.
			logrus.WithError(err).WithField("conversation", conversation.ID).
				Error("Automation evaluation failed")
		} else {
			result.Action = action
		}
	}

	return result, nil
}

// IngestOutbound records a message this gateway sent itself (dashboard
// composer). It flows through the same dedup and aggregate path as webhook
// traffic, so the provider's later fromMe echo of the same message is
// absorbed as a duplicate.
func (i *Ingestor) IngestOutbound(ctx context.Context, instanceID, recipientJid, text, providerMessageID string) (*Result, error) {
	event := &wire.MessageEventData{
		Key: wire.MessageKey{
			RemoteJid: recipientJid,
			ID:        providerMessageID,
			FromMe:    true,
		},
		Message:          &wire.MessageContent{Conversation: text},
		MessageTimestamp: time.Now().Unix(),
	}
	return i.ProcessMessage(ctx, instanceID, event)
}

// classifyKind maps the provider's sub-payloads onto a message kind. Text
// wins when a text body is present; otherwise the first media sub-payload
// decides, and anything unrecognized falls back to text.
func classifyKind(content *wire.MessageContent) string {
	if content == nil {
		return models.KindText
	}
	if content.Conversation != "" || content.ExtendedTextMessage != nil {
		return models.KindText
	}
	switch {
	case len(content.ImageMessage) > 0:
		return models.KindImage
	case len(content.VideoMessage) > 0:
		return models.KindVideo
	case len(content.AudioMessage) > 0:
		return models.KindAudio
	case len(content.DocumentMessage) > 0:
		return models.KindDocument
	}
	return models.KindText
}
