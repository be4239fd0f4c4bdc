package models

import (
	"encoding/json"
	"strings"
)

// Recognized webhook event kinds.
const (
	EventMessagesUpsert   = "messages.upsert"
	EventConnectionUpdate = "connection.update"
	EventQRUpdated        = "qr.updated"
)

// WebhookEvent is the envelope the Evolution API posts for every event.
// Data stays raw until the event kind is known.
type WebhookEvent struct {
	Event    string          `json:"event" binding:"required"`
	Instance string          `json:"instance" binding:"required"`
	Data     json.RawMessage `json:"data"`
}

// NormalizePhone strips the transport suffix from a remote JID
// ("5511999999999@s.whatsapp.net" -> "5511999999999").
func NormalizePhone(remoteJid string) string {
	if i := strings.Index(remoteJid, "@"); i >= 0 {
		return remoteJid[:i]
	}
	return remoteJid
}

// MessageKey identifies a message within an instance.
type MessageKey struct {
	RemoteJid string `json:"remoteJid"`
	ID        string `json:"id"`
	FromMe    bool   `json:"fromMe"`
}

// MessageContent carries the provider's message sub-payloads. Media payloads
// are kept raw; only their presence matters for kind classification.
type MessageContent struct {
	Conversation        string          `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedText   `json:"extendedTextMessage,omitempty"`
	ImageMessage        json.RawMessage `json:"imageMessage,omitempty"`
	VideoMessage        json.RawMessage `json:"videoMessage,omitempty"`
	AudioMessage        json.RawMessage `json:"audioMessage,omitempty"`
	DocumentMessage     json.RawMessage `json:"documentMessage,omitempty"`
}

type ExtendedText struct {
	Text string `json:"text"`
}

// MessageEventData is the payload of a messages.upsert event.
type MessageEventData struct {
	Key              MessageKey      `json:"key"`
	PushName         string          `json:"pushName,omitempty"`
	Message          *MessageContent `json:"message"`
	MessageTimestamp int64           `json:"messageTimestamp"`
}

// Text returns the plain or extended text body, empty for media-only messages.
func (d *MessageEventData) Text() string {
	if d.Message == nil {
		return ""
	}
	if d.Message.Conversation != "" {
		return d.Message.Conversation
	}
	if d.Message.ExtendedTextMessage != nil {
		return d.Message.ExtendedTextMessage.Text
	}
	return ""
}

// ConnectionEventData is the payload of a connection.update event.
type ConnectionEventData struct {
	State string `json:"state"`
}

// QREventData is the payload of a qr.updated event.
type QREventData struct {
	QR string `json:"qr"`
}
