package models

import (
	"encoding/json"
	"time"
)

// Message directions.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Message kinds.
const (
	KindText     = "text"
	KindImage    = "image"
	KindVideo    = "video"
	KindAudio    = "audio"
	KindDocument = "document"
)

// Contact is the identity anchor for a remote party. The phone number is the
// natural key; webhook replays and concurrent deliveries converge on it.
type Contact struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Phone     string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"phone"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Source    string    `gorm:"type:varchar(50);default:'whatsapp'" json:"source"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Conversation is the thread between one contact and one gateway instance.
type Conversation struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ContactID     string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_conversations_contact_instance" json:"contact_id"`
	InstanceID    string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_conversations_contact_instance" json:"instance_id"`
	Status        string     `gorm:"type:varchar(20);default:'active'" json:"status"`
	UnreadCount   int        `gorm:"not null;default:0" json:"unread_count"`
	LastMessage   string     `gorm:"type:text" json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message is one immutable record of a sent or received message. The unique
// index over (instance_id, provider_message_id) is the dedup key for replayed
// webhook deliveries; provider_message_id is NULL for locally originated
// messages that have not been acknowledged by the provider yet.
type Message struct {
	ID                string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID    string    `gorm:"type:varchar(36);not null;index" json:"conversation_id"`
	InstanceID        string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_messages_dedup" json:"instance_id"`
	ProviderMessageID *string   `gorm:"type:varchar(255);uniqueIndex:idx_messages_dedup" json:"provider_message_id"`
	Content           string    `gorm:"type:text" json:"content"`
	Kind              string    `gorm:"type:varchar(20)" json:"kind"`
	Direction         string    `gorm:"type:varchar(10);not null" json:"direction"`
	Status            string    `gorm:"type:varchar(20)" json:"status"`
	MediaURL          string    `gorm:"type:text" json:"media_url"`
	Timestamp         time.Time `gorm:"not null;index" json:"timestamp"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// AutomationRule is an admin-authored keyword trigger. TriggerKeywords holds a
// JSON array of strings; keyword order inside a rule is not significant, rule
// order (creation order) is.
type AutomationRule struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	Active          bool      `gorm:"not null;default:false" json:"active"`
	TriggerType     string    `gorm:"type:varchar(50);default:'keyword'" json:"trigger_type"`
	TriggerKeywords string    `gorm:"type:text" json:"trigger_keywords"`
	ResponseMessage string    `gorm:"type:text" json:"response_message"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AutomationRule) TableName() string {
	return "automation_rules"
}

// Keywords decodes the stored JSON keyword array. A malformed value matches
// nothing rather than failing the whole evaluation pass.
func (r *AutomationRule) Keywords() []string {
	var keywords []string
	if err := json.Unmarshal([]byte(r.TriggerKeywords), &keywords); err != nil {
		return nil
	}
	return keywords
}

// AutomationLog records one automation execution attempt.
type AutomationLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RuleID         uint      `json:"rule_id"`
	ConversationID string    `gorm:"type:varchar(36);index" json:"conversation_id"`
	Recipient      string    `gorm:"type:varchar(100)" json:"recipient"`
	ActionTaken    string    `gorm:"type:text" json:"action_taken"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AutomationLog) TableName() string {
	return "automation_logs"
}

// InstanceConnectionState is the authoritative current connectivity snapshot
// for one gateway instance. No history is kept; every connection/QR event
// overwrites the row.
type InstanceConnectionState struct {
	InstanceID  string    `gorm:"type:varchar(100);primaryKey" json:"instance_id"`
	Status      string    `gorm:"type:varchar(50)" json:"status"`
	QRCode      string    `gorm:"type:text" json:"qr_code"`
	PhoneNumber string    `gorm:"type:varchar(50)" json:"phone_number"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InstanceConnectionState) TableName() string {
	return "instance_connection_state"
}
