package store

import (
	"context"
	"fmt"
	"time"

	"evolution-gateway/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationStore resolves and mutates conversation threads.
type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Resolve returns the conversation for the (contact, instance) pair, creating
// it if absent. Same create-race discipline as ContactStore.Resolve: the
// unique index over (contact_id, instance_id) arbitrates concurrent creates.
func (s *ConversationStore) Resolve(ctx context.Context, contactID, instanceID string) (*models.Conversation, error) {
	create := models.Conversation{
		ID:         uuid.NewString(),
		ContactID:  contactID,
		InstanceID: instanceID,
		Status:     "active",
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contact_id"}, {Name: "instance_id"}},
			DoNothing: true,
		}).
		Create(&create).Error
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	var conversation models.Conversation
	err = s.db.WithContext(ctx).
		Where("contact_id = ? AND instance_id = ?", contactID, instanceID).
		First(&conversation).Error
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	return &conversation, nil
}

// ApplyMessage folds a stored message into the conversation aggregate in a
// single UPDATE: the unread counter is incremented (incoming) or reset
// (outgoing) relative to the stored value, and the last-message snapshot only
// advances when the message timestamp is not older than the stored one. Both
// guards live in the same statement so concurrent deliveries cannot interleave
// between a read and a write.
func (s *ConversationStore) ApplyMessage(ctx context.Context, conversationID, content string, timestamp time.Time, incoming bool) error {
	updates := map[string]interface{}{
		"last_message": gorm.Expr(
			"CASE WHEN last_message_at IS NULL OR last_message_at <= ? THEN ? ELSE last_message END",
			timestamp, content),
		"last_message_at": gorm.Expr(
			"CASE WHEN last_message_at IS NULL OR last_message_at <= ? THEN ? ELSE last_message_at END",
			timestamp, timestamp),
		"updated_at": time.Now().UTC(),
	}
	if incoming {
		updates["unread_count"] = gorm.Expr("unread_count + 1")
	} else {
		updates["unread_count"] = 0
	}

	err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("apply message to conversation: %w", err)
	}
	return nil
}

// MarkRead resets the unread counter.
func (s *ConversationStore) MarkRead(ctx context.Context, conversationID string) error {
	err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("unread_count", 0).Error
	if err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	return nil
}

// Get loads one conversation by id.
func (s *ConversationStore) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := s.db.WithContext(ctx).First(&conversation, "id = ?", conversationID).Error; err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return &conversation, nil
}

// ConversationSummary is a conversation joined with its contact, shaped for
// the dashboard sidebar.
type ConversationSummary struct {
	models.Conversation
	ContactPhone string `json:"contact_phone"`
	ContactName  string `json:"contact_name"`
}

// ListSummaries returns all conversations with contact info, most recently
// active first.
func (s *ConversationStore) ListSummaries(ctx context.Context) ([]ConversationSummary, error) {
	var summaries []ConversationSummary
	err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Select("conversations.*, contacts.phone AS contact_phone, contacts.name AS contact_name").
		Joins("JOIN contacts ON contacts.id = conversations.contact_id").
		Order("conversations.last_message_at DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return summaries, nil
}
