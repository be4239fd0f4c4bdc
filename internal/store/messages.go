package store

import (
	"context"
	"errors"
	"fmt"

	"evolution-gateway/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateMessage reports that a message with the same
// (instance, provider message id) pair is already stored. This is the
// expected outcome for a replayed webhook delivery, not a failure.
var ErrDuplicateMessage = errors.New("duplicate message")

// MessageStore persists message records.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Insert stores a message. Deduplication rides on the unique index over
// (instance_id, provider_message_id): a conflicting insert affects zero rows
// and surfaces as ErrDuplicateMessage. Messages without a provider id never
// conflict (NULLs are distinct in both sqlite and postgres).
func (s *MessageStore) Insert(ctx context.Context, message *models.Message) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instance_id"}, {Name: "provider_message_id"}},
			DoNothing: true,
		}).
		Create(message)
	if result.Error != nil {
		return fmt.Errorf("insert message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateMessage
	}
	return nil
}

// UpdateStatus records a delivery-status change reported by the provider.
func (s *MessageStore) UpdateStatus(ctx context.Context, instanceID, providerMessageID, status string) error {
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("instance_id = ? AND provider_message_id = ?", instanceID, providerMessageID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	return nil
}

// ListByConversation returns a conversation's messages in event order.
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
