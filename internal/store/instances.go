package store

import (
	"context"
	"fmt"
	"time"

	"evolution-gateway/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstanceStore tracks per-instance connection state. Every update is an
// unconditional upsert: the provider's state machine is authoritative and no
// transition legality is checked here.
type InstanceStore struct {
	db *gorm.DB
}

func NewInstanceStore(db *gorm.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

// ApplyConnectionUpdate records the status reported by a connection.update
// event and refreshes the last-seen timestamp.
func (s *InstanceStore) ApplyConnectionUpdate(ctx context.Context, instanceID, status string) error {
	now := time.Now().UTC()
	state := models.InstanceConnectionState{
		InstanceID: instanceID,
		Status:     status,
		LastSeenAt: now,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instance_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":       status,
				"last_seen_at": now,
			}),
		}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("apply connection update: %w", err)
	}
	return nil
}

// ApplyQRUpdate stores a fresh QR payload and moves the instance into the
// qr_code state, mirroring the provider's pairing flow.
func (s *InstanceStore) ApplyQRUpdate(ctx context.Context, instanceID, qrPayload string) error {
	now := time.Now().UTC()
	state := models.InstanceConnectionState{
		InstanceID: instanceID,
		Status:     "qr_code",
		QRCode:     qrPayload,
		LastSeenAt: now,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "instance_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":       "qr_code",
				"qr_code":      qrPayload,
				"last_seen_at": now,
			}),
		}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("apply qr update: %w", err)
	}
	return nil
}

// Get loads one instance's connection state.
func (s *InstanceStore) Get(ctx context.Context, instanceID string) (*models.InstanceConnectionState, error) {
	var state models.InstanceConnectionState
	if err := s.db.WithContext(ctx).First(&state, "instance_id = ?", instanceID).Error; err != nil {
		return nil, fmt.Errorf("load instance state: %w", err)
	}
	return &state, nil
}

// List returns the connection state of every known instance.
func (s *InstanceStore) List(ctx context.Context) ([]models.InstanceConnectionState, error) {
	var states []models.InstanceConnectionState
	if err := s.db.WithContext(ctx).Order("instance_id ASC").Find(&states).Error; err != nil {
		return nil, fmt.Errorf("list instance states: %w", err)
	}
	return states, nil
}
