package store

import (
	"context"
	"fmt"

	"evolution-gateway/internal/models"
	wire "evolution-gateway/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContactStore resolves phone identifiers to contact rows.
type ContactStore struct {
	db *gorm.DB
}

func NewContactStore(db *gorm.DB) *ContactStore {
	return &ContactStore{db: db}
}

// Resolve returns the contact for the given remote JID, creating it if absent.
// Creation goes through an insert-on-conflict-do-nothing against the unique
// phone index, so concurrent resolutions of an unseen number converge on a
// single row. A non-empty observed name that differs from the stored one is
// written back with a conditional update.
func (s *ContactStore) Resolve(ctx context.Context, remoteJid, observedName string) (*models.Contact, error) {
	phone := wire.NormalizePhone(remoteJid)

	name := observedName
	if name == "" {
		name = phone
	}

	create := models.Contact{
		ID:     uuid.NewString(),
		Phone:  phone,
		Name:   name,
		Source: "whatsapp",
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone"}},
			DoNothing: true,
		}).
		Create(&create).Error
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}

	var contact models.Contact
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&contact).Error; err != nil {
		return nil, fmt.Errorf("load contact: %w", err)
	}

	if observedName != "" && contact.Name != observedName {
		err := s.db.WithContext(ctx).Model(&models.Contact{}).
			Where("phone = ? AND name <> ?", phone, observedName).
			Update("name", observedName).Error
		if err != nil {
			return nil, fmt.Errorf("update contact name: %w", err)
		}
		contact.Name = observedName
	}

	return &contact, nil
}

// List returns all contacts, newest first.
func (s *ContactStore) List(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}
