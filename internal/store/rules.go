package store

import (
	"context"
	"fmt"

	"evolution-gateway/internal/models"

	"gorm.io/gorm"
)

// RuleStore reads automation rules and writes execution logs. Rules are
// admin-authored through the dashboard API; the ingestion pipeline only ever
// reads them.
type RuleStore struct {
	db *gorm.DB
}

func NewRuleStore(db *gorm.DB) *RuleStore {
	return &RuleStore{db: db}
}

// ListActiveKeyword returns active keyword rules in creation order. The order
// is part of the matching contract: the first rule that matches wins.
func (s *RuleStore) ListActiveKeyword(ctx context.Context) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	err := s.db.WithContext(ctx).
		Where("active = ? AND trigger_type = ?", true, "keyword").
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("list automation rules: %w", err)
	}
	return rules, nil
}

// LogExecution records an automation attempt. Logging is best-effort and must
// not fail the pipeline, so the error is returned for the caller to log only.
func (s *RuleStore) LogExecution(ctx context.Context, entry *models.AutomationLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert automation log: %w", err)
	}
	return nil
}
