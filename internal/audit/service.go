package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	EntityKey   string
	Action      models.AuditAction
	Description string
	After       any
}

type Filter struct {
	EntityType string
	EntityID   uint
	EntityKey  string
	UserID     uint
	Limit      int
}

// Service appends to the audit trail. Entries are never updated or removed.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Write(ctx context.Context, opts LogOptions) error {
	// jsonb rejects an empty string, so absent data is stored as JSON null
	afterStr := "null"
	if opts.After != nil {
		b, err := json.Marshal(opts.After)
		if err != nil {
			return fmt.Errorf("encode audit data for %s: %w", opts.EntityType, err)
		}
		afterStr = string(b)
	}

	if actor, ok := ActorFrom(ctx); ok && opts.UserID == 0 {
		opts.UserID, opts.UserName = actor.UserID, actor.Name
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		EntityKey:   opts.EntityKey,
		Action:      opts.Action,
		Description: opts.Description,
		AfterData:   afterStr,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// List returns the newest entries first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.EntityKey != "" {
		q = q.Where("entity_key = ?", f.EntityKey)
	}
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
