package repositories

import (
	"context"
	"time"

	"github.com/streamify-app/backend/internal/models"
	"gorm.io/gorm"
)

// SyncEventRepository defines the interface for the chat sync ledger
type SyncEventRepository interface {
	Record(ctx context.Context, event *models.ChatSyncEvent) error
	GetUnresolved(ctx context.Context, limit int) ([]models.ChatSyncEvent, error)
	MarkResolved(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, reason string) error
}

type postgresSyncEventRepository struct {
	db *gorm.DB
}

func NewPostgresSyncEventRepository(db *gorm.DB) SyncEventRepository {
	return &postgresSyncEventRepository{db: db}
}

// MigrateSyncEvents creates or updates the ledger table.
func MigrateSyncEvents(db *gorm.DB) error {
	return db.AutoMigrate(&models.ChatSyncEvent{})
}

func (r *postgresSyncEventRepository) Record(ctx context.Context, event *models.ChatSyncEvent) error {
	if event.Attempts == 0 {
		event.Attempts = 1
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *postgresSyncEventRepository) GetUnresolved(ctx context.Context, limit int) ([]models.ChatSyncEvent, error) {
	var events []models.ChatSyncEvent
	err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *postgresSyncEventRepository) MarkResolved(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ChatSyncEvent{}).
		Where("id = ?", id).
		Update("resolved_at", time.Now().UTC()).Error
}

// MarkFailed bumps the attempt counter and keeps the latest failure reason.
func (r *postgresSyncEventRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).Model(&models.ChatSyncEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts": gorm.Expr("attempts + ?", 1),
			"error":    reason,
		}).Error
}
