package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/models"
)

type SyncGormRepository struct {
	db *gorm.DB
}

func NewSyncGormRepository(db *gorm.DB) *SyncGormRepository {
	return &SyncGormRepository{db: db}
}

func (r *SyncGormRepository) GetConnection(
	ctx context.Context,
	ownerID uint,
	provider string,
) (*models.SyncConnection, error) {

	var conn models.SyncConnection
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND provider = ?", ownerID, provider).
		First(&conn).Error; err != nil {
		return nil, notFound(err, domain.ErrSyncNotConnected)
	}
	return &conn, nil
}

func (r *SyncGormRepository) SaveConnection(
	ctx context.Context,
	conn *models.SyncConnection,
) error {

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"connected",
				"calendar_id",
				"access_token",
				"refresh_token",
				"token_type",
				"token_expiry",
				"updated_at",
			}),
		}).
		Create(conn).Error
}

func (r *SyncGormRepository) ClearConnection(
	ctx context.Context,
	ownerID uint,
	provider string,
) error {

	return r.db.WithContext(ctx).
		Where("owner_id = ? AND provider = ?", ownerID, provider).
		Delete(&models.SyncConnection{}).Error
}

func (r *SyncGormRepository) MarkDisconnected(
	ctx context.Context,
	ownerID uint,
	provider string,
) error {

	return r.db.WithContext(ctx).
		Model(&models.SyncConnection{}).
		Where("owner_id = ? AND provider = ?", ownerID, provider).
		Updates(map[string]any{
			"connected":     false,
			"access_token":  "",
			"refresh_token": "",
		}).Error
}

func (r *SyncGormRepository) SaveSyncStats(
	ctx context.Context,
	ownerID uint,
	provider string,
	at time.Time,
	stats domain.SyncStats,
) error {

	return r.db.WithContext(ctx).
		Model(&models.SyncConnection{}).
		Where("owner_id = ? AND provider = ?", ownerID, provider).
		Updates(map[string]any{
			"last_sync_at": at,
			"last_created": stats.Created,
			"last_updated": stats.Updated,
			"last_skipped": stats.Skipped,
			"last_errors":  stats.Errors,
		}).Error
}

func (r *SyncGormRepository) ListConnected(
	ctx context.Context,
	provider string,
) ([]models.SyncConnection, error) {

	var conns []models.SyncConnection
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND connected = ?", provider, true).
		Order("owner_id ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Compile-time check
var _ domain.SyncRepository = (*SyncGormRepository)(nil)
