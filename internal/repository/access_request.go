package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetAccessRequest(ctx context.Context, telegramID int64) (*models.AccessRequest, error) {
	var req models.AccessRequest
	err := r.conn(ctx).First(&req, "telegram_id = ?", telegramID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка получения заявки %d: %w", telegramID, err)
	}
	return &req, nil
}

// SaveAccessRequest inserts the request or overwrites the previous one.
func (r *Repository) SaveAccessRequest(ctx context.Context, req *models.AccessRequest) error {
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_request", "status"}),
	}).Create(req).Error
	if err != nil {
		return fmt.Errorf("ошибка сохранения заявки %d: %w", req.TelegramID, err)
	}
	return nil
}

// SetAccessStatus resolves a pending request; false when it is no longer pending.
func (r *Repository) SetAccessStatus(ctx context.Context, telegramID int64, status models.AccessStatus) (bool, error) {
	tx := r.conn(ctx).Model(&models.AccessRequest{}).
		Where("telegram_id = ? AND status = ?", telegramID, models.AccessPending).
		Update("status", status)
	if tx.Error != nil {
		return false, fmt.Errorf("ошибка обновления заявки %d: %w", telegramID, tx.Error)
	}
	return tx.RowsAffected == 1, nil
}
