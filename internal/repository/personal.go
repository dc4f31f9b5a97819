package repository

import (
	"context"
	"fmt"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"gorm.io/gorm/clause"
)

func (r *Repository) HasPersonal(ctx context.Context, telegramID int64, kind models.PersonalType) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&models.Personal{}).
		Where("telegram_id = ? AND type = ?", telegramID, kind).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("ошибка проверки персонала %d: %w", telegramID, err)
	}
	return count > 0, nil
}

// AddPersonal stores or retypes a staff member.
func (r *Repository) AddPersonal(ctx context.Context, telegramID int64, kind models.PersonalType) error {
	p := models.Personal{TelegramID: telegramID, Type: kind}
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("ошибка добавления персонала %d: %w", telegramID, err)
	}
	return nil
}

func (r *Repository) DeletePersonal(ctx context.Context, telegramID int64, kind models.PersonalType) (bool, error) {
	tx := r.conn(ctx).Where("telegram_id = ? AND type = ?", telegramID, kind).Delete(&models.Personal{})
	if tx.Error != nil {
		return false, fmt.Errorf("ошибка удаления персонала %d: %w", telegramID, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (r *Repository) ListPersonal(ctx context.Context, kind models.PersonalType) ([]int64, error) {
	var ids []int64
	err := r.conn(ctx).Model(&models.Personal{}).Where("type = ?", kind).Order("telegram_id ASC").Pluck("telegram_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка получения персонала: %w", err)
	}
	return ids, nil
}

// ListStaffIDs returns every admin and moderator stored in the table.
func (r *Repository) ListStaffIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.conn(ctx).Model(&models.Personal{}).Pluck("telegram_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения персонала: %w", err)
	}
	return ids, nil
}
