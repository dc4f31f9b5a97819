package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.conn(ctx).Create(withdrawal).Error
}

func (r *Repository) GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.conn(ctx).
		Where("status = ?", models.WithdrawalPending).
		Order("created_at ASC").
		Find(&withdrawals).
		Error

	if err != nil {
		return nil, fmt.Errorf("failed to get pending withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (r *Repository) GetWithdrawalByID(ctx context.Context, id uint) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := r.conn(ctx).
		Where("id = ?", id).
		First(&withdrawal).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get withdrawal by id %d: %w", id, err)
	}
	return &withdrawal, nil
}

// GetPendingWithdrawalByUserID ищет активный запрос на вывод пользователя.
func (r *Repository) GetPendingWithdrawalByUserID(ctx context.Context, userID int64) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	err := r.conn(ctx).
		Where("user_id = ? AND status = ?", userID, models.WithdrawalPending).
		First(&withdrawal).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorf("ошибка получения ожидающего вывода из БД для пользователя %d: %v", userID, err)
		return nil, fmt.Errorf("ошибка БД при поиске вывода: %w", err)
	}

	return &withdrawal, nil
}

// DeleteWithdrawal физически удаляет запись о выводе по ее ID.
// Ноль затронутых строк означает, что заявку уже обработал другой админ.
func (r *Repository) DeleteWithdrawal(ctx context.Context, id uint) (bool, error) {
	tx := r.conn(ctx).Delete(&models.Withdrawal{}, id)

	if tx.Error != nil {
		r.logger.Errorf("ошибка удаления вывода #%d из БД: %v", id, tx.Error)
		return false, fmt.Errorf("ошибка БД при удалении вывода: %w", tx.Error)
	}

	if tx.RowsAffected == 0 {
		return false, nil
	}

	r.logger.Infof("Запись о выводе #%d успешно удалена из БД", id)
	return true, nil
}
