package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.getUser(ctx, telegramID, false)
}

// GetUserForUpdate locks the row until the surrounding transaction ends (postgres only).
func (r *Repository) GetUserForUpdate(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.getUser(ctx, telegramID, true)
}

func (r *Repository) getUser(ctx context.Context, telegramID int64, lock bool) (*models.User, error) {
	q := r.conn(ctx)
	if lock && r.isPostgres() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var user models.User
	err := q.First(&user, "telegram_id = ?", telegramID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// EnsureUser registers the user once; later calls are no-ops.
func (r *Repository) EnsureUser(ctx context.Context, telegramID int64, regDate time.Time) error {
	user := &models.User{TelegramID: telegramID, Balance: decimal.Zero, RegDate: regDate}
	return r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error
}

// AddBalance credits amount, creating the user row when it does not exist yet.
func (r *Repository) AddBalance(ctx context.Context, telegramID int64, amount decimal.Decimal, at time.Time) error {
	user := &models.User{TelegramID: telegramID, Balance: amount, RegDate: at}
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
		}),
	}).Create(user).Error
	if err != nil {
		r.logger.Errorf("ошибка начисления %s пользователю %d: %v", amount, telegramID, err)
		return fmt.Errorf("ошибка БД при начислении баланса: %w", err)
	}
	return nil
}

// UpdateUserBalance обновляет поле 'balance' у пользователя по его telegram_id.
func (r *Repository) UpdateUserBalance(ctx context.Context, userID int64, newBalance decimal.Decimal) error {
	tx := r.conn(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", userID).
		Update("balance", newBalance)

	if tx.Error != nil {
		r.logger.Errorf("ошибка обновления баланса для пользователя %d в БД: %v", userID, tx.Error)
		return fmt.Errorf("ошибка БД при обновлении баланса: %w", tx.Error)
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf("пользователь с telegram_id %d не найден для обновления баланса", userID)
	}

	r.logger.Infof("Баланс пользователя %d обновлен на %s", userID, newBalance)
	return nil
}

func (r *Repository) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.conn(ctx).Model(&models.User{}).Order("telegram_id ASC").Pluck("telegram_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения пользователей: %w", err)
	}
	return ids, nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
