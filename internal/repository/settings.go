package repository

import (
	"context"
	"fmt"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/shopspring/decimal"
)

const settingsID = 1

// EnsureSettings seeds the single settings row if it is missing.
func (r *Repository) EnsureSettings(ctx context.Context, price decimal.Decimal, holdTime int) (*models.Settings, error) {
	settings := models.Settings{ID: settingsID}
	err := r.conn(ctx).
		Where(models.Settings{ID: settingsID}).
		Attrs(models.Settings{Price: price, HoldTime: holdTime}).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации настроек: %w", err)
	}
	return &settings, nil
}

func (r *Repository) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	if err := r.conn(ctx).First(&settings, settingsID).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	return &settings, nil
}

func (r *Repository) UpdatePrice(ctx context.Context, price decimal.Decimal) error {
	return r.updateSettings(ctx, "price", price)
}

func (r *Repository) UpdateHoldTime(ctx context.Context, minutes int) error {
	return r.updateSettings(ctx, "hold_time", minutes)
}

func (r *Repository) updateSettings(ctx context.Context, column string, value interface{}) error {
	tx := r.conn(ctx).Model(&models.Settings{}).Where("id = ?", settingsID).Update(column, value)
	if tx.Error != nil {
		return fmt.Errorf("ошибка обновления настройки %s: %w", column, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("настройки не инициализированы")
	}
	r.logger.Infof("Настройка %s обновлена: %v", column, value)
	return nil
}
