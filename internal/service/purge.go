package service

import (
	"context"
	"fmt"

	"github.com/Fi44er/number_rent_bot/internal/metrics"
)

type PurgeResult struct {
	Owners  []int64
	Deleted int64
}

// Purge is the end-of-day reset: every number owned by a non-staff user is
// deleted whatever its state. Users and settings are left alone.
func (s *Service) Purge(ctx context.Context) (*PurgeResult, error) {
	var result PurgeResult
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		keep, err := s.privilegedIDs(ctx)
		if err != nil {
			return err
		}
		result.Owners, result.Deleted, err = s.repo.PurgeNumbers(ctx, keep)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка очистки базы: %w", err)
	}

	s.logger.Infof("Очистка: удалено номеров %d у %d пользователей", result.Deleted, len(result.Owners))
	s.metrics.NumberEvents.WithLabelValues(metrics.EventPurged).Add(float64(result.Deleted))

	for _, owner := range result.Owners {
		s.notify(owner, "🧹 Ежедневная очистка: ваши номера удалены. Сдайте номера заново.", Keyboard{
			{{Text: "📱 Сдать номер", Data: Action(ActionSubmitNumbers, "")}},
		})
	}
	s.notifyAdmins(ctx, fmt.Sprintf("🧹 База очищена: удалено номеров %d, пользователей уведомлено %d.", result.Deleted, len(result.Owners)), nil)
	return &result, nil
}
