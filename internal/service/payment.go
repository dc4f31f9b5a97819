package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fi44er/number_rent_bot/internal/models"
)

// ProcessPayments runs one payment tick: every active number whose hold has
// elapsed is closed and its owner credited the current price. Returns how
// many numbers were paid. A failing record is logged and skipped.
func (s *Service) ProcessPayments(ctx context.Context) (int, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения настроек: %w", err)
	}

	numbers, err := s.repo.ListPayable(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	paid := 0
	for i := range numbers {
		if err := ctx.Err(); err != nil {
			return paid, err
		}

		n := &numbers[i]
		credited, err := s.payNumber(ctx, n, settings, now)
		if err != nil {
			if errors.Is(err, ErrMalformedTimestamp) {
				s.logger.Warnf("Пропуск номера %s: %v", n.Number, err)
			} else {
				s.logger.Errorf("Ошибка оплаты номера %s: %v", n.Number, err)
			}
			continue
		}
		if !credited {
			continue
		}

		paid++
		s.metrics.Credit(settings.Price.InexactFloat64())
		s.logger.Infof("Номер %s отстоял %d мин., пользователю %d начислено %s", n.Number, settings.HoldTime, n.OwnerID, settings.Price)
		s.notify(n.OwnerID, fmt.Sprintf("💰 Номер %s отстоял холд. Начислено %s $.", n.Number, settings.Price), nil)
	}

	if paid > 0 {
		s.logger.Infof("Оплачено номеров: %d", paid)
	}
	return paid, nil
}

// payNumber closes and credits one record in a single transaction. The close
// only applies while the record is still open, so a concurrent failure report
// or a second tick makes it a no-op.
func (s *Service) payNumber(ctx context.Context, n *models.Number, settings *models.Settings, now time.Time) (bool, error) {
	if n.TakeState != models.TakeActivated || n.ActivatedAt == nil {
		return false, ErrMalformedTimestamp
	}
	if n.ElapsedMinutes(now) < float64(settings.HoldTime) {
		return false, nil
	}

	credited := false
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		rows, err := s.repo.MatureNumber(ctx, n.Number, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		if err := s.repo.AddBalance(ctx, n.OwnerID, settings.Price, now); err != nil {
			return err
		}
		credited = true
		return nil
	})
	return credited, err
}
