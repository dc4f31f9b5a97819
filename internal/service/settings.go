package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func (s *Service) UpdatePrice(ctx context.Context, adminID int64, raw string) (decimal.Decimal, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := s.repo.UpdatePrice(ctx, price); err != nil {
		return decimal.Zero, err
	}
	s.logger.Infof("Админ %d изменил цену на %s", adminID, price)
	return price, nil
}

func (s *Service) UpdateHoldTime(ctx context.Context, adminID int64, raw string) (int, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || minutes <= 0 {
		return 0, ErrInvalidHoldTime
	}
	if err := s.repo.UpdateHoldTime(ctx, minutes); err != nil {
		return 0, err
	}
	s.logger.Infof("Админ %d изменил холд на %d мин.", adminID, minutes)
	return minutes, nil
}
