package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Fi44er/number_rent_bot/internal/models"
)

func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if slices.Contains(s.adminIDs, userID) {
		return true, nil
	}
	return s.repo.HasPersonal(ctx, userID, models.PersonalAdmin)
}

func (s *Service) IsModerator(ctx context.Context, userID int64) (bool, error) {
	return s.repo.HasPersonal(ctx, userID, models.PersonalModerator)
}

// CanModerate is true for moderators and admins.
func (s *Service) CanModerate(ctx context.Context, userID int64) (bool, error) {
	admin, err := s.IsAdmin(ctx, userID)
	if err != nil || admin {
		return admin, err
	}
	return s.IsModerator(ctx, userID)
}

// AdminIDs merges configured admins with admins stored in the personal table.
func (s *Service) AdminIDs(ctx context.Context) ([]int64, error) {
	stored, err := s.repo.ListPersonal(ctx, models.PersonalAdmin)
	if err != nil {
		return nil, err
	}
	ids := slices.Clone(s.adminIDs)
	for _, id := range stored {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Service) requireAdmin(ctx context.Context, userID int64) error {
	ok, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) requireModerator(ctx context.Context, userID int64) error {
	ok, err := s.CanModerate(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func parseTelegramID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("неверный ID %q", raw)
	}
	return id, nil
}

func (s *Service) AddModerator(ctx context.Context, adminID int64, raw string) (int64, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return 0, err
	}
	id, err := parseTelegramID(raw)
	if err != nil {
		return 0, err
	}
	if err := s.repo.AddPersonal(ctx, id, models.PersonalModerator); err != nil {
		return 0, err
	}

	s.logger.Infof("Админ %d добавил модератора %d", adminID, id)
	s.notify(id, "🛡 Вам выданы права модератора. Нажмите /start, чтобы открыть панель.", nil)
	return id, nil
}

func (s *Service) RemoveModerator(ctx context.Context, adminID int64, raw string) (int64, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return 0, err
	}
	id, err := parseTelegramID(raw)
	if err != nil {
		return 0, err
	}
	removed, err := s.repo.DeletePersonal(ctx, id, models.PersonalModerator)
	if err != nil {
		return 0, err
	}
	if !removed {
		return 0, fmt.Errorf("модератор %d: %w", id, ErrNotFound)
	}

	s.logger.Infof("Админ %d удалил модератора %d", adminID, id)
	s.notify(id, "ℹ️ Ваши права модератора отозваны.", nil)
	return id, nil
}

func (s *Service) ListModerators(ctx context.Context, adminID int64) ([]int64, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.repo.ListPersonal(ctx, models.PersonalModerator)
}

// privilegedIDs is everyone whose numbers survive the purge.
func (s *Service) privilegedIDs(ctx context.Context) ([]int64, error) {
	stored, err := s.repo.ListStaffIDs(ctx)
	if err != nil {
		return nil, err
	}
	ids := slices.Clone(s.adminIDs)
	for _, id := range stored {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
