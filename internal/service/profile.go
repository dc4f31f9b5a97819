package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/utils"
	"github.com/shopspring/decimal"
)

type Profile struct {
	User              *models.User
	ActiveNumbers     int
	PendingWithdrawal *models.Withdrawal
	IsAdmin           bool
	IsModerator       bool
	Settings          *models.Settings
}

type AdminStats struct {
	Users       int64
	Numbers     int64
	Pending     int64
	ClosedToday int64
	Moderators  int
}

type BroadcastResult struct {
	Sent   int
	Failed int
}

// Profile registers the user if needed and clamps a negative balance to zero.
func (s *Service) Profile(ctx context.Context, userID int64) (*Profile, error) {
	if err := s.repo.EnsureUser(ctx, userID, s.clock.Now()); err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Balance.IsNegative() {
		s.logger.Warnf("Отрицательный баланс %s у пользователя %d, сбрасываю в 0", user.Balance, userID)
		if err := s.repo.UpdateUserBalance(ctx, userID, decimal.Zero); err != nil {
			return nil, err
		}
		user.Balance = decimal.Zero
	}

	numbers, err := s.repo.ListNumbersByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := 0
	for i := range numbers {
		if numbers[i].IsOpen() {
			active++
		}
	}

	pending, err := s.repo.GetPendingWithdrawalByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	admin, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	moderator, err := s.IsModerator(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:              user,
		ActiveNumbers:     active,
		PendingWithdrawal: pending,
		IsAdmin:           admin,
		IsModerator:       moderator,
		Settings:          settings,
	}, nil
}

// AdminStats counts numbers closed since local midnight.
func (s *Service) AdminStats(ctx context.Context, adminID int64) (*AdminStats, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	now := s.clock.Now().In(s.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)

	var stats AdminStats
	var err error
	if stats.Users, err = s.repo.CountUsers(ctx); err != nil {
		return nil, err
	}
	if stats.Numbers, err = s.repo.CountNumbers(ctx); err != nil {
		return nil, err
	}
	if stats.Pending, err = s.repo.CountPending(ctx); err != nil {
		return nil, err
	}
	if stats.ClosedToday, err = s.repo.CountClosedSince(ctx, midnight); err != nil {
		return nil, err
	}
	moderators, err := s.repo.ListPersonal(ctx, models.PersonalModerator)
	if err != nil {
		return nil, err
	}
	stats.Moderators = len(moderators)
	return &stats, nil
}

func (s *Service) MyNumbers(ctx context.Context, ownerID int64) ([]models.Number, error) {
	return s.repo.ListNumbersByOwner(ctx, ownerID)
}

func (s *Service) ModeratorNumbers(ctx context.Context, moderatorID int64) ([]models.Number, error) {
	if err := s.requireModerator(ctx, moderatorID); err != nil {
		return nil, err
	}
	return s.repo.ListNumbersByModerator(ctx, moderatorID)
}

func (s *Service) AllNumbers(ctx context.Context, adminID int64) ([]models.Number, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.repo.ListAllNumbers(ctx)
}

// NumberDetail returns a record for the moderator view and whether the
// moderator may still report it failed.
func (s *Service) NumberDetail(ctx context.Context, number string, moderatorID int64) (*models.Number, bool, error) {
	if err := s.requireModerator(ctx, moderatorID); err != nil {
		return nil, false, err
	}
	n, err := s.repo.GetNumber(ctx, number)
	if err != nil {
		return nil, false, err
	}
	if n == nil {
		return nil, false, ErrNotFound
	}
	canFail := n.IsOpen() && (n.HeldBy(moderatorID) || n.ConfirmedBy(moderatorID))
	return n, canFail, nil
}

// Broadcast sends text to every registered user, escaped for Markdown, and
// counts deliveries.
func (s *Service) Broadcast(ctx context.Context, adminID int64, text string) (*BroadcastResult, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("пустое сообщение")
	}

	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	var result BroadcastResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return &result, err
		}
		if err := s.notifier.Notify(id, utils.EscapeMarkdown(text), nil); err != nil {
			s.logger.Errorf("Рассылка: не удалось отправить %d: %v", id, err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.logger.Infof("Рассылка от %d: доставлено %d, ошибок %d", adminID, result.Sent, result.Failed)
	return &result, nil
}
