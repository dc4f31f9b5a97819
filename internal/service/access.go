package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/utils"
)

const accessCooldown = 15 * time.Minute

// HasAccess reports whether the user may use the menu: staff always can,
// everyone else needs an approved request.
func (s *Service) HasAccess(ctx context.Context, userID int64) (bool, error) {
	staff, err := s.CanModerate(ctx, userID)
	if err != nil || staff {
		return staff, err
	}
	req, err := s.repo.GetAccessRequest(ctx, userID)
	if err != nil {
		return false, err
	}
	return req != nil && req.Status == models.AccessApproved, nil
}

// RequestAccess files a request and pings the admins. Repeats within the
// cooldown return ErrCooldown with the time left.
func (s *Service) RequestAccess(ctx context.Context, userID int64, username string) (time.Duration, error) {
	now := s.clock.Now()

	req, err := s.repo.GetAccessRequest(ctx, userID)
	if err != nil {
		return 0, err
	}
	if req != nil {
		if req.Status == models.AccessApproved {
			return 0, nil
		}
		if left := req.LastRequest.Add(accessCooldown).Sub(now); left > 0 {
			return left, ErrCooldown
		}
	}

	if err := s.repo.SaveAccessRequest(ctx, &models.AccessRequest{
		TelegramID:  userID,
		LastRequest: now,
		Status:      models.AccessPending,
	}); err != nil {
		return 0, err
	}

	s.logger.Infof("Заявка на доступ от %d (@%s)", userID, username)
	id := strconv.FormatInt(userID, 10)
	s.notifyAdmins(ctx, fmt.Sprintf("📝 Заявка на доступ от @%s (ID: `%d`)", utils.EscapeMarkdown(username), userID), Keyboard{
		{
			{Text: "✅ Принять", Data: Action(ActionApproveAccess, id)},
			{Text: "❌ Отклонить", Data: Action(ActionRejectAccess, id)},
		},
	})
	return 0, nil
}

// ResolveAccess approves or rejects a pending request. ErrInvalidState means
// another admin already handled it.
func (s *Service) ResolveAccess(ctx context.Context, adminID, userID int64, approve bool) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	status := models.AccessRejected
	if approve {
		status = models.AccessApproved
	}

	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.SetAccessStatus(ctx, userID, status)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidState
		}
		if approve {
			return s.repo.EnsureUser(ctx, userID, s.clock.Now())
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infof("Админ %d: заявка %d -> %s", adminID, userID, status)
	if approve {
		s.notify(userID, "✅ Доступ открыт! Нажмите /start.", nil)
	} else {
		s.notify(userID, "❌ В доступе отказано. Повторить заявку можно через 15 минут.", nil)
	}
	return nil
}
