package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/shopspring/decimal"
)

// RequestWithdrawal cashes out the whole balance: the balance is zeroed and a
// pending request with the snapshot amount goes to the admins.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64) (*models.Withdrawal, error) {
	var withdrawal *models.Withdrawal
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		user, err := s.repo.GetUserForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("не удалось получить данные пользователя: %w", err)
		}
		if user == nil || !user.Balance.IsPositive() {
			return ErrInsufficientFunds
		}

		if err := s.repo.UpdateUserBalance(ctx, userID, decimal.Zero); err != nil {
			return err
		}

		withdrawal = &models.Withdrawal{
			UserID:    userID,
			Amount:    user.Balance,
			Status:    models.WithdrawalPending,
			CreatedAt: s.clock.Now(),
		}
		if err := s.repo.CreateWithdrawal(ctx, withdrawal); err != nil {
			return fmt.Errorf("не удалось создать заявку в базе данных: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Заявка на вывод #%d: пользователь %d, сумма %s", withdrawal.ID, userID, withdrawal.Amount)
	id := strconv.FormatUint(uint64(withdrawal.ID), 10)
	s.notifyAdmins(ctx, fmt.Sprintf("💸 Заявка на вывод #%d\nПользователь: `%d`\nСумма: %s $", withdrawal.ID, userID, withdrawal.Amount), Keyboard{
		{
			{Text: "🧾 Отправить чек", Data: Action(ActionSendCheck, id)},
			{Text: "❌ Отклонить", Data: Action(ActionRejectWithdraw, id)},
		},
	})
	return withdrawal, nil
}

func (s *Service) GetPendingWithdrawals(ctx context.Context, adminID int64) ([]models.Withdrawal, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	withdrawals, err := s.repo.GetPendingWithdrawals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending withdrawals: %w", err)
	}
	return withdrawals, nil
}

// CompleteWithdrawal pays a request with a check link and removes it.
func (s *Service) CompleteWithdrawal(ctx context.Context, adminID int64, id uint, link string) (*models.Withdrawal, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	link, err := checkLink(link)
	if err != nil {
		return nil, err
	}

	withdrawal, err := s.takeWithdrawal(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Админ %d оплатил вывод #%d", adminID, id)
	s.notify(withdrawal.UserID, fmt.Sprintf("✅ Вывод %s $ выполнен. Ваш чек:", withdrawal.Amount), Keyboard{
		{{Text: "🧾 Получить чек", URL: link}},
	})
	return withdrawal, nil
}

// checkLink accepts absolute http(s) URLs only; Telegram refuses anything
// else as a URL button.
func checkLink(raw string) (string, error) {
	link := strings.TrimSpace(raw)
	u, err := url.ParseRequestURI(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidLink
	}
	return link, nil
}

// RejectWithdrawal refunds the amount and removes the request.
func (s *Service) RejectWithdrawal(ctx context.Context, adminID int64, id uint) (*models.Withdrawal, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	withdrawal, err := s.takeWithdrawal(ctx, id, func(ctx context.Context, w *models.Withdrawal) error {
		return s.repo.AddBalance(ctx, w.UserID, w.Amount, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Админ %d отклонил вывод #%d, сумма %s возвращена", adminID, id, withdrawal.Amount)
	s.notify(withdrawal.UserID, fmt.Sprintf("❌ Вывод отклонен. %s $ возвращены на баланс.", withdrawal.Amount), nil)
	return withdrawal, nil
}

// takeWithdrawal deletes the request and runs then in the same transaction.
// A request already handled by another admin yields ErrNotFound.
func (s *Service) takeWithdrawal(ctx context.Context, id uint, then func(ctx context.Context, w *models.Withdrawal) error) (*models.Withdrawal, error) {
	var withdrawal *models.Withdrawal
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		w, err := s.repo.GetWithdrawalByID(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("вывод #%d: %w", id, ErrNotFound)
		}
		deleted, err := s.repo.DeleteWithdrawal(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("вывод #%d: %w", id, ErrNotFound)
		}
		if then != nil {
			if err := then(ctx, w); err != nil {
				return err
			}
		}
		withdrawal = w
		return nil
	})
	return withdrawal, err
}
