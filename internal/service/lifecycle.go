package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Fi44er/number_rent_bot/internal/metrics"
	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/utils"
)

// claimAttempts bounds retries when another moderator wins the candidate first.
const claimAttempts = 5

type SubmitResult struct {
	Added    []string
	Existing []string
	Invalid  []string
}

type ClaimResult struct {
	Number  *models.Number
	Resumed bool
}

type FailureReport struct {
	Number         *models.Number
	ElapsedMinutes float64
	HoldTime       int
	HoldMet        bool
}

// Submit registers every line of raw as a separate number. Bad or duplicate
// lines are reported per item and never abort the batch; ErrInvalidFormat
// comes back with the result when no line held a valid number.
func (s *Service) Submit(ctx context.Context, ownerID int64, raw string) (*SubmitResult, error) {
	result := &SubmitResult{}
	now := s.clock.Now()

	if err := s.repo.EnsureUser(ctx, ownerID, now); err != nil {
		return nil, err
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		number, err := utils.NormalizePhone(line)
		if err != nil {
			result.Invalid = append(result.Invalid, line)
			continue
		}

		err = s.submitOne(ctx, ownerID, number)
		switch {
		case err == nil:
			result.Added = append(result.Added, number)
			s.metrics.Event(metrics.EventSubmitted)
		case errors.Is(err, ErrAlreadyExists):
			result.Existing = append(result.Existing, number)
		default:
			return result, err
		}
	}

	s.logger.Infof("Пользователь %d сдал номера: добавлено %d, уже есть %d, неверных %d",
		ownerID, len(result.Added), len(result.Existing), len(result.Invalid))
	if len(result.Added) == 0 && len(result.Existing) == 0 {
		return result, ErrInvalidFormat
	}
	return result, nil
}

func (s *Service) submitOne(ctx context.Context, ownerID int64, number string) error {
	return s.repo.Transaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetNumber(ctx, number)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsOpen() {
				return ErrAlreadyExists
			}
			if _, err := s.repo.DeleteNumber(ctx, number); err != nil {
				return err
			}
		}

		created, err := s.repo.CreateNumber(ctx, &models.Number{
			Number:    number,
			OwnerID:   ownerID,
			TakeState: models.TakeUnclaimed,
			Status:    models.StatusWaiting,
			CreatedAt: s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if !created {
			return ErrAlreadyExists
		}
		return nil
	})
}

// Claim hands the moderator one number to verify. A moderator keeps at most
// one unconfirmed claim; asking again returns the same record.
func (s *Service) Claim(ctx context.Context, moderatorID int64) (*ClaimResult, error) {
	if err := s.requireModerator(ctx, moderatorID); err != nil {
		return nil, err
	}

	held, err := s.repo.FindHeldNumber(ctx, moderatorID)
	if err != nil {
		return nil, err
	}
	if held != nil {
		return &ClaimResult{Number: held, Resumed: true}, nil
	}

	for attempt := 0; attempt < claimAttempts; attempt++ {
		var claimed *models.Number
		err := s.repo.Transaction(ctx, func(ctx context.Context) error {
			candidate, err := s.repo.PickClaimCandidate(ctx)
			if err != nil {
				return err
			}
			if candidate == nil {
				return ErrNoneAvailable
			}

			ok, err := s.repo.ClaimNumber(ctx, candidate.Number, moderatorID)
			if err != nil || !ok {
				return err
			}

			claimed, err = s.repo.GetNumber(ctx, candidate.Number)
			return err
		})
		if err != nil {
			return nil, err
		}
		if claimed == nil {
			s.logger.Debugf("Модератор %d проиграл гонку за номер, попытка %d", moderatorID, attempt+1)
			continue
		}

		s.logger.Infof("Модератор %d взял номер %s", moderatorID, claimed.Number)
		s.metrics.Event(metrics.EventClaimed)
		s.notify(claimed.OwnerID, fmt.Sprintf("🔎 Ваш номер %s взят в работу. Ожидайте запрос кода.", claimed.Number), nil)
		return &ClaimResult{Number: claimed}, nil
	}

	return nil, ErrNoneAvailable
}

// RequestCode asks the owner for a fresh verification code. The requester
// becomes the holder; a record held by someone else is refused.
func (s *Service) RequestCode(ctx context.Context, number string, moderatorID int64) (*models.Number, error) {
	if err := s.requireModerator(ctx, moderatorID); err != nil {
		return nil, err
	}

	var n *models.Number
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.loadOpen(ctx, number)
		if err != nil {
			return err
		}
		if current.TakeState == models.TakeActivated {
			return ErrAlreadyConfirmed
		}
		if current.ModeratorID != nil && !current.HeldBy(moderatorID) {
			return ErrUnauthorized
		}

		rows, err := s.repo.RequestCode(ctx, number, moderatorID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		n, err = s.repo.GetNumber(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Модератор %d запросил код для %s", moderatorID, number)
	s.notify(n.OwnerID, fmt.Sprintf("📩 Пришлите код из СМС для номера %s.", number), Keyboard{
		{{Text: "✏️ Ввести код", Data: Action(ActionEnterCode, number)}},
	})
	return n, nil
}

// SubmitCode stores the owner's code. The caller shows it back to the owner
// for confirmation before it reaches the moderator.
func (s *Service) SubmitCode(ctx context.Context, number string, ownerID int64, code string) (*models.Number, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrEmptyCode
	}

	var n *models.Number
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.loadOpen(ctx, number)
		if err != nil {
			return err
		}
		if current.OwnerID != ownerID {
			return ErrUnauthorized
		}
		if current.TakeState != models.TakeAwaitingCode || current.VerificationCode == nil {
			return ErrInvalidState
		}

		rows, err := s.repo.StoreCode(ctx, number, ownerID, code)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		n, err = s.repo.GetNumber(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Пользователь %d ввел код для %s", ownerID, number)
	return n, nil
}

// ChangeCode clears a stored code so the owner can type it again.
func (s *Service) ChangeCode(ctx context.Context, number string, ownerID int64) error {
	rows, err := s.repo.ResetCode(ctx, number, ownerID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmCodeForwarding sends the stored code to the holder and asks whether
// it worked. The record itself is not changed.
func (s *Service) ConfirmCodeForwarding(ctx context.Context, number string, ownerID int64) error {
	n, err := s.loadOpen(ctx, number)
	if err != nil {
		return err
	}
	if n.OwnerID != ownerID {
		return ErrUnauthorized
	}
	if n.VerificationCode == nil || *n.VerificationCode == "" {
		return ErrInvalidState
	}
	if n.ModeratorID == nil {
		return ErrInvalidState
	}

	s.notify(*n.ModeratorID, fmt.Sprintf("🔑 Код для номера %s: %s\nКод подошел?", number, utils.EscapeMarkdown(*n.VerificationCode)), Keyboard{
		{
			{Text: "✅ Номер активен", Data: Action(ActionNumberActive, number)},
			{Text: "❌ Неверный код", Data: Action(ActionNumberInvalid, number)},
		},
	})
	s.logger.Infof("Код для %s отправлен модератору %d", number, *n.ModeratorID)
	return nil
}

// ReportInvalidCode removes the record for good.
func (s *Service) ReportInvalidCode(ctx context.Context, number string, moderatorID int64) error {
	n, err := s.deleteHeld(ctx, number, moderatorID)
	if err != nil {
		return err
	}

	s.logger.Infof("Модератор %d отметил неверный код для %s", moderatorID, number)
	s.metrics.Event(metrics.EventInvalidCode)
	s.notify(n.OwnerID, fmt.Sprintf("❌ Код для номера %s не подошел, номер удален.", number), nil)
	s.notifyAdmins(ctx, fmt.Sprintf("⚠️ Модератор %d отметил неверный код. Номер %s удален.", moderatorID, number), nil)
	return nil
}

// ConfirmActivation starts the hold countdown. The confirming moderator is
// remembered for later failure reports; the hold is released.
func (s *Service) ConfirmActivation(ctx context.Context, number string, moderatorID int64) (*models.Number, error) {
	if err := s.requireModerator(ctx, moderatorID); err != nil {
		return nil, err
	}

	var n *models.Number
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.loadOpen(ctx, number)
		if err != nil {
			return err
		}
		if current.TakeState == models.TakeActivated {
			return ErrAlreadyConfirmed
		}
		if !current.HeldBy(moderatorID) {
			return ErrUnauthorized
		}

		rows, err := s.repo.ActivateNumber(ctx, number, moderatorID, s.clock.Now())
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		n, err = s.repo.GetNumber(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Модератор %d подтвердил номер %s", moderatorID, number)
	s.metrics.Event(metrics.EventActivated)
	s.notify(n.OwnerID, fmt.Sprintf("✅ Номер %s активирован. Оплата после холда.", number), nil)
	return n, nil
}

// ReportFailure closes an open record as failed. Only the holder or the
// confirming moderator may report it, and only while nothing else closed it.
func (s *Service) ReportFailure(ctx context.Context, number string, moderatorID int64) (*FailureReport, error) {
	var report *FailureReport
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		settings, err := s.repo.GetSettings(ctx)
		if err != nil {
			return err
		}
		current, err := s.repo.GetNumber(ctx, number)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		if !current.HeldBy(moderatorID) && !current.ConfirmedBy(moderatorID) {
			return ErrUnauthorized
		}
		if !current.IsOpen() {
			return ErrAlreadyClosed
		}

		now := s.clock.Now()
		rows, err := s.repo.FailNumber(ctx, number, moderatorID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyClosed
		}

		elapsed := current.ElapsedMinutes(now)
		failed, err := s.repo.GetNumber(ctx, number)
		if err != nil {
			return err
		}
		report = &FailureReport{
			Number:         failed,
			ElapsedMinutes: elapsed,
			HoldTime:       settings.HoldTime,
			HoldMet:        elapsed >= float64(settings.HoldTime),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Модератор %d отметил номер %s слетевшим (%.0f мин.)", moderatorID, number, report.ElapsedMinutes)
	s.metrics.Event(metrics.EventFailed)

	text := fmt.Sprintf("📉 Номер %s слетел через %.0f мин.", number, report.ElapsedMinutes)
	if report.HoldMet {
		text += fmt.Sprintf(" Холд %d мин. был отстоян.", report.HoldTime)
	} else {
		text += fmt.Sprintf(" Холд %d мин. не отстоян.", report.HoldTime)
	}
	s.notify(report.Number.OwnerID, text, nil)
	return report, nil
}

// RejectClaim lets the holder decline a number before activation.
func (s *Service) RejectClaim(ctx context.Context, number string, moderatorID int64) error {
	n, err := s.deleteHeld(ctx, number, moderatorID)
	if err != nil {
		return err
	}

	s.logger.Infof("Модератор %d отклонил номер %s", moderatorID, number)
	s.metrics.Event(metrics.EventRejected)
	s.notify(n.OwnerID, fmt.Sprintf("🚫 Номер %s отклонен модератором. Сдайте его заново.", number), Keyboard{
		{{Text: "📱 Сдать номер", Data: Action(ActionSubmitNumbers, "")}},
	})
	return nil
}

// CancelNumber lets the owner withdraw a number nobody has activated yet.
func (s *Service) CancelNumber(ctx context.Context, number string, ownerID int64) error {
	var holder *int64
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.loadOpen(ctx, number)
		if err != nil {
			return err
		}
		if current.OwnerID != ownerID {
			return ErrUnauthorized
		}
		if current.TakeState == models.TakeActivated {
			return ErrAlreadyConfirmed
		}
		holder = current.ModeratorID

		rows, err := s.repo.DeleteOpenUnactivated(ctx, number, ownerID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infof("Пользователь %d отменил номер %s", ownerID, number)
	s.metrics.Event(metrics.EventCanceled)
	if holder != nil {
		s.notify(*holder, fmt.Sprintf("ℹ️ Владелец отменил номер %s.", number), nil)
	}
	return nil
}

// deleteHeld removes an open, unactivated record held by moderatorID.
func (s *Service) deleteHeld(ctx context.Context, number string, moderatorID int64) (*models.Number, error) {
	var n *models.Number
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.loadOpen(ctx, number)
		if err != nil {
			return err
		}
		if current.TakeState == models.TakeActivated {
			return ErrAlreadyConfirmed
		}
		if !current.HeldBy(moderatorID) {
			return ErrUnauthorized
		}

		rows, err := s.repo.DeleteNumber(ctx, number)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		n = current
		return nil
	})
	return n, err
}

func (s *Service) loadOpen(ctx context.Context, number string) (*models.Number, error) {
	n, err := s.repo.GetNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotFound
	}
	if !n.IsOpen() {
		return nil, ErrAlreadyClosed
	}
	return n, nil
}
