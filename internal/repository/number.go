package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fi44er/number_rent_bot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetNumber(ctx context.Context, number string) (*models.Number, error) {
	var n models.Number
	err := r.conn(ctx).First(&n, "number = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка получения номера %s: %w", number, err)
	}
	return &n, nil
}

// CreateNumber inserts a record, returning false when the number already exists.
func (r *Repository) CreateNumber(ctx context.Context, n *models.Number) (bool, error) {
	tx := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(n)
	if tx.Error != nil {
		return false, fmt.Errorf("ошибка добавления номера %s: %w", n.Number, tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

func (r *Repository) DeleteNumber(ctx context.Context, number string) (int64, error) {
	tx := r.conn(ctx).Delete(&models.Number{}, "number = ?", number)
	if tx.Error != nil {
		return 0, fmt.Errorf("ошибка удаления номера %s: %w", number, tx.Error)
	}
	return tx.RowsAffected, nil
}

// DeleteOpenUnactivated removes an owner's record while nobody has activated it yet.
func (r *Repository) DeleteOpenUnactivated(ctx context.Context, number string, ownerID int64) (int64, error) {
	tx := r.conn(ctx).
		Where("number = ? AND owner_id = ? AND shutdown_at IS NULL AND take_state <> ?", number, ownerID, models.TakeActivated).
		Delete(&models.Number{})
	if tx.Error != nil {
		return 0, fmt.Errorf("ошибка удаления номера %s: %w", number, tx.Error)
	}
	return tx.RowsAffected, nil
}

// FindHeldNumber returns the open, not yet activated record the moderator currently holds.
func (r *Repository) FindHeldNumber(ctx context.Context, moderatorID int64) (*models.Number, error) {
	var n models.Number
	err := r.conn(ctx).
		Where("moderator_id = ? AND shutdown_at IS NULL AND take_state <> ?", moderatorID, models.TakeActivated).
		Order("created_at ASC").
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска номера модератора %d: %w", moderatorID, err)
	}
	return &n, nil
}

// PickClaimCandidate selects one eligible record uniformly at random.
func (r *Repository) PickClaimCandidate(ctx context.Context) (*models.Number, error) {
	q := r.conn(ctx).
		Where("take_state = ? AND moderator_id IS NULL AND shutdown_at IS NULL", models.TakeUnclaimed).
		Where("status = ? OR status = '' OR status IS NULL", models.StatusWaiting).
		Order("RANDOM()").
		Limit(1)
	if r.isPostgres() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var n models.Number
	if err := q.First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка выбора номера: %w", err)
	}
	return &n, nil
}

// ClaimNumber assigns the record to the moderator only if it is still unclaimed.
func (r *Repository) ClaimNumber(ctx context.Context, number string, moderatorID int64) (bool, error) {
	tx := r.conn(ctx).Model(&models.Number{}).
		Where("number = ? AND moderator_id IS NULL AND take_state = ? AND shutdown_at IS NULL", number, models.TakeUnclaimed).
		Updates(map[string]interface{}{
			"moderator_id": moderatorID,
			"take_state":   models.TakeAwaitingCode,
			"status":       models.StatusCodeCheck,
		})
	if tx.Error != nil {
		return false, fmt.Errorf("ошибка захвата номера %s: %w", number, tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// RequestCode moves an open record into the awaiting-code phase and clears any stale code.
// The requester becomes the holder when the record is unheld.
func (r *Repository) RequestCode(ctx context.Context, number string, moderatorID int64) (int64, error) {
	empty := ""
	tx := r.conn(ctx).Model(&models.Number{}).
		Where("number = ? AND shutdown_at IS NULL AND take_state <> ?", number, models.TakeActivated).
		Where("moderator_id IS NULL OR moderator_id = ?", moderatorID).
		Updates(map[string]interface{}{
			"moderator_id":      moderatorID,
			"take_state":        models.TakeAwaitingCode,
			"verification_code": &empty,
		})
	if tx.Error != nil {
		return 0, fmt.Errorf("ошибка запроса кода для %s: %w", number, tx.Error)
	}
	return tx.RowsAffected, nil
}

// StoreCode saves the owner's code; only allowed while a code was requested.
func (r *Repository) StoreCode(ctx context.Context, number string, ownerID int64, code string) (int64, error) {
	tx := r.conn(ctx).Model(&models.Number{}).
		Where("number = ? AND owner_id = ? AND shutdown_at IS NULL AND take_state = ?", number, ownerID, models.TakeAwaitingCode).
		Updates(map[string]interface{}{
			"verification_code": code,
			"status":            models.StatusCodeCheck,
		})
	if tx.Error != nil {
		return 0, fmt.Errorf("ошибка сохранения кода для %s: %w", number, tx.Error)
	}
	return tx.RowsAffected, nil
}

// ResetCode empties the stored code so the owner can enter it again.
func (r *Repository) ResetCode(ctx context.Context, number string, ownerID int64) (int64, error) {
	empty := ""
	tx := r.conn(ctx).Model(&models.Number{}).
		Where("number = ? AND owner_id = ? AND shutdown_at IS NULL AND take_state = ?", number, ownerID, models.TakeAwaitingCode).
		Update("verification_code", &empty)
	if tx.Error != nil {
		return 0, fmt.Errorf("ошибка сброса кода для %s: %w", number, tx.Error)
	}
	return tx.RowsAffected, nil
}

// ActivateNumber starts the hold timer and releases the holder.
// confirmed_by is written only when empty.
func (r *Repository) ActivateNumber(ctx context.Context, number string, moderatorID int64, at time.Time) (int64, error) {
	tx := r.conn(ctx).Model(&models.Number{}).
		Where("number = ? AND moderator_id = ? AND shutdown_at IS NULL AND take_state = ?", number, moderatorID, models.TakeAwaitingCode).
		Updates(map[string]interface{}{
			"take_state":                models.TakeActivated,
			"activated_at":              at,
			"status":                    models.StatusActive,
			"moderator_id":              nil,
			"verification_code":         nil,
			"confirmed_by_moderator_id": gorm.Expr("COALESCE(confirmed_by_moderator_id, ?)", moderatorID),
		})
	if tx.Error != nil {
		return 0, fmt.Errorf("ошибка активации номера %s: %w", number, tx.Error)
	}
	return tx.RowsAffected, nil
}

// MatureNumber closes an active record whose hold has elapsed.
// Zero rows means another tick or a failure report closed it first.
func (r *Repository) MatureNumber(ctx context.Context, number string, at time.Time) (int64, error) {
	tx := r.conn(ctx).Model(&models.Number{}).
		Where("number = ? AND shutdown_at IS NULL AND status = ?", number, models.StatusActive).
		Update("shutdown_at", at)
	if tx.Error != nil {
		return 0, fmt.Errorf("ошибка закрытия номера %s: %w", number, tx.Error)
	}
	return tx.RowsAffected, nil
}

// FailNumber closes an open record on behalf of its holder or confirmer.
func (r *Repository) FailNumber(ctx context.Context, number string, moderatorID int64, at time.Time) (int64, error) {
	tx := r.conn(ctx).Model(&models.Number{}).
		Where("number = ? AND shutdown_at IS NULL", number).
		Where("moderator_id = ? OR confirmed_by_moderator_id = ?", moderatorID, moderatorID).
		Updates(map[string]interface{}{
			"shutdown_at":       at,
			"status":            models.StatusFailed,
			"verification_code": nil,
		})
	if tx.Error != nil {
		return 0, fmt.Errorf("ошибка отметки номера %s: %w", number, tx.Error)
	}
	return tx.RowsAffected, nil
}

// ListPayable returns open activated records for the payment tick.
func (r *Repository) ListPayable(ctx context.Context) ([]models.Number, error) {
	var numbers []models.Number
	err := r.conn(ctx).
		Where("shutdown_at IS NULL AND status = ?", models.StatusActive).
		Order("activated_at ASC").
		Find(&numbers).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка получения активных номеров: %w", err)
	}
	return numbers, nil
}

func (r *Repository) ListNumbersByOwner(ctx context.Context, ownerID int64) ([]models.Number, error) {
	var numbers []models.Number
	err := r.conn(ctx).Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&numbers).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка получения номеров пользователя %d: %w", ownerID, err)
	}
	return numbers, nil
}

// ListNumbersByModerator returns records held or confirmed by the moderator.
func (r *Repository) ListNumbersByModerator(ctx context.Context, moderatorID int64) ([]models.Number, error) {
	var numbers []models.Number
	err := r.conn(ctx).
		Where("moderator_id = ? OR confirmed_by_moderator_id = ?", moderatorID, moderatorID).
		Order("created_at ASC").
		Find(&numbers).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка получения номеров модератора %d: %w", moderatorID, err)
	}
	return numbers, nil
}

func (r *Repository) ListAllNumbers(ctx context.Context) ([]models.Number, error) {
	var numbers []models.Number
	if err := r.conn(ctx).Order("created_at ASC").Find(&numbers).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения номеров: %w", err)
	}
	return numbers, nil
}

func (r *Repository) CountNumbers(ctx context.Context) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&models.Number{}).Count(&count).Error
	return count, err
}

// CountPending counts records waiting in the claim queue.
func (r *Repository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&models.Number{}).
		Where("take_state = ? AND moderator_id IS NULL AND shutdown_at IS NULL", models.TakeUnclaimed).
		Count(&count).Error
	return count, err
}

// CountClosedSince counts records that were activated and closed after since.
func (r *Repository) CountClosedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&models.Number{}).
		Where("shutdown_at IS NOT NULL AND shutdown_at >= ? AND activated_at IS NOT NULL", since).
		Count(&count).Error
	return count, err
}

// PurgeNumbers deletes every record whose owner is not in keepOwners and
// returns the distinct owners whose records were removed.
func (r *Repository) PurgeNumbers(ctx context.Context, keepOwners []int64) ([]int64, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if len(keepOwners) == 0 {
			return db
		}
		return db.Where("owner_id NOT IN ?", keepOwners)
	}

	var owners []int64
	err := r.conn(ctx).Model(&models.Number{}).Scopes(scope).Distinct("owner_id").Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения владельцев номеров: %w", err)
	}

	tx := r.conn(ctx).Scopes(scope).Where("1 = 1").Delete(&models.Number{})
	if tx.Error != nil {
		return nil, 0, fmt.Errorf("ошибка очистки номеров: %w", tx.Error)
	}
	return owners, tx.RowsAffected, nil
}
