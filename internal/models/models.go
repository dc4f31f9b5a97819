package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TakeState replaces the "0"/"1"/timestamp encoding of the take date.
type TakeState string

const (
	TakeUnclaimed    TakeState = "unclaimed"
	TakeAwaitingCode TakeState = "awaiting_code"
	TakeActivated    TakeState = "activated"
)

// NumberStatus is the label shown to users.
type NumberStatus string

const (
	StatusWaiting   NumberStatus = "ожидает"
	StatusCodeCheck NumberStatus = "проверка кода"
	StatusActive    NumberStatus = "активен"
	StatusFailed    NumberStatus = "слетел"
)

type Number struct {
	Number                 string       `gorm:"primaryKey" json:"number"`
	OwnerID                int64        `gorm:"index" json:"owner_id"`
	TakeState              TakeState    `gorm:"type:varchar(16);default:unclaimed;index" json:"take_state"`
	ActivatedAt            *time.Time   `json:"activated_at"`
	ShutdownAt             *time.Time   `gorm:"index" json:"shutdown_at"`
	ModeratorID            *int64       `gorm:"index" json:"moderator_id"`
	ConfirmedByModeratorID *int64       `gorm:"index" json:"confirmed_by_moderator_id"`
	VerificationCode       *string      `json:"verification_code"`
	Status                 NumberStatus `gorm:"type:varchar(32)" json:"status"`
	CreatedAt              time.Time    `json:"created_at"`
}

// IsOpen reports whether the record has not been closed by payment or failure.
func (n *Number) IsOpen() bool {
	return n.ShutdownAt == nil
}

// HeldBy reports whether moderatorID holds the unconfirmed claim.
func (n *Number) HeldBy(moderatorID int64) bool {
	return n.ModeratorID != nil && *n.ModeratorID == moderatorID
}

func (n *Number) ConfirmedBy(moderatorID int64) bool {
	return n.ConfirmedByModeratorID != nil && *n.ConfirmedByModeratorID == moderatorID
}

// ElapsedMinutes is the active time at the given instant; zero before activation.
func (n *Number) ElapsedMinutes(now time.Time) float64 {
	if n.TakeState != TakeActivated || n.ActivatedAt == nil {
		return 0
	}
	return now.Sub(*n.ActivatedAt).Minutes()
}

type Settings struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	Price    decimal.Decimal `gorm:"type:decimal(20,8)" json:"price"`
	HoldTime int             `json:"hold_time"`
}

type User struct {
	TelegramID int64           `gorm:"primaryKey;autoIncrement:false" json:"telegram_id"`
	Balance    decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"balance"`
	RegDate    time.Time       `json:"reg_date"`
}

type WithdrawalStatus string

const WithdrawalPending WithdrawalStatus = "pending"

// Withdrawal rows disappear once an admin pays or rejects them.
type Withdrawal struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    int64            `gorm:"index" json:"user_id"`
	Amount    decimal.Decimal  `gorm:"type:decimal(20,8)" json:"amount"`
	Status    WithdrawalStatus `gorm:"type:varchar(16);default:pending" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

type PersonalType string

const (
	PersonalModerator PersonalType = "moder"
	PersonalAdmin     PersonalType = "admin"
)

// Personal is the staff table; moderators live here, admins mostly come from config.
type Personal struct {
	TelegramID int64        `gorm:"primaryKey;autoIncrement:false" json:"telegram_id"`
	Type       PersonalType `gorm:"type:varchar(16);index" json:"type"`
}

func (Personal) TableName() string {
	return "personal"
}

type AccessStatus string

const (
	AccessPending  AccessStatus = "pending"
	AccessApproved AccessStatus = "approved"
	AccessRejected AccessStatus = "rejected"
)

type AccessRequest struct {
	TelegramID  int64        `gorm:"primaryKey;autoIncrement:false" json:"telegram_id"`
	LastRequest time.Time    `json:"last_request"`
	Status      AccessStatus `gorm:"type:varchar(16);default:pending" json:"status"`
}
