package service

import (
	"context"
	"time"

	"github.com/Fi44er/number_rent_bot/config"
	"github.com/Fi44er/number_rent_bot/internal/metrics"
	"github.com/Fi44er/number_rent_bot/internal/models"
	"github.com/Fi44er/number_rent_bot/utils"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo     Repository
	notifier Notifier
	clock    clockwork.Clock
	metrics  *metrics.Metrics
	adminIDs []int64
	location *time.Location
	logger   *utils.Logger
	config   *config.Config
}

type Repository interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	GetNumber(ctx context.Context, number string) (*models.Number, error)
	CreateNumber(ctx context.Context, n *models.Number) (bool, error)
	DeleteNumber(ctx context.Context, number string) (int64, error)
	DeleteOpenUnactivated(ctx context.Context, number string, ownerID int64) (int64, error)
	FindHeldNumber(ctx context.Context, moderatorID int64) (*models.Number, error)
	PickClaimCandidate(ctx context.Context) (*models.Number, error)
	ClaimNumber(ctx context.Context, number string, moderatorID int64) (bool, error)
	RequestCode(ctx context.Context, number string, moderatorID int64) (int64, error)
	StoreCode(ctx context.Context, number string, ownerID int64, code string) (int64, error)
	ResetCode(ctx context.Context, number string, ownerID int64) (int64, error)
	ActivateNumber(ctx context.Context, number string, moderatorID int64, at time.Time) (int64, error)
	MatureNumber(ctx context.Context, number string, at time.Time) (int64, error)
	FailNumber(ctx context.Context, number string, moderatorID int64, at time.Time) (int64, error)
	ListPayable(ctx context.Context) ([]models.Number, error)
	ListNumbersByOwner(ctx context.Context, ownerID int64) ([]models.Number, error)
	ListNumbersByModerator(ctx context.Context, moderatorID int64) ([]models.Number, error)
	ListAllNumbers(ctx context.Context) ([]models.Number, error)
	CountNumbers(ctx context.Context) (int64, error)
	CountPending(ctx context.Context) (int64, error)
	CountClosedSince(ctx context.Context, since time.Time) (int64, error)
	PurgeNumbers(ctx context.Context, keepOwners []int64) ([]int64, int64, error)

	EnsureSettings(ctx context.Context, price decimal.Decimal, holdTime int) (*models.Settings, error)
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdatePrice(ctx context.Context, price decimal.Decimal) error
	UpdateHoldTime(ctx context.Context, minutes int) error

	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	GetUserForUpdate(ctx context.Context, telegramID int64) (*models.User, error)
	EnsureUser(ctx context.Context, telegramID int64, regDate time.Time) error
	AddBalance(ctx context.Context, telegramID int64, amount decimal.Decimal, at time.Time) error
	UpdateUserBalance(ctx context.Context, userID int64, newBalance decimal.Decimal) error
	ListUserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error
	GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error)
	GetWithdrawalByID(ctx context.Context, id uint) (*models.Withdrawal, error)
	GetPendingWithdrawalByUserID(ctx context.Context, userID int64) (*models.Withdrawal, error)
	DeleteWithdrawal(ctx context.Context, id uint) (bool, error)

	HasPersonal(ctx context.Context, telegramID int64, kind models.PersonalType) (bool, error)
	AddPersonal(ctx context.Context, telegramID int64, kind models.PersonalType) error
	DeletePersonal(ctx context.Context, telegramID int64, kind models.PersonalType) (bool, error)
	ListPersonal(ctx context.Context, kind models.PersonalType) ([]int64, error)
	ListStaffIDs(ctx context.Context) ([]int64, error)

	GetAccessRequest(ctx context.Context, telegramID int64) (*models.AccessRequest, error)
	SaveAccessRequest(ctx context.Context, req *models.AccessRequest) error
	SetAccessStatus(ctx context.Context, telegramID int64, status models.AccessStatus) (bool, error)
}

func NewService(repo Repository, clock clockwork.Clock, m *metrics.Metrics, cfg *config.Config, logger *utils.Logger) (*Service, error) {
	adminIDs, err := cfg.AdminIDs()
	if err != nil {
		return nil, err
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:     repo,
		notifier: nopNotifier{},
		clock:    clock,
		metrics:  m,
		adminIDs: adminIDs,
		location: location,
		logger:   logger,
		config:   cfg,
	}, nil
}

// SetNotifier plugs in the transport once it exists; the bot is built after the service.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Init seeds the settings row from config.
func (s *Service) Init(ctx context.Context) error {
	price, err := decimal.NewFromString(s.config.DefaultPrice)
	if err != nil {
		return err
	}
	settings, err := s.repo.EnsureSettings(ctx, price, s.config.DefaultHoldTime)
	if err != nil {
		return err
	}
	s.logger.Infof("Настройки: цена %s, холд %d мин.", settings.Price, settings.HoldTime)
	return nil
}

func (s *Service) Config() *config.Config {
	return s.config
}

func (s *Service) GetSettings(ctx context.Context) (*models.Settings, error) {
	return s.repo.GetSettings(ctx)
}
