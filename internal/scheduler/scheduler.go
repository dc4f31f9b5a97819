// Package scheduler runs the payment and purge jobs on gocron.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Fi44er/number_rent_bot/internal/metrics"
	"github.com/Fi44er/number_rent_bot/internal/service"
	"github.com/Fi44er/number_rent_bot/utils"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

const (
	jobPayment = "payment"
	jobPurge   = "purge"
)

type PaymentProcessor interface {
	ProcessPayments(ctx context.Context) (int, error)
}

type Purger interface {
	Purge(ctx context.Context) (*service.PurgeResult, error)
}

type Manager struct {
	scheduler gocron.Scheduler
	metrics   *metrics.Metrics
	logger    *utils.Logger

	started   bool
	startedMu sync.Mutex
}

func NewManager(clock clockwork.Clock, location *time.Location, m *metrics.Metrics, logger *utils.Logger) (*Manager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(location),
		gocron.WithClock(clock),
	)
	if err != nil {
		return nil, err
	}

	return &Manager{
		scheduler: scheduler,
		metrics:   m,
		logger:    logger,
	}, nil
}

// RegisterPaymentJob runs one payment tick every interval, first tick right away.
// A slow tick delays the next one instead of overlapping it.
func (m *Manager) RegisterPaymentJob(interval time.Duration, processor PaymentProcessor) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			m.runPayments(ctx, processor)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags(jobPayment),
		gocron.WithName("payment-processor"),
	)
	if err != nil {
		return err
	}

	m.logger.Infof("⏱ Задача оплаты зарегистрирована, интервал %s", interval)
	return nil
}

func (m *Manager) runPayments(ctx context.Context, processor PaymentProcessor) {
	start := time.Now()
	paid, err := processor.ProcessPayments(ctx)
	m.metrics.JobResult(jobPayment, err)
	if err != nil {
		m.logger.Errorf("Ошибка тика оплаты: %v", err)
		return
	}
	m.logger.Debugf("Тик оплаты: оплачено %d за %s", paid, time.Since(start))
}

// RegisterPurgeJob runs the daily reset once a day at hour:minute.
func (m *Manager) RegisterPurgeJob(hour, minute uint, purger Purger) error {
	_, err := m.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.runPurge(ctx, purger)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags(jobPurge),
		gocron.WithName("daily-purge"),
	)
	if err != nil {
		return err
	}

	m.logger.Infof("🧹 Очистка зарегистрирована на %02d:%02d", hour, minute)
	return nil
}

func (m *Manager) runPurge(ctx context.Context, purger Purger) {
	result, err := purger.Purge(ctx)
	m.metrics.JobResult(jobPurge, err)
	if err != nil {
		m.logger.Errorf("Ошибка очистки: %v", err)
		return
	}
	m.logger.Infof("Очистка выполнена: удалено %d", result.Deleted)
}

func (m *Manager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infof("Планировщик запущен, задач: %d", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs to finish.
func (m *Manager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Errorf("Ошибка остановки планировщика: %v", err)
		return err
	}

	m.logger.Info("Планировщик остановлен")
	return nil
}

func (m *Manager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
