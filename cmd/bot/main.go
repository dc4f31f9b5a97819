package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fi44er/number_rent_bot/config"
	"github.com/Fi44er/number_rent_bot/db"
	"github.com/Fi44er/number_rent_bot/internal/bot"
	"github.com/Fi44er/number_rent_bot/internal/metrics"
	"github.com/Fi44er/number_rent_bot/internal/repository"
	"github.com/Fi44er/number_rent_bot/internal/scheduler"
	"github.com/Fi44er/number_rent_bot/internal/service"
	"github.com/Fi44er/number_rent_bot/internal/session"
	"github.com/Fi44er/number_rent_bot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const sessionTTL = 24 * time.Hour

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "number_rent_bot",
		Short:        "Telegram bot for renting out phone numbers",
		RunE:         runBot,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".env", "Path to the env config file")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Run the daily purge once and exit",
			RunE:  runPurge,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg     config.Config
	logger  *utils.Logger
	db      *gorm.DB
	clock   clockwork.Clock
	metrics *metrics.Metrics
	service *service.Service
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := utils.InitLogger(cfg.LogLevel)

	database, err := db.ConnectDb(cfg.DBDriver, cfg.DB_URL, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database, true, logger); err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	m := metrics.New()
	repo := repository.NewRepository(database, logger)
	svc, err := service.NewService(repo, clock, m, &cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to init settings: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      database,
		clock:   clock,
		metrics: m,
		service: svc,
	}, nil
}

func (a *app) close() {
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		a.logger.Errorf("Failed to close database: %v", err)
	}
}

func (a *app) newBot(sessions session.Store) (*bot.Bot, error) {
	api, err := tgbotapi.NewBotAPI(a.cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	telegramBot := bot.NewBot(api, a.service, sessions, a.logger, &a.cfg)
	a.service.SetNotifier(telegramBot)
	return telegramBot, nil
}

func (a *app) newSessionStore(ctx context.Context) (session.Store, func(), error) {
	if a.cfg.RedisURL == "" {
		a.logger.Info("📦 Sessions are kept in memory")
		return session.NewMemoryStore(), func() {}, nil
	}

	client, err := session.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info("📦 Sessions are kept in redis")
	return session.NewRedisStore(client, sessionTTL), func() {
		if err := client.Close(); err != nil {
			a.logger.Errorf("Failed to close redis: %v", err)
		}
	}, nil
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sessions, closeSessions, err := a.newSessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	telegramBot, err := a.newBot(sessions)
	if err != nil {
		return err
	}

	location, err := a.cfg.Location()
	if err != nil {
		return err
	}
	manager, err := scheduler.NewManager(a.clock, location, a.metrics, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := manager.RegisterPaymentJob(a.cfg.PaymentInterval, a.service); err != nil {
		return err
	}
	hour, minute, err := a.cfg.ClearHourMinute()
	if err != nil {
		return err
	}
	if err := manager.RegisterPurgeJob(hour, minute, a.service); err != nil {
		return err
	}
	manager.Start()
	defer manager.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telegramBot.Start(gctx)
	})

	if a.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler(a.logger))
		srv := &http.Server{
			Addr:              a.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			a.logger.Infof("📈 Metrics listening on %s", a.cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	return nil
}

func runPurge(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.TelegramBotToken != "" {
		if _, err := a.newBot(session.NewMemoryStore()); err != nil {
			a.logger.Warnf("Purge runs without notifications: %v", err)
		}
	}

	result, err := a.service.Purge(cmd.Context())
	if err != nil {
		return err
	}
	a.logger.Infof("Purge done: %d numbers deleted, %d owners", result.Deleted, len(result.Owners))
	return nil
}
