package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/livebook-backend/internal/config"
	"github.com/ignatzorin/livebook-backend/internal/db"
	"github.com/ignatzorin/livebook-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/livebook-backend/internal/http/router"
	"github.com/ignatzorin/livebook-backend/internal/infrastructure/email"
	"github.com/ignatzorin/livebook-backend/internal/infrastructure/events"
	"github.com/ignatzorin/livebook-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/handler"
	"github.com/ignatzorin/livebook-backend/internal/jobs"
	jobHandlers "github.com/ignatzorin/livebook-backend/internal/jobs/handlers"
	"github.com/ignatzorin/livebook-backend/internal/logger"
	"github.com/ignatzorin/livebook-backend/internal/notify"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
	"github.com/ignatzorin/livebook-backend/internal/service"
	"github.com/ignatzorin/livebook-backend/internal/storage"
	"github.com/ignatzorin/livebook-backend/internal/usecase/booking"
	"github.com/ignatzorin/livebook-backend/internal/usecase/catalog"
	"github.com/ignatzorin/livebook-backend/internal/usecase/deliverable"
	"github.com/ignatzorin/livebook-backend/internal/usecase/dispute"
	"github.com/ignatzorin/livebook-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Component("main")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("ошибка загрузки конфигурации")
	}
	logger.Init(cfg.Env)

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPoolConfig())
	if err != nil {
		log.WithError(err).Fatal("ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.WithError(err).Fatal("ошибка миграций")
	}

	clk := clock.System{}
	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	fileStore, err := storage.New(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("не удалось подготовить файловое хранилище")
	}

	// Репозитории.
	bookingRepo := persistence.NewBookingRepositoryAdapter(dbConn)
	serviceRepo := persistence.NewCreatorServiceRepositoryAdapter(dbConn)
	deliverableRepo := persistence.NewDeliverableRepositoryAdapter(dbConn)
	disputeRepo := persistence.NewDisputeRepositoryAdapter(dbConn)
	notificationRepo := persistence.NewNotificationRepositoryAdapter(dbConn)
	directory := persistence.NewPartyDirectoryAdapter(dbConn)
	jobStore := persistence.NewJobRepositoryAdapter(dbConn)

	// Вебсокеты и лента уведомлений.
	notificationService := service.NewNotificationService(notificationRepo)
	hub := ws.NewHub(notificationService)

	// Каналы уведомлений.
	var sender notify.EmailSender = email.NewLogSender()
	if cfg.Email.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail)
	}

	var publisher interface {
		notify.EventPublisher
		Close() error
	} = events.NewLogPublisher()
	if len(cfg.Events.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
	}
	defer safeClose(publisher)

	renderer, err := notify.NewRenderer()
	if err != nil {
		log.WithError(err).Fatal("не удалось разобрать шаблоны писем")
	}
	dispatcher := notify.NewDispatcher(directory, renderer, sender, hub, publisher, clk, notify.DispatcherConfig{
		AdminEmails: cfg.Email.AdminEmails,
		AppBaseURL:  cfg.Email.AppBaseURL,
	})
	notifier := notify.NewAsyncNotifier(dispatcher, 30*time.Second)

	scheduler := jobs.NewQueue(jobStore)

	// Сценарии.
	autoRelease := booking.NewAutoReleaseUseCase(bookingRepo, disputeRepo, notifier, clk)
	escalate := dispute.NewEscalateDisputeUseCase(bookingRepo, disputeRepo, scheduler, notifier, clk, cfg.Booking.DisputeResolutionWindow)
	remind := dispute.NewRemindOverdueUseCase(bookingRepo, disputeRepo, notifier, clk)

	handlers := httpRouter.Handlers{
		Health: handler.NewHealthHandler(dbConn),
		WS:     handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Catalog: handler.NewCatalogHandler(
			catalog.NewCreateServiceUseCase(serviceRepo, clk),
			catalog.NewGetServiceUseCase(serviceRepo),
			catalog.NewListCreatorServicesUseCase(serviceRepo),
		),
		Booking: handler.NewBookingHandler(handler.BookingUseCases{
			Create:   booking.NewCreateBookingUseCase(bookingRepo, serviceRepo, notifier, clk),
			Get:      booking.NewGetBookingUseCase(bookingRepo),
			ListMy:   booking.NewListMyBookingsUseCase(bookingRepo),
			History:  booking.NewBookingHistoryUseCase(bookingRepo),
			Accept:   booking.NewAcceptBookingUseCase(bookingRepo, notifier, clk),
			Decline:  booking.NewDeclineBookingUseCase(bookingRepo, notifier, clk),
			Cancel:   booking.NewCancelBookingUseCase(bookingRepo, notifier, clk),
			Approve:  booking.NewApproveDeliveryUseCase(bookingRepo, notifier, clk),
			Revision: booking.NewRequestRevisionUseCase(bookingRepo, notifier, clk),
		}),
		Deliverable: handler.NewDeliverableHandler(
			deliverable.NewSubmitDeliverablesUseCase(bookingRepo, deliverableRepo, fileStore, scheduler, notifier, clk, deliverable.SubmitConfig{
				AutoReleaseAfter: cfg.Booking.AutoReleaseAfter,
				MaxUploadBytes:   cfg.Storage.MaxUploadSizeMB << 20,
			}),
			deliverable.NewCurrentSetUseCase(bookingRepo, deliverableRepo),
			deliverable.NewHistoryUseCase(bookingRepo, deliverableRepo),
		),
		Dispute: handler.NewDisputeHandler(
			dispute.NewOpenDisputeUseCase(bookingRepo, disputeRepo, scheduler, notifier, clk, cfg.Booking.DisputeResponseWindow),
			dispute.NewRespondDisputeUseCase(bookingRepo, disputeRepo, notifier, clk),
			dispute.NewGetDisputeUseCase(bookingRepo, disputeRepo),
			dispute.NewGetByBookingUseCase(bookingRepo, disputeRepo),
		),
		AdminDispute: handler.NewAdminDisputeHandler(
			dispute.NewListForAdminUseCase(disputeRepo),
			escalate,
			dispute.NewResolveDisputeUseCase(bookingRepo, disputeRepo, notifier, clk),
		),
		Notification: handler.NewNotificationHandler(notificationService),
	}

	// Отложенные задачи.
	worker := jobs.NewWorker(jobStore, clk, jobs.WorkerConfig{
		PollInterval: cfg.Jobs.PollInterval,
		BatchSize:    cfg.Jobs.BatchSize,
		MaxAttempts:  cfg.Jobs.MaxAttempts,
		RunTimeout:   cfg.Jobs.RunTimeout,
	})
	jobHandlers.Register(worker, autoRelease, escalate, remind)

	rateStore, err := middleware.NewRateLimitStore(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("не удалось подготовить rate limit")
	}

	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager, rateStore)
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		log.WithField("port", cfg.HTTPPort).Info("http сервер запущен")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Завершаем сервер при получении сигнала или падении соседней горутины.
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("сервис остановлен с ошибкой")
		return
	}
	log.Info("сервис остановлен")
}

func safeClose(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logger.Component("main").WithError(err).Warn("ошибка при закрытии ресурса")
	}
}
