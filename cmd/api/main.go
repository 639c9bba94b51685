package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/quilldesk/helpdesk/internal/ai"
	httptransport "github.com/quilldesk/helpdesk/internal/api/http"
	"github.com/quilldesk/helpdesk/internal/api/http/handlers"
	"github.com/quilldesk/helpdesk/internal/auth"
	"github.com/quilldesk/helpdesk/internal/config"
	"github.com/quilldesk/helpdesk/internal/events"
	"github.com/quilldesk/helpdesk/internal/mail"
	"github.com/quilldesk/helpdesk/internal/observability"
	"github.com/quilldesk/helpdesk/internal/persistence"
	"github.com/quilldesk/helpdesk/internal/repository"
	"github.com/quilldesk/helpdesk/internal/service"
	"github.com/quilldesk/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	commRepo := repository.NewCommunicationRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	handleRepo := repository.NewHandleRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	membershipRepo := repository.NewMembershipRepository(pool)
	priorityRepo := repository.NewPriorityRepository(pool)
	slaRepo := repository.NewSLARepository(pool)
	holdRepo := repository.NewHoldRepository(pool)
	kbRepo := repository.NewKBRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	progress := events.NewRedisProgressObserver(redis.Client, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(service.AuthDependencies{
		AgentRepo:  agentRepo,
		Tokens:     tokens,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, agentRepo)

	rotationService := service.NewRotationService(service.RotationDependencies{
		TeamRepo:       teamRepo,
		MembershipRepo: membershipRepo,
	})
	slaService := service.NewSLAService(service.SLADependencies{SLARepo: slaRepo})
	holdService := service.NewHoldService(service.HoldDependencies{HoldRepo: holdRepo})
	auditService := service.NewAuditService(service.AuditDependencies{
		CommunicationRepo: commRepo,
		AgentRepo:         agentRepo,
		Logger:            logger,
		BotName:           cfg.Helpdesk.BotName,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:        ticketRepo,
		CommunicationRepo: commRepo,
		CustomerRepo:      customerRepo,
		HandleRepo:        handleRepo,
		SettingsRepo:      settingsRepo,
		TeamRepo:          teamRepo,
		PriorityRepo:      priorityRepo,
		Rotation:          rotationService,
		SLA:               slaService,
		Hold:              holdService,
		Audit:             auditService,
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Logger:            logger,
		BotName:           cfg.Helpdesk.BotName,
		DefaultChannel:    cfg.Helpdesk.DefaultChannel,
	})
	threadService := service.NewThreadService(service.ThreadDependencies{
		TicketRepo:        ticketRepo,
		CommunicationRepo: commRepo,
	})

	var classifier ai.Classifier
	if gemini, err := ai.NewGeminiClassifier(cfg.Gemini); err != nil {
		logger.Warn("ai orchestration disabled", zap.Error(err))
	} else {
		classifier = gemini
	}

	// Mail transport is deployment-specific; without one, intake and
	// outbound dispatch stay dormant while the HTTP API remains fully
	// functional.
	var mailer mail.Mailer

	orchestratorService := service.NewOrchestratorService(service.OrchestratorDependencies{
		TicketRepo:         ticketRepo,
		CommunicationRepo:  commRepo,
		TeamRepo:           teamRepo,
		PriorityRepo:       priorityRepo,
		KBRepo:             kbRepo,
		SLARepo:            slaRepo,
		TicketService:      ticketService,
		Classifier:         classifier,
		Progress:           progress,
		Dispatcher:         dispatcher,
		Metrics:            metrics,
		Logger:             logger,
		BotName:            cfg.Helpdesk.BotName,
		ConfirmationMarker: cfg.Helpdesk.ConfirmationMarker,
	})
	orchestratorService.Register(dispatcher)

	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		TicketRepo:        ticketRepo,
		CommunicationRepo: commRepo,
		CustomerRepo:      customerRepo,
		Mailer:            mailer,
		Logger:            logger,
	})
	dispatchService.Register(dispatcher)

	mailWorker := worker.NewMailWorker(worker.MailWorkerDependencies{
		Mailer:       mailer,
		Threads:      threadService,
		Tickets:      ticketService,
		Dispatcher:   dispatcher,
		Logger:       logger,
		PollInterval: cfg.Mail.PollInterval(),
		MaxPerPull:   cfg.Mail.MaxPerPull,
	})
	go mailWorker.Run(ctx)

	sequenceWorker := worker.NewSequenceResetWorker(settingsRepo, logger)
	go sequenceWorker.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics,
		time.Duration(cfg.App.RequestTimeoutSeconds)*time.Second)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:   handlers.NewAuthHandler(authService),
		Tickets: handlers.NewTicketsHandler(
			ticketService, holdService, orchestratorService),
		Management: handlers.NewManagementHandler(handlers.ManagementDependencies{
			TeamRepo:       teamRepo,
			MembershipRepo: membershipRepo,
			PriorityRepo:   priorityRepo,
			SLARepo:        slaRepo,
			CustomerRepo:   customerRepo,
			HandleRepo:     handleRepo,
			KBRepo:         kbRepo,
			SettingsRepo:   settingsRepo,
			AgentRepo:      agentRepo,
		}),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
