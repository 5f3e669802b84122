package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dislink/connect-api/internal/config"
	"github.com/dislink/connect-api/internal/connect"
	"github.com/dislink/connect-api/internal/handlers"
	"github.com/dislink/connect-api/internal/middleware"
	"github.com/dislink/connect-api/internal/migration"
	"github.com/dislink/connect-api/internal/notification"
	"github.com/dislink/connect-api/internal/repository"
	"github.com/dislink/connect-api/internal/routes"
	"github.com/dislink/connect-api/internal/temporal"
	"github.com/dislink/connect-api/internal/temporal/activities"
	"github.com/dislink/connect-api/internal/temporal/workflows"
	"github.com/dislink/connect-api/internal/utils"
	dworker "github.com/dislink/connect-api/internal/worker"
	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	temporalClient tc.Client
	logger         zerolog.Logger

	profiles      repository.ProfileRepository
	codes         repository.CodeRepository
	scans         repository.ScanRepository
	invitations   repository.InvitationRepository
	connections   repository.ConnectionRepository
	users         repository.UserRepository
	notifications notification.Service
	mailer        notification.InvitationMailer
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	goose.SetLogger(migration.NewGooseAdapter(logger))

	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	migration.RunMigrations(cfg.DatabaseURL, logger)

	sealer, err := utils.NewSealerFromBase64(cfg.DataKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid data_key")
	}

	mailer, err := notification.NewSMTPInvitationMailer(cfg.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure invitation mailer")
	}

	app := &application{
		config:      cfg,
		db:          db,
		logger:      logger,
		profiles:    repository.NewProfileRepository(db),
		codes:       repository.NewCodeRepository(db),
		scans:       repository.NewScanRepository(db),
		invitations: repository.NewInvitationRepository(db, sealer),
		connections: repository.NewConnectionRepository(db),
		users:       repository.NewUserRepository(db),
		mailer:      mailer,
	}
	app.notifications = app.newNotificationService()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var temporalWorker worker.Worker
	if cfg.Temporal.Enabled {
		temporalClient, err := tc.Dial(tc.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    temporal.NewZerologAdapter(logger),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Unable to create Temporal client")
		}
		defer temporalClient.Close()
		app.temporalClient = temporalClient
		temporalWorker = app.startTemporalWorker()
	} else {
		app.startSweeper(ctx)
	}

	router := app.initRouter()
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	app.startServer(ctx, h.ProxyHeaders(corsHandler), temporalWorker)

	logger.Info().Msg("Application terminated.")
}

func (app *application) newNotificationService() notification.Service {
	repo := repository.NewNotificationRepository(app.db)
	if !app.config.Email.NotifyOwners {
		return notification.NewService(repo, app.logger)
	}

	emailNotifier, err := notification.NewEmailNotifier(app.config.Email, app.users, app.logger)
	if err != nil {
		app.logger.Fatal().Err(err).Msg("failed to configure email notifier")
	}
	return notification.NewService(repo, app.logger, emailNotifier)
}

func (app *application) dispatcher() connect.InvitationDispatcher {
	if app.temporalClient != nil {
		return workflows.NewDispatcher(app.temporalClient)
	}
	return connect.NewSyncDispatcher(app.mailer, app.invitations, app.config.Invitations.RegistrationURLTemplate)
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter() http.Handler {
	logger := app.logger

	validator := connect.NewValidator(app.codes)
	issuer := connect.NewIssuer(app.profiles, app.codes, app.config.Codes, logger)
	tracker := connect.NewTracker(validator, app.scans, app.codes, connect.NewFingerprinter(app.config.Codes.FingerprintKey), logger)
	intake, err := connect.NewIntake(validator, app.invitations, app.dispatcher(), app.notifications, app.config.Invitations, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure invitation intake")
	}
	completer := connect.NewCompleter(app.users, app.invitations, app.connections, app.notifications, logger)

	return routes.NewRouter(routes.Handlers{
		Health:        handlers.HealthCheck(app.db),
		Auth:          handlers.NewAuthHandler(app.config.JWTSecret, logger),
		Public:        handlers.NewPublicHandler(validator, tracker, intake, app.config.Codes, logger),
		Profile:       handlers.NewProfileHandler(app.profiles, app.codes, logger),
		Codes:         handlers.NewCodeHandler(issuer, app.codes, logger),
		Invitations:   handlers.NewInvitationHandler(app.invitations, logger),
		Connections:   handlers.NewConnectionHandler(app.connections, logger),
		Notifications: handlers.NewNotificationHandler(app.notifications, logger),
		Hooks:         handlers.NewHookHandler(app.config.HookSecret, app.users, completer, logger),
	})
}

func (app *application) startTemporalWorker() worker.Worker {
	activityImpl := &activities.Activities{
		Invitations:             app.invitations,
		Mailer:                  app.mailer,
		RegistrationURLTemplate: app.config.Invitations.RegistrationURLTemplate,
	}

	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.InvitationWorkflow)
	w.RegisterActivity(activityImpl)

	if err := w.Start(); err != nil {
		app.logger.Fatal().Err(err).Msg("Unable to start Temporal worker")
	}
	app.logger.Info().Str("task_queue", temporal.TaskQueueName).Msg("Temporal worker started")

	return w
}

func (app *application) startSweeper(ctx context.Context) {
	sweeper := dworker.NewSweeper(dworker.SweeperConfig{
		Invitations:  app.invitations,
		PollInterval: app.config.Worker.SweepInterval,
	}, app.logger)

	go func() {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error().Err(err).Msg("sweeper exited")
		}
	}()
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(ctx context.Context, handler http.Handler, temporalWorker worker.Worker) {
	logger := app.logger
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Received shutdown signal. Shutting down...")
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	if temporalWorker != nil {
		logger.Info().Msg("Stopping Temporal worker...")
		temporalWorker.Stop()
		logger.Info().Msg("Temporal worker stopped.")
	}
}
