package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	_ "time/tzdata"

	"github.com/maximillian1508/easyrent-backend/internal/app"
	"github.com/maximillian1508/easyrent-backend/internal/config"
	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/controllers"
	"github.com/maximillian1508/easyrent-backend/internal/middleware"
	"github.com/maximillian1508/easyrent-backend/internal/routes"
	"github.com/maximillian1508/easyrent-backend/internal/services"
	"github.com/maximillian1508/easyrent-backend/internal/storage"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

const shutdownTimeout = 20 * time.Second

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize rental-service:", err)
	}
	defer application.Close()

	if application.DB != nil {
		applied, err := app.RunMigrations(ctx, application.DB)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to run migrations")
		}
		if len(applied) > 0 {
			utils.Logger.Infof("Applied migrations: %v", applied)
		}
	}

	if cfg.LDFlag_SeedDbWithTestData {
		if err := app.SeedAllTestData(ctx, application.Store); err != nil {
			utils.Logger.Fatal("Failed to seed test data:", err)
		}
	}

	// Collaborators
	var uploader services.ObjectUploader = storage.Unconfigured{}
	if cfg.S3.Bucket != "" {
		s3Uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to initialize S3 uploader")
		}
		uploader = s3Uploader
	} else {
		utils.Logger.Warn("S3_BUCKET not set, lease generation will fail")
	}
	leaseDocuments := services.NewLeaseDocumentService(uploader)
	notifier := services.NewSendgridTwilioNotifier(services.MessagingConfig{
		OrgName:         cfg.OrganizationName,
		FromEmail:       cfg.LDFlag_SendgridFromEmail,
		FromPhone:       cfg.TwilioFromPhone,
		SendgridSandbox: cfg.LDFlag_SendgridSandboxMode,
	}, cfg.SendgridAPIKey, cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	gateway := services.NewStripeGateway(cfg.StripeSecretKey)

	dispatcher := services.NewNotificationDispatcher(services.DefaultDispatcherOptions())
	defer dispatcher.Close()

	// Services
	applicationService := services.NewApplicationService(application.Store, nil)
	tenancyService := services.NewTenancyService(application.Store, leaseDocuments, notifier, dispatcher, nil)
	paymentService := services.NewPaymentService(application.Store, gateway, nil)
	billingService := services.NewBillingService(application.Store, notifier, nil)

	// Controllers
	healthController := controllers.NewHealthController(application)
	applicationController := controllers.NewApplicationController(applicationService, tenancyService)
	paymentController := controllers.NewPaymentController(paymentService)
	stripeWebhookController := controllers.NewStripeWebhookController(cfg.StripeWebhookSecret, paymentService)

	// Router setup
	router := mux.NewRouter()

	// Public Routes
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.PaymentsStripeWebhook, stripeWebhookController.WebhookHandler).Methods(http.MethodPost)

	// Secured routes for tenants
	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))
	secured.HandleFunc(routes.ApplicationsSubmit, applicationController.SubmitHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ApplicationsEligibility, applicationController.EligibilityHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ApplicationsActive, applicationController.ActiveHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.ApplicationsCancel, applicationController.CancelHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.PaymentsIntent, paymentController.CreateIntentHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.PaymentsDepositConfirm, paymentController.ConfirmDepositHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.PaymentsRentConfirm, paymentController.ConfirmRentHandler).Methods(http.MethodPost)

	// Landlord decisions
	staff := secured.NewRoute().Subrouter()
	staff.Use(middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin))
	staff.HandleFunc(routes.ApplicationsDecision, applicationController.DecisionHandler).Methods(http.MethodPost)

	// Cron job setup
	c := cron.New(cron.WithLocation(time.UTC))

	billingSpec := constants.MonthlyBillingCron
	if cfg.LDFlag_UseShortBillingPeriod {
		billingSpec = constants.ShortBillingCron
		utils.Logger.Warnf("Using short billing period cron spec: '%s'", billingSpec)
	}

	_, err = c.AddFunc(billingSpec, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), constants.BillingJobTimeout)
		defer cancel()
		utils.Logger.Info("Starting monthly billing cron job...")
		report, err := billingService.GenerateMonthlyCharges(jobCtx)
		if err != nil {
			utils.Logger.WithError(err).Error("Failed to generate monthly charges")
			return
		}
		utils.Logger.WithFields(map[string]any{
			"considered":            report.Considered,
			"charged":               report.Charged,
			"charge_failures":       len(report.ChargeFailures),
			"notification_failures": len(report.NotificationFailures),
		}).Info("Monthly billing cron job finished")
	})
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to schedule billing cron")
	}

	_, err = c.AddFunc(constants.DailyExpiryCron, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), constants.ExpiryJobTimeout)
		defer cancel()
		utils.Logger.Info("Starting contract expiry cron job...")
		if _, err := billingService.ExpireContracts(jobCtx); err != nil {
			utils.Logger.WithError(err).Error("Failed to expire contracts")
		}
	})
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to schedule contract expiry cron")
	}

	_, err = c.AddFunc(constants.DailyOverdueCron, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), constants.OverdueJobTimeout)
		defer cancel()
		utils.Logger.Info("Starting overdue sweep cron job...")
		if _, err := billingService.MarkOverdueTransactions(jobCtx); err != nil {
			utils.Logger.WithError(err).Error("Failed to mark overdue transactions")
		}
	})
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to schedule overdue sweep cron")
	}

	c.Start()
	defer func() { <-c.Stop().Done() }()
	utils.Logger.Info("Scheduled billing cron jobs")

	allowedOrigins := []string{cfg.AppUrl}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, utils.CORSLowSecurityAllowedOriginLocalhost)
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "ngrok-skip-browser-warning"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           co.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Error("rental-service failed to start:", err)
		}
	case <-ctx.Done():
		utils.Logger.Info("Shutting down rental-service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			utils.Logger.WithError(err).Error("Graceful shutdown failed")
		}
	}
}
