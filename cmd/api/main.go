package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
	appointmentHandler "github.com/sehatsathi/sehatsathi-api/internal/handler/appointment"
	authHandler "github.com/sehatsathi/sehatsathi-api/internal/handler/auth"
	bookingHandler "github.com/sehatsathi/sehatsathi-api/internal/handler/booking"
	chatbotHandler "github.com/sehatsathi/sehatsathi-api/internal/handler/chatbot"
	dashboardHandler "github.com/sehatsathi/sehatsathi-api/internal/handler/dashboard"
	doctorHandler "github.com/sehatsathi/sehatsathi-api/internal/handler/doctor"
	emergencyHandler "github.com/sehatsathi/sehatsathi-api/internal/handler/emergency"
	"github.com/sehatsathi/sehatsathi-api/internal/handler/health"
	rewardsHandler "github.com/sehatsathi/sehatsathi-api/internal/handler/rewards"
	"github.com/sehatsathi/sehatsathi-api/internal/middleware"
	"github.com/sehatsathi/sehatsathi-api/internal/repository"
	"github.com/sehatsathi/sehatsathi-api/internal/repository/postgres"
	"github.com/sehatsathi/sehatsathi-api/internal/router"
	"github.com/sehatsathi/sehatsathi-api/internal/service/appointment"
	"github.com/sehatsathi/sehatsathi-api/internal/service/audit"
	"github.com/sehatsathi/sehatsathi-api/internal/service/booking"
	"github.com/sehatsathi/sehatsathi-api/internal/service/catalog"
	"github.com/sehatsathi/sehatsathi-api/internal/service/chatbot"
	"github.com/sehatsathi/sehatsathi-api/internal/service/dashboard"
	"github.com/sehatsathi/sehatsathi-api/internal/service/emergency"
	"github.com/sehatsathi/sehatsathi-api/internal/service/payment"
	"github.com/sehatsathi/sehatsathi-api/internal/service/rewards"
	"github.com/sehatsathi/sehatsathi-api/internal/service/session"
	"github.com/sehatsathi/sehatsathi-api/pkg/auth"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
	"github.com/sehatsathi/sehatsathi-api/pkg/worker"
)

const (
	metricsNamespace = "sehatsathi"
	tokenIssuer      = "sehatsathi"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "sehatsathi",
		Short:        "SehatSathi telemedicine booking API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(notifierCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres blob table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info("migrations applied", "database", cfg.Database.Name)
			return nil
		},
	}
}

func notifierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifier",
		Short: "Send booking confirmations from broker events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotifier()
		},
	}
}

func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	logger.SetGlobal(log)
	return cfg, log, nil
}

func newMetrics() (*prometheus.Registry, *metrics.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewMetrics(reg, metricsNamespace)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServer() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	reg, m := newMetrics()

	ctx, stop := signalContext()
	defer stop()

	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	store := repository.NewAppointmentStore(backend.kv, backend.broker, log, m, repository.AppointmentStoreConfig{
		Key:         cfg.Store.Key,
		MaxBytes:    cfg.Store.MaxBytes,
		CASAttempts: cfg.Store.CASAttempts,
		RetryDelay:  cfg.Store.RetryDelay,
		Channel:     cfg.Broker.Channel,
	})
	watcher := appointment.NewWatcher(store, backend.broker, appointment.WatcherConfig{
		Channel:  store.Channel(),
		Interval: cfg.Watcher.Interval,
	}, m, log)

	trail, err := audit.NewService(cfg.Audit)
	if err != nil {
		return err
	}
	defer func() { _ = trail.Sync() }()

	sessions := session.NewService(auth.NewJWTService(cfg.Session.JWTSecret, tokenIssuer), cfg.Session.TTL, log)
	cat, err := catalog.NewService()
	if err != nil {
		return err
	}
	appointments := appointment.NewService(store, watcher, trail, log)
	dashboards, err := dashboard.NewService(appointments)
	if err != nil {
		return err
	}
	ledger, err := rewards.NewService(cfg.Session.TTL)
	if err != nil {
		return err
	}
	sos, err := emergency.NewService(emergency.NewStubDispatcher(breakerSettings("emergency-dispatch", cfg.Dispatch), nil, log), log)
	if err != nil {
		return err
	}
	gateway := payment.NewStubGateway(breakerSettings("payment-gateway", cfg.Payment), nil, m, log)

	var notifier booking.Notifier
	var workers sync.WaitGroup
	if n := newNotifier(cfg, m, log); n != nil {
		notifier = n
		workers.Add(1)
		go func() {
			defer workers.Done()
			n.Run(ctx)
		}()
	}
	bookings := booking.NewService(cat, store, gateway, notifier, booking.Config{
		MaxFileBytes: cfg.Booking.MaxFileBytes,
		FlowTTL:      cfg.Booking.FlowTTL,
	}, m, log)

	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(err, "appointment watcher stopped")
		}
	}()

	checks := map[string]health.Checker{"store": store}

	r := router.NewRouter(middleware.NewAuthMiddleware(sessions), router.Handlers{
		Health:      health.NewHandler(checks, reg),
		Auth:        authHandler.NewHandler(sessions),
		Doctor:      doctorHandler.NewHandler(cat),
		Booking:     bookingHandler.NewHandler(bookings),
		Appointment: appointmentHandler.NewHandler(appointments),
		Dashboard:   dashboardHandler.NewHandler(dashboards),
		Rewards:     rewardsHandler.NewHandler(ledger),
		Emergency:   emergencyHandler.NewHandler(sos),
		Chatbot:     chatbotHandler.NewHandler(chatbot.NewService(cfg.Chatbot)),
	}, m, router.RouterConfig{
		Mode:         ginMode(cfg.Server.Mode),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateLimit:    cfg.RateLimit,
		CORS:         cfg.CORS,
	})
	r.Setup()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r.Engine(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays zero by default so the SSE stream is not cut.
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.Store.Backend, "broker", cfg.Broker.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			workers.Wait()
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}
	stop()
	workers.Wait()

	log.Info("server exited properly")
	return nil
}

func runNotifier() error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	_, m := newMetrics()

	n := newNotifier(cfg, m, log)
	if n == nil {
		return errors.New("notifications are disabled, enable notifications.email or notifications.sms")
	}

	ctx, stop := signalContext()
	defer stop()

	broker, closeBroker, err := openBroker(ctx, cfg, nil, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	processor := worker.NewEventProcessor(broker, n.HandleEvent, worker.EventProcessorConfig{
		Channel:       cfg.Broker.Channel,
		Workers:       cfg.Notifications.Workers,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}, log, m)

	if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("notifier exited properly")
	return nil
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
