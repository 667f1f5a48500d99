package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/config"
	"github.com/iliyamo/tutoring-sessions/internal/database"
	"github.com/iliyamo/tutoring-sessions/internal/queue"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
	"github.com/iliyamo/tutoring-sessions/internal/router"
	"github.com/iliyamo/tutoring-sessions/internal/service"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := bootstrap()
	if err != nil {
		return err
	}
	defer env.Close()
	cfg, logger := env.cfg, env.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !skipMigrate {
		m, err := database.NewMigrator(env.db, logger)
		if err != nil {
			return err
		}
		if err := m.Run(ctx); err != nil {
			return err
		}
	}

	store := repository.NewStore(env.db)
	notifier, flush := newNotifier(cfg, store, logger)
	defer flush()

	svc := service.New(store, notifier, logger, service.Options{
		EnforceAvailability: cfg.EnforceAvailability,
		CancelRefund:        service.RefundPolicy(cfg.CancelRefundPolicy),
	})

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	e := router.New(router.Deps{
		DB:        env.db,
		Services:  svc,
		Logger:    logger,
		JWTSecret: cfg.JWTSecret,
		Timeout:   cfg.DBTimeout,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("version", version))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newNotifier picks the notification transport.  The returned func waits
// for in-flight deliveries.
func newNotifier(cfg config.Config, store *repository.Store, logger *zap.Logger) (service.Notifier, func()) {
	switch cfg.NotifyTransport {
	case "amqp":
		p := queue.NewPublisher(cfg.RabbitURL, cfg.PublishTimeout, logger)
		return p, p.Wait
	case "none":
		return service.NopNotifier{}, func() {}
	default:
		return service.NewStoreNotifier(store), func() {}
	}
}
