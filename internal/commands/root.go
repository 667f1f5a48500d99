// Package commands implements the tutoring CLI: the HTTP server, schema
// migrations, the notification consumer and a development token minter.
package commands

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/app"
	"github.com/iliyamo/tutoring-sessions/internal/config"
	"github.com/iliyamo/tutoring-sessions/internal/database"
)

var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "tutoring",
	Short: "Tutoring session scheduling and hour wallet service",
	Long: `tutoring schedules 1:1 and group tutoring sessions, tracks attendance and
bills students' per-course hour wallets.`,
	SilenceUsage: true,
}

// SetVersion sets the version information
func SetVersion(v, c string) {
	version = v
	commit = c
	rootCmd.Version = v + " (" + commit + ")"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(tokenCmd)
}

// env is what most commands start from.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

// bootstrap loads configuration, builds the logger and opens the
// database.  The caller closes env.
func bootstrap() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg.Env)
	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, errors.Wrap(err, "open database")
	}
	logger.Info("database connected", zap.String("driver", cfg.DBDriver))
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) Close() {
	_ = e.db.Close()
	_ = e.logger.Sync()
}
