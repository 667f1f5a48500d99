package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/iliyamo/tutoring-sessions/internal/queue"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
	"github.com/iliyamo/tutoring-sessions/internal/service"
)

var consumeCmd = &cobra.Command{
	Use:   "consume-notifications",
	Short: "Drain the notifications queue into the database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sink := service.NewStoreNotifier(repository.NewStore(env.db))
		env.logger.Info("consuming notifications")
		err = queue.NewConsumer(env.cfg.RabbitURL, sink, env.logger).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
