package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dialog-agent/web"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP dialogue API",
		Long: `Serve the dialogue API until interrupted.

Weariness snapshots are saved periodically and on shutdown when a
PERSISTENCE_BACKEND is configured.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	_ = viper.BindPFlag("WEB_PORT", cmd.Flags().Lookup("port"))
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger := app.cfg, app.logger

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	snapshotsDone := make(chan struct{})
	if rt.snapshots != nil {
		svc := web.NewSnapshotService(rt.engine, rt.snapshots, logger)
		go func() {
			svc.Run(ctx, cfg.SnapshotInterval, cfg.RelationshipIdleTimeout)
			close(snapshotsDone)
		}()
	} else {
		close(snapshotsDone)
	}

	server := web.NewServer(rt.engine, logger, cfg)
	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting dialogue server",
		zap.String("port", port),
		zap.String("corpus_source", cfg.CorpusSource),
		zap.String("persistence", cfg.PersistenceBackend))

	serveErr := server.Start(ctx, port)
	// Start returns early on a listen error; stop the snapshot loop too.
	cancel()
	<-snapshotsDone
	if serveErr != nil && serveErr != context.Canceled {
		return fmt.Errorf("web server: %w", serveErr)
	}
	return nil
}
