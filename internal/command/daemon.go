package command

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/loomchat/loom/internal/config"
	"github.com/loomchat/loom/internal/decide"
	"github.com/loomchat/loom/internal/engine"
	"github.com/loomchat/loom/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the threading engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Best-effort; tunables also come from config.yaml and the env.
			_ = godotenv.Load()

			project, conn, err := openProject(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			cfg, err := config.Load(project.ConfigPath)
			if err != nil {
				return err
			}
			if pollMS, _ := cmd.Flags().GetInt("poll-ms"); pollMS > 0 {
				cfg.AssignmentPollMS = pollMS
			}

			debug, _ := cmd.Flags().GetBool("debug")
			logger, err := newLogger(debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var provider decide.Provider
			if cfg.GeminiAPIKey != "" {
				gemini, err := decide.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
				if err != nil {
					logger.Warn("gemini provider unavailable, running heuristic-only", zap.Error(err))
				} else {
					provider = gemini
					logger.Info("gemini provider enabled", zap.String("model", cfg.GeminiModel))
				}
			}

			sink := notify.NewLogSink(logger)
			eng := engine.New(conn, cfg, provider, sink, logger)

			logger.Info("loom daemon started",
				zap.String("db", project.DBPath),
				zap.Int("assignment_poll_ms", cfg.AssignmentPollMS),
				zap.Int("lifecycle_poll_ms", cfg.LifecyclePollMS),
				zap.Int("merge_poll_ms", cfg.MergePollMS))

			err = eng.Run(ctx)
			logger.Info("loom daemon stopped")
			if err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().Int("poll-ms", 0, "override assignment poll interval")
	cmd.Flags().Bool("debug", false, "enable debug logging")
	return cmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
