package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catvton-prep/config"
	"catvton-prep/internal/container"
	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/infrastructure/checkpoint"
	"catvton-prep/internal/infrastructure/logging"
	"catvton-prep/internal/infrastructure/predictor"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string) int {
	code := exitOK

	cmd := &cobra.Command{
		Use:           "generate-mask-pose",
		Short:         "Generate garment masks and DensePose images for try-on pairs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				code = exitConfig
				return err
			}
			code, err = generate(cmd.Context(), cfg)
			return err
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if code == exitOK {
			// ошибка разбора флагов
			code = exitConfig
		}
	}
	return code
}

// isStartupConfigError ошибки окружения, которые исправляются настройкой запуска
func isStartupConfigError(err error) bool {
	return errors.Is(err, entity.ErrOutputWrite) ||
		errors.Is(err, checkpoint.ErrInvalidRepo) ||
		errors.Is(err, predictor.ErrWorkerStart)
}

func generate(ctx context.Context, cfg *config.Config) (int, error) {
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = logging.DefaultLogFile()
	}
	logger, closeLog, err := logging.New(logging.Config{Debug: cfg.Debug, LogFile: logFile})
	if err != nil {
		return exitConfig, err
	}
	defer closeLog()

	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Initialisation failed", zap.Error(err))
		if isStartupConfigError(err) {
			return exitConfig, err
		}
		return exitFailure, err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to release resources", zap.Error(err))
		}
	}()

	summary, err := c.Pipeline.Run(ctx, cfg.FilePath)

	if cfg.MetricsFile != "" {
		if werr := c.Metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Warn("Failed to write metrics", zap.Error(werr))
		}
	}

	if err != nil {
		logger.Error("Run failed", zap.Error(err))
		return exitFailure, err
	}
	if !summary.OK() {
		for _, f := range summary.Failures {
			logger.Error("Failed pair",
				zap.Int("line", f.Pair.Line),
				zap.String("image", f.Pair.Image),
				zap.String("code", string(f.Code)),
				zap.Error(f.Err))
		}
		return exitFailure, fmt.Errorf("%d of %d pairs failed", summary.Failed, summary.Total)
	}
	return exitOK, nil
}
