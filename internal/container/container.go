package container

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"go.uber.org/zap"

	"catvton-prep/config"
	telegram "catvton-prep/internal/api"
	app "catvton-prep/internal/application"
	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
	"catvton-prep/internal/infrastructure/cache"
	"catvton-prep/internal/infrastructure/checkpoint"
	"catvton-prep/internal/infrastructure/dataset"
	"catvton-prep/internal/infrastructure/metrics"
	"catvton-prep/internal/infrastructure/predictor"
	"catvton-prep/internal/infrastructure/storage"
	"catvton-prep/internal/infrastructure/vision"
)

// Container собранные зависимости одного запуска
type Container struct {
	Inference *app.Inference
	Pipeline  *app.Pipeline
	Metrics   *metrics.Recorder

	closers []func() error
	logger  *zap.Logger
}

// PredictorFactory запускает модели по каталогу чекпоинта
type PredictorFactory func(ctx context.Context, cfg *config.Config, ckptDir string, logger *zap.Logger) (port.Predictor, error)

// New собирает зависимости по конфигу: чекпоинт, модели, кэш, журнал, уведомления
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	return NewWithPredictor(ctx, cfg, logger, StartPredictor)
}

// NewWithPredictor то же, что New, но с заданным способом запуска моделей
func NewWithPredictor(ctx context.Context, cfg *config.Config, logger *zap.Logger, start PredictorFactory) (_ *Container, err error) {
	c := &Container{logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	writer := storage.NewOutputWriter(cfg.OutputMask, cfg.OutputPose)
	if err := writer.CheckDirs(); err != nil {
		return nil, err
	}

	metadata, err := dataset.NewMetadataLookup()
	if err != nil {
		return nil, err
	}

	colorizer, err := newColorizer(cfg.Colorizer)
	if err != nil {
		return nil, err
	}

	ckptDir := cfg.CkptPath
	if cfg.Backend == config.BackendWorker {
		resolver := checkpoint.NewResolver(checkpoint.ConfigFromEnv(), logger)
		if ckptDir, err = resolver.Resolve(ctx, cfg.CkptPath); err != nil {
			return nil, fmt.Errorf("resolve checkpoint: %w", err)
		}
	}

	pred, err := start(ctx, cfg, ckptDir, logger)
	if err != nil {
		return nil, err
	}
	inference, err := app.NewInference(pred, colorizer, logger)
	if err != nil {
		pred.Close()
		return nil, err
	}
	c.Inference = inference
	c.closers = append(c.closers, inference.Close)
	logger.Info("Predictor initialised", zap.String("backend", cfg.Backend))

	deps := app.Deps{
		Manifest:  dataset.FileManifestReader{},
		Metadata:  metadata,
		Images:    dataset.NewImageLoader(),
		Writer:    writer,
		Inference: inference,
	}

	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		deps.Cache = rc
		c.closers = append(c.closers, rc.Close)
	}

	if cfg.Ledger != "" {
		ledger, err := storage.NewSQLiteLedger(cfg.Ledger)
		if err != nil {
			return nil, err
		}
		deps.Ledger = ledger
		c.closers = append(c.closers, ledger.Close)
	} else {
		deps.Ledger = storage.NewMemoryLedger()
	}

	c.Metrics = metrics.NewRecorder()
	deps.Metrics = c.Metrics

	if cfg.NotifyEnabled() {
		notifier, err := telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			// уведомления не должны мешать запуску
			logger.Warn("Telegram notifier disabled", zap.Error(err))
		} else {
			deps.Notifier = notifier
		}
	}

	c.Pipeline, err = app.NewPipeline(deps, app.Options{
		InputImageDir: cfg.InputImage,
		InputClothDir: cfg.InputCloth,
		PoseSize:      cfg.PoseSize,
		Colormap:      cfg.PoseColormap(),
		KeepGoing:     cfg.KeepGoing,
		SkipDone:      cfg.SkipDone,
	}, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// StartPredictor запускает бэкенд моделей из конфига
func StartPredictor(ctx context.Context, cfg *config.Config, ckptDir string, logger *zap.Logger) (port.Predictor, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		return predictor.NewHTTPClient(cfg.InferenceURL, cfg.InferenceTimeout, logger), nil
	case config.BackendWorker:
		return predictor.StartWorker(ctx, predictor.WorkerConfig{
			Command:       cfg.WorkerCommand(),
			DensePoseCkpt: filepath.Join(ckptDir, "DensePose"),
			SCHPCkpt:      filepath.Join(ckptDir, "SCHP"),
			Device:        cfg.Device,
			ReadyTimeout:  cfg.WorkerReady,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newColorizer(name string) (port.Colorizer, error) {
	var colorizer port.Colorizer
	switch name {
	case config.ColorizerLUT, "":
		colorizer = vision.NewLUTColorizer()
	case config.ColorizerGoCV:
		colorizer = vision.NewGoCVColorizer()
	default:
		return nil, fmt.Errorf("unknown colorizer %q", name)
	}

	// сборка без OpenCV должна падать до загрузки моделей
	sample := image.NewGray(image.Rect(0, 0, 1, 1))
	if _, err := colorizer.Colorize(sample, entity.ColormapParula); err != nil {
		return nil, fmt.Errorf("colorizer %s: %w", name, err)
	}
	return colorizer, nil
}

// Close освобождает ресурсы в обратном порядке
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
