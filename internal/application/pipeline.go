package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

const notifyTimeout = 10 * time.Second

// Options параметры обработки манифеста
type Options struct {
	InputImageDir string
	InputClothDir string
	PoseSize      int
	Colormap      entity.Colormap
	KeepGoing     bool // ошибка пары не останавливает запуск
	SkipDone      bool // пропускать пары, уже обработанные по журналу
}

// Deps зависимости конвейера. Cache, Ledger, Metrics и Notifier необязательны.
type Deps struct {
	Manifest  port.ManifestReader
	Metadata  port.MetadataLookup
	Images    port.ImageLoader
	Writer    port.OutputWriter
	Inference *Inference
	Cache     port.ResultCache
	Ledger    port.RunLedger
	Metrics   port.PipelineMetrics
	Notifier  port.RunNotifier
}

// Pipeline последовательно обрабатывает пары манифеста
type Pipeline struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

func NewPipeline(deps Deps, opts Options, logger *zap.Logger) (*Pipeline, error) {
	switch {
	case deps.Manifest == nil:
		return nil, errors.New("manifest reader is not configured")
	case deps.Metadata == nil:
		return nil, errors.New("metadata lookup is not configured")
	case deps.Images == nil:
		return nil, errors.New("image loader is not configured")
	case deps.Writer == nil:
		return nil, errors.New("output writer is not configured")
	case deps.Inference == nil:
		return nil, errors.New("inference is not configured")
	}
	if opts.PoseSize <= 0 {
		return nil, fmt.Errorf("invalid pose size %d", opts.PoseSize)
	}
	if opts.Colormap == "" {
		opts.Colormap = entity.ColormapParula
	}
	if !opts.Colormap.Valid() {
		return nil, fmt.Errorf("unknown colormap %q", opts.Colormap)
	}
	if opts.SkipDone && deps.Ledger == nil {
		return nil, errors.New("skip done requires a run ledger")
	}

	return &Pipeline{deps: deps, opts: opts, logger: logger}, nil
}

// Run обрабатывает манифест целиком.
// Манифест читается полностью до первого вызова модели.
// Без KeepGoing первая ошибка пары прерывает запуск и возвращается.
func (p *Pipeline) Run(ctx context.Context, manifestPath string) (*entity.RunSummary, error) {
	pairs, err := p.deps.Manifest.Read(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	run := &entity.Run{
		ID:        uuid.NewString(),
		Manifest:  manifestPath,
		StartedAt: time.Now(),
	}
	summary := entity.NewRunSummary(run, len(pairs))
	logger := p.logger.With(zap.String("run_id", run.ID))

	if p.deps.Ledger != nil {
		if err := p.deps.Ledger.BeginRun(ctx, run); err != nil {
			return nil, fmt.Errorf("begin run: %w", err)
		}
	}

	logger.Info("Run started",
		zap.String("manifest", manifestPath),
		zap.Int("pairs", len(pairs)),
		zap.Bool("keep_going", p.opts.KeepGoing))

	var runErr error
	for _, pair := range pairs {
		start := time.Now()
		result := p.processPair(ctx, logger, pair)
		result.Duration = time.Since(start)
		summary.Add(result)
		p.record(ctx, logger, run.ID, result)

		if result.State != entity.StateFailed {
			continue
		}

		logger.Error("Pair failed",
			zap.Int("line", pair.Line),
			zap.String("image", pair.Image),
			zap.String("code", string(result.Code)),
			zap.Error(result.Err))

		if !p.opts.KeepGoing || ctx.Err() != nil {
			summary.Aborted = true
			runErr = result.Err
			break
		}
	}

	summary.FinishedAt = time.Now()
	p.finish(ctx, logger, summary)

	return summary, runErr
}

func (p *Pipeline) processPair(ctx context.Context, logger *zap.Logger, pair entity.Pair) *entity.PairResult {
	result := entity.NewPairResult(pair)
	log := logger.With(zap.Int("line", pair.Line), zap.String("image", pair.Image))

	fail := func(stage entity.Stage, err error) *entity.PairResult {
		result.Fail(&entity.PairError{Line: pair.Line, Image: pair.Image, Stage: stage, Err: err})
		return result
	}

	if p.opts.SkipDone {
		done, err := p.deps.Ledger.Completed(ctx, pair)
		if err != nil {
			log.Warn("Ledger lookup failed", zap.Error(err))
		} else if done && p.deps.Writer.Exists(pair.Image) {
			log.Info("Already processed, skipping")
			result.SetState(entity.StateSkipped)
			return result
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(entity.StageMetadata, err)
	}
	category, err := p.deps.Metadata.ClothType(ctx, filepath.Join(p.opts.InputClothDir, pair.Garment))
	if err != nil {
		return fail(entity.StageMetadata, err)
	}
	result.Category = category

	img, err := p.deps.Images.Load(ctx, filepath.Join(p.opts.InputImageDir, pair.Image))
	if err != nil {
		return fail(entity.StageLoad, err)
	}
	img.Name = pair.Image

	log.Info("Generating mask", zap.String("cloth_type", string(category)))
	mask, err := p.cached(ctx, log, "mask", img.MaskKey(category), func() (image.Image, error) {
		return p.deps.Inference.GenerateMask(ctx, img, category)
	})
	if err != nil {
		return fail(entity.StageMask, err)
	}
	maskPath, err := p.deps.Writer.WriteMask(pair.Image, mask)
	if err != nil {
		return fail(entity.StageMask, err)
	}
	result.MaskPath = maskPath
	result.SetState(entity.StateMaskWritten)
	log.Info("Saved mask", zap.String("path", maskPath))

	if err := ctx.Err(); err != nil {
		return fail(entity.StagePose, err)
	}

	log.Info("Generating DensePose")
	key := img.PoseKey(p.opts.PoseSize, p.opts.Colormap)
	pose, err := p.cached(ctx, log, "pose", key, func() (image.Image, error) {
		return p.deps.Inference.GeneratePose(ctx, img, p.opts.PoseSize, p.opts.Colormap)
	})
	if err != nil {
		return fail(entity.StagePose, err)
	}
	posePath, err := p.deps.Writer.WritePose(pair.Image, pose)
	if err != nil {
		return fail(entity.StagePose, err)
	}
	result.PosePath = posePath
	result.SetState(entity.StatePoseWritten)
	log.Info("Saved DensePose", zap.String("path", posePath))

	result.SetState(entity.StateDone)
	return result
}

// cached берёт результат из кэша, иначе вызывает модель и кладёт результат в кэш
func (p *Pipeline) cached(ctx context.Context, log *zap.Logger, kind, key string, infer func() (image.Image, error)) (image.Image, error) {
	if p.deps.Cache != nil {
		img, ok, err := p.deps.Cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("Cache lookup failed", zap.String("key", key), zap.Error(err))
		case ok:
			log.Debug("Cache hit", zap.String("key", key))
			if p.deps.Metrics != nil {
				p.deps.Metrics.ObserveCacheHit(kind)
			}
			return img, nil
		}
	}

	start := time.Now()
	img, err := infer()
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveInference(kind, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	if p.deps.Cache != nil {
		if err := p.deps.Cache.Put(ctx, key, img); err != nil {
			log.Warn("Cache store failed", zap.String("key", key), zap.Error(err))
		}
	}
	return img, nil
}

func (p *Pipeline) record(ctx context.Context, logger *zap.Logger, runID string, result *entity.PairResult) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObservePair(result)
	}
	if p.deps.Ledger == nil {
		return
	}
	if err := p.deps.Ledger.RecordPair(context.WithoutCancel(ctx), runID, result); err != nil {
		logger.Warn("Failed to record pair", zap.Int("line", result.Pair.Line), zap.Error(err))
	}
}

// finish закрывает запуск в журнале и отправляет сводку, даже если контекст отменён
func (p *Pipeline) finish(ctx context.Context, logger *zap.Logger, summary *entity.RunSummary) {
	ctx = context.WithoutCancel(ctx)

	if p.deps.Ledger != nil {
		if err := p.deps.Ledger.FinishRun(ctx, summary); err != nil {
			logger.Warn("Failed to finish run in ledger", zap.Error(err))
		}
	}

	logger.Info("Run finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Bool("aborted", summary.Aborted),
		zap.Duration("duration", summary.Duration()))

	if p.deps.Notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := p.deps.Notifier.NotifyRun(nctx, summary); err != nil {
		logger.Warn("Failed to send run notification", zap.Error(err))
	}
}
