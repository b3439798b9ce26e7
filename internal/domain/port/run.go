package port

import (
	"context"
	"image"
	"time"

	"catvton-prep/internal/domain/entity"
)

// ResultCache кэш результатов инференса
type ResultCache interface {
	// Get возвращает изображение по ключу, ok=false при промахе
	Get(ctx context.Context, key string) (img image.Image, ok bool, err error)

	// Put сохраняет изображение по ключу
	Put(ctx context.Context, key string, img image.Image) error
}

// RunLedger журнал запусков и результатов по парам
type RunLedger interface {
	BeginRun(ctx context.Context, run *entity.Run) error
	RecordPair(ctx context.Context, runID string, result *entity.PairResult) error
	FinishRun(ctx context.Context, summary *entity.RunSummary) error

	// Completed сообщает, что пара уже была успешно обработана в одном из запусков
	Completed(ctx context.Context, pair entity.Pair) (bool, error)
}

// RunNotifier отправляет сводку по завершении запуска
type RunNotifier interface {
	NotifyRun(ctx context.Context, summary *entity.RunSummary) error
}

// PipelineMetrics метрики обработки
type PipelineMetrics interface {
	ObservePair(result *entity.PairResult)
	ObserveInference(op string, d time.Duration)
	ObserveCacheHit(kind string)
}
