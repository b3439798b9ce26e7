package storage

import (
	"context"
	"sync"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

type pairKey struct {
	image   string
	garment string
}

// MemoryLedger in-memory журнал запусков, живёт до конца процесса
type MemoryLedger struct {
	mu        sync.RWMutex
	runs      map[string]*entity.RunSummary
	results   map[string][]entity.PairResult
	completed map[pairKey]bool
}

// NewMemoryLedger создаёт пустой журнал
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		runs:      make(map[string]*entity.RunSummary),
		results:   make(map[string][]entity.PairResult),
		completed: make(map[pairKey]bool),
	}
}

// BeginRun регистрирует запуск
func (l *MemoryLedger) BeginRun(ctx context.Context, run *entity.Run) error {
	l.mu.Lock()
	l.runs[run.ID] = entity.NewRunSummary(run, 0)
	l.mu.Unlock()

	return nil
}

// RecordPair сохраняет копию результата пары
func (l *MemoryLedger) RecordPair(ctx context.Context, runID string, result *entity.PairResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.results[runID] = append(l.results[runID], *result)
	if result.State == entity.StateDone {
		l.completed[pairKey{result.Pair.Image, result.Pair.Garment}] = true
	}

	return nil
}

// FinishRun сохраняет итоговую сводку
func (l *MemoryLedger) FinishRun(ctx context.Context, summary *entity.RunSummary) error {
	l.mu.Lock()
	copied := *summary
	l.runs[summary.RunID] = &copied
	l.mu.Unlock()

	return nil
}

// Completed сообщает, что пара уже обработана успешно
func (l *MemoryLedger) Completed(ctx context.Context, pair entity.Pair) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.completed[pairKey{pair.Image, pair.Garment}], nil
}

// Results возвращает записанные результаты запуска
func (l *MemoryLedger) Results(runID string) []entity.PairResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]entity.PairResult(nil), l.results[runID]...)
}

// Run возвращает сводку запуска
func (l *MemoryLedger) Run(runID string) (*entity.RunSummary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.runs[runID]
	return s, ok
}

// Проверка реализации интерфейса
var _ port.RunLedger = (*MemoryLedger)(nil)
