package entity

import "time"

// Run запуск обработки манифеста
type Run struct {
	ID        string
	Manifest  string
	StartedAt time.Time
}

// RunSummary итоги запуска
type RunSummary struct {
	RunID      string
	Manifest   string
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Aborted    bool
	Failures   []*PairResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRunSummary создаёт пустую сводку для запуска
func NewRunSummary(run *Run, total int) *RunSummary {
	return &RunSummary{
		RunID:     run.ID,
		Manifest:  run.Manifest,
		Total:     total,
		StartedAt: run.StartedAt,
	}
}

// Add учитывает результат обработки пары
func (s *RunSummary) Add(r *PairResult) {
	switch r.State {
	case StateDone:
		s.Succeeded++
	case StateSkipped:
		s.Skipped++
	case StateFailed:
		s.Failed++
		s.Failures = append(s.Failures, r)
	}
}

// Processed количество пар, дошедших до финального состояния
func (s *RunSummary) Processed() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// OK сообщает, что запуск завершён без ошибок
func (s *RunSummary) OK() bool {
	return s.Failed == 0 && !s.Aborted
}

// Duration длительность запуска
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
