package entity

import "time"

// PairState состояние обработки пары из манифеста
type PairState string

const (
	StatePending     PairState = "pending"      // Ещё не обработана
	StateMaskWritten PairState = "mask_written" // Маска записана
	StatePoseWritten PairState = "pose_written" // DensePose записан
	StateDone        PairState = "done"         // Пара полностью обработана
	StateFailed      PairState = "failed"       // Обработка прервана ошибкой
	StateSkipped     PairState = "skipped"      // Пропущена, уже обработана ранее
)

// Terminal сообщает, что состояние финальное
func (s PairState) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateSkipped
}

// Pair строка манифеста: фото человека и фото одежды
type Pair struct {
	Line    int    // номер строки в манифесте, с 1
	Image   string // имя файла фото человека
	Garment string // имя файла фото одежды
}

// PairResult итог обработки одной пары
type PairResult struct {
	Pair     Pair
	State    PairState
	Category ClothType
	MaskPath string
	PosePath string
	Code     ErrorCode
	Err      error
	Duration time.Duration
}

// NewPairResult создаёт результат в начальном состоянии
func NewPairResult(p Pair) *PairResult {
	return &PairResult{
		Pair:  p,
		State: StatePending,
	}
}

// SetState обновляет состояние пары
func (r *PairResult) SetState(state PairState) {
	r.State = state
}

// Fail переводит пару в состояние ошибки
func (r *PairResult) Fail(err error) {
	r.State = StateFailed
	r.Err = err
	r.Code = CodeOf(err)
}
