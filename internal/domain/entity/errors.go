package entity

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode код ошибки для логов, метрик и журнала запусков
type ErrorCode string

const (
	ErrCodeManifestMalformed ErrorCode = "MANIFEST_MALFORMED"
	ErrCodeMetadataNotFound  ErrorCode = "METADATA_NOT_FOUND"
	ErrCodeMetadataInvalid   ErrorCode = "METADATA_INVALID"
	ErrCodeClothTypeMissing  ErrorCode = "CLOTH_TYPE_MISSING"
	ErrCodeUnknownClothType  ErrorCode = "UNKNOWN_CLOTH_TYPE"
	ErrCodeImageUnreadable   ErrorCode = "IMAGE_UNREADABLE"
	ErrCodeOutputWrite       ErrorCode = "OUTPUT_WRITE_FAILED"
	ErrCodePredictor         ErrorCode = "PREDICTOR_FAILED"
	ErrCodeCancelled         ErrorCode = "CANCELLED"
	ErrCodeUnknown           ErrorCode = "UNKNOWN"
)

var (
	ErrMalformedLine    = errors.New("malformed manifest line")
	ErrSidecarNotFound  = errors.New("metadata sidecar not found")
	ErrMetadataInvalid  = errors.New("metadata sidecar is invalid")
	ErrClothTypeMissing = errors.New("cloth_type is missing")
	ErrUnknownClothType = errors.New("unknown cloth_type")
	ErrImageUnreadable  = errors.New("image is unreadable")
	ErrOutputWrite      = errors.New("failed to write output")
	ErrPredictor        = errors.New("predictor failed")
)

var codeBySentinel = []struct {
	err  error
	code ErrorCode
}{
	{context.Canceled, ErrCodeCancelled},
	{context.DeadlineExceeded, ErrCodeCancelled},
	{ErrMalformedLine, ErrCodeManifestMalformed},
	{ErrSidecarNotFound, ErrCodeMetadataNotFound},
	{ErrMetadataInvalid, ErrCodeMetadataInvalid},
	{ErrClothTypeMissing, ErrCodeClothTypeMissing},
	{ErrUnknownClothType, ErrCodeUnknownClothType},
	{ErrImageUnreadable, ErrCodeImageUnreadable},
	{ErrOutputWrite, ErrCodeOutputWrite},
	{ErrPredictor, ErrCodePredictor},
}

// CodeOf возвращает код ошибки по её цепочке обёрток
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	for _, s := range codeBySentinel {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return ErrCodeUnknown
}

// Stage этап обработки пары, на котором произошла ошибка
type Stage string

const (
	StageMetadata Stage = "metadata"
	StageLoad     Stage = "load_image"
	StageMask     Stage = "mask"
	StagePose     Stage = "pose"
)

// PairError ошибка обработки конкретной строки манифеста
type PairError struct {
	Line  int
	Image string
	Stage Stage
	Err   error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("line %d (%s): %s: %v", e.Line, e.Image, e.Stage, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}
