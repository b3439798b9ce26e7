package cache

import (
	"context"
	"image"

	"catvton-prep/internal/domain/port"
)

// Nop кэш-заглушка, всегда промах
type Nop struct{}

func (Nop) Get(ctx context.Context, key string) (image.Image, bool, error) {
	return nil, false, nil
}

func (Nop) Put(ctx context.Context, key string, img image.Image) error {
	return nil
}

var _ port.ResultCache = Nop{}
