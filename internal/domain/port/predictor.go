package port

import (
	"context"
	"image"

	"catvton-prep/internal/domain/entity"
)

// Predictor предобученные модели маскировщика и DensePose
type Predictor interface {
	// Mask строит маску одежды для категории
	Mask(ctx context.Context, img *entity.SourceImage, category entity.ClothType) (image.Image, error)

	// DensePose возвращает карту частей тела в оттенках серого
	DensePose(ctx context.Context, img *entity.SourceImage) (*image.Gray, error)

	// Close освобождает модель и устройство
	Close() error
}

// Colorizer раскрашивает карту DensePose палитрой
type Colorizer interface {
	Colorize(gray *image.Gray, cmap entity.Colormap) (image.Image, error)
}
