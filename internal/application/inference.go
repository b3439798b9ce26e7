package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

// Inference контекст инференса: загруженные модели и палитра DensePose.
// Модели загружаются до создания (predictor уже знает чекпоинт и устройство),
// освобождаются через Close. Ускоритель один, поэтому вызовы идут по одному.
type Inference struct {
	mu        sync.Mutex
	predictor port.Predictor
	colorizer port.Colorizer
	logger    *zap.Logger
	closed    bool
}

func NewInference(predictor port.Predictor, colorizer port.Colorizer, logger *zap.Logger) (*Inference, error) {
	if predictor == nil {
		return nil, errors.New("predictor is not configured")
	}
	if colorizer == nil {
		return nil, errors.New("colorizer is not configured")
	}
	return &Inference{
		predictor: predictor,
		colorizer: colorizer,
		logger:    logger,
	}, nil
}

// GenerateMask строит маску одежды заданной категории
func (i *Inference) GenerateMask(ctx context.Context, img *entity.SourceImage, category entity.ClothType) (image.Image, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownClothType, category)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, fmt.Errorf("%w: inference is closed", entity.ErrPredictor)
	}

	mask, err := i.predictor.Mask(ctx, img, category)
	if err != nil {
		return nil, fmt.Errorf("%w: mask: %w", entity.ErrPredictor, err)
	}
	return mask, nil
}

// GeneratePose строит DensePose, приводит к квадрату size и раскрашивает палитрой
func (i *Inference) GeneratePose(ctx context.Context, img *entity.SourceImage, size int, cmap entity.Colormap) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid pose size %d", size)
	}
	if !cmap.Valid() {
		return nil, fmt.Errorf("unknown colormap %q", cmap)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, fmt.Errorf("%w: inference is closed", entity.ErrPredictor)
	}

	parts, err := i.predictor.DensePose(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: densepose: %w", entity.ErrPredictor, err)
	}

	// метки частей тела нельзя смешивать, только ближайший сосед
	resized := parts
	if b := parts.Bounds(); b.Dx() != size || b.Dy() != size {
		resized = grayOf(imaging.Resize(parts, size, size, imaging.NearestNeighbor))
	}

	pose, err := i.colorizer.Colorize(resized, cmap)
	if err != nil {
		return nil, fmt.Errorf("colorize densepose: %w", err)
	}
	return pose, nil
}

// Close освобождает модели, повторный вызов ничего не делает
func (i *Inference) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true

	i.logger.Debug("Releasing predictor")
	return i.predictor.Close()
}

func grayOf(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}
