//go:build !gocv
// +build !gocv

package vision

import (
	"errors"
	"image"

	"catvton-prep/internal/domain/entity"
)

// GoCVColorizer заглушка для сборки без OpenCV
type GoCVColorizer struct{}

// NewGoCVColorizer создаёт раскрашиватель-заглушку (без OpenCV).
func NewGoCVColorizer() *GoCVColorizer {
	return &GoCVColorizer{}
}

// Colorize возвращает ошибку, если сборка без тега gocv.
func (c *GoCVColorizer) Colorize(gray *image.Gray, cmap entity.Colormap) (image.Image, error) {
	_ = gray
	_ = cmap
	return nil, errors.New("gocv build tag is not enabled")
}
