//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

var gocvColormaps = map[entity.Colormap]gocv.ColormapTypes{
	entity.ColormapParula: gocv.ColormapParula,
	entity.ColormapJet:    gocv.ColormapJet,
	entity.ColormapBone:   gocv.ColormapBone,
}

// GoCVColorizer раскрашивает карту DensePose через cv::applyColorMap
type GoCVColorizer struct{}

// NewGoCVColorizer создаёт раскрашиватель на OpenCV.
func NewGoCVColorizer() *GoCVColorizer {
	return &GoCVColorizer{}
}

// Colorize применяет палитру OpenCV к карте в оттенках серого.
func (c *GoCVColorizer) Colorize(gray *image.Gray, cmap entity.Colormap) (image.Image, error) {
	if gray == nil {
		return nil, errors.New("empty image")
	}
	cvMap, ok := gocvColormaps[cmap]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q", cmap)
	}

	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("gray to mat: %w", err)
	}
	defer src.Close()

	if src.Empty() {
		return nil, errors.New("empty image")
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.ApplyColorMap(src, &dst, cvMap)

	// Mat в BGR, ToImage сам переводит в RGBA.
	img, err := dst.ToImage()
	if err != nil {
		return nil, err
	}
	return img, nil
}

var _ port.Colorizer = (*GoCVColorizer)(nil)
