package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

// curve кусочно-линейная функция канала на [0, 1]
type curve struct {
	pos []float64
	val []float64
}

func (c curve) at(x float64) float64 {
	for k := 1; k < len(c.pos); k++ {
		if x <= c.pos[k] {
			t := (x - c.pos[k-1]) / (c.pos[k] - c.pos[k-1])
			return c.val[k-1] + (c.val[k]-c.val[k-1])*t
		}
	}
	return c.val[len(c.val)-1]
}

// palette три канала палитры
type palette struct {
	r, g, b curve
}

// evenly раскладывает опорные значения с равным шагом
func evenly(vals ...float64) curve {
	pos := make([]float64, len(vals))
	for k := range vals {
		pos[k] = float64(k) / float64(len(vals)-1)
	}
	return curve{pos: pos, val: vals}
}

// Parula: 8 опорных точек cv::colormap::Parula с шагом 1/7.
// Jet и Bone: кусочно-линейные определения, которые табулирует OpenCV.
var palettes = map[entity.Colormap]palette{
	entity.ColormapParula: {
		r: evenly(0.2078, 0.0118, 0.0784, 0.0235, 0.2196, 0.5725, 0.8510, 0.9765),
		g: evenly(0.1647, 0.3882, 0.5216, 0.6549, 0.7255, 0.7490, 0.7294, 0.9843),
		b: evenly(0.5294, 0.8824, 0.8314, 0.7765, 0.6196, 0.4510, 0.3373, 0.0549),
	},
	entity.ColormapJet: {
		r: curve{pos: []float64{0, 0.35, 0.66, 0.89, 1}, val: []float64{0, 0, 1, 1, 0.5}},
		g: curve{pos: []float64{0, 0.125, 0.375, 0.64, 0.91, 1}, val: []float64{0, 0, 1, 1, 0, 0}},
		b: curve{pos: []float64{0, 0.11, 0.34, 0.65, 1}, val: []float64{0.5, 1, 1, 0, 0}},
	},
	// bone = (7*gray + hot с переставленными каналами) / 8
	entity.ColormapBone: {
		r: curve{pos: []float64{0, 0.75, 1}, val: []float64{0, 0.65625, 1}},
		g: curve{pos: []float64{0, 0.375, 0.75, 1}, val: []float64{0, 0.328125, 0.78125, 1}},
		b: curve{pos: []float64{0, 0.375, 1}, val: []float64{0, 0.453125, 1}},
	},
}

// LUT таблица из 256 цветов для одной палитры
type LUT [256]color.NRGBA

// BuildLUT строит таблицу: индекс i берёт значение палитры в точке i/255
func BuildLUT(cmap entity.Colormap) (*LUT, error) {
	p, ok := palettes[cmap]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q", cmap)
	}

	var lut LUT
	for i := range lut {
		x := float64(i) / 255
		lut[i] = color.NRGBA{
			R: to8(p.r.at(x)),
			G: to8(p.g.at(x)),
			B: to8(p.b.at(x)),
			A: 255,
		}
	}
	return &lut, nil
}

func to8(v float64) uint8 {
	return uint8(math.Min(math.Max(math.Round(v*255), 0), 255))
}

// LUTColorizer раскрашивает карту DensePose без OpenCV
type LUTColorizer struct {
	luts map[entity.Colormap]*LUT
}

// NewLUTColorizer заранее строит таблицы для всех палитр
func NewLUTColorizer() *LUTColorizer {
	luts := make(map[entity.Colormap]*LUT, len(palettes))
	for cmap := range palettes {
		lut, _ := BuildLUT(cmap)
		luts[cmap] = lut
	}
	return &LUTColorizer{luts: luts}
}

// Colorize заменяет каждое значение серого цветом палитры
func (c *LUTColorizer) Colorize(gray *image.Gray, cmap entity.Colormap) (image.Image, error) {
	if gray == nil {
		return nil, errors.New("empty image")
	}
	lut, ok := c.luts[cmap]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q", cmap)
	}

	b := gray.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetNRGBA(x, y, lut[gray.GrayAt(x, y).Y])
		}
	}
	return out, nil
}

var _ port.Colorizer = (*LUTColorizer)(nil)
