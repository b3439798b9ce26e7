package entity

import (
	"fmt"
	"strings"
)

// ClothType категория одежды, по ней маскировщик выбирает область маски
type ClothType string

const (
	ClothUpper   ClothType = "upper"
	ClothLower   ClothType = "lower"
	ClothOverall ClothType = "overall"
	ClothInner   ClothType = "inner"
	ClothOuter   ClothType = "outer"
)

// ClothTypes все допустимые категории
var ClothTypes = []ClothType{ClothUpper, ClothLower, ClothOverall, ClothInner, ClothOuter}

// Valid проверяет, что категория из допустимого набора
func (c ClothType) Valid() bool {
	for _, known := range ClothTypes {
		if c == known {
			return true
		}
	}
	return false
}

// ParseClothType разбирает значение cloth_type из метаданных
func ParseClothType(s string) (ClothType, error) {
	c := ClothType(strings.TrimSpace(s))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownClothType, s)
	}
	return c, nil
}

// Colormap палитра визуализации DensePose
type Colormap string

const (
	ColormapParula Colormap = "parula"
	ColormapJet    Colormap = "jet"
	ColormapBone   Colormap = "bone"
)

// Valid проверяет, что палитра поддерживается
func (c Colormap) Valid() bool {
	switch c {
	case ColormapParula, ColormapJet, ColormapBone:
		return true
	}
	return false
}

// ParseColormap разбирает имя палитры без учёта регистра
func ParseColormap(s string) (Colormap, error) {
	c := Colormap(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown colormap %q", s)
	}
	return c, nil
}
