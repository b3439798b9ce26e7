package entity

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// SourceImage фото человека, загружается один раз на пару
type SourceImage struct {
	Name   string          // имя файла из манифеста
	Path   string          // полный путь к файлу
	Data   []byte          // исходные байты файла
	Bounds image.Rectangle // размеры после декодирования
	Digest string          // md5 от Data
}

// BaseName возвращает имя файла без расширения
func (s *SourceImage) BaseName() string {
	return StripExt(s.Name)
}

// StripExt убирает расширение у имени файла, каталоги сохраняются
func StripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// MaskKey ключ кэша маски: одно фото с разной категорией даёт разные маски
func (s *SourceImage) MaskKey(category ClothType) string {
	return fmt.Sprintf("mask:%s:%s", s.Digest, category)
}

// PoseKey ключ кэша готовой визуализации DensePose
func (s *SourceImage) PoseKey(size int, cmap Colormap) string {
	return fmt.Sprintf("pose:%s:%d:%s", s.Digest, size, cmap)
}
