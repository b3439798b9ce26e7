package port

import (
	"context"
	"image"

	"catvton-prep/internal/domain/entity"
)

// ManifestReader читает пары из манифеста
type ManifestReader interface {
	Read(path string) ([]entity.Pair, error)
}

// MetadataLookup возвращает категорию одежды из JSON рядом с фото
type MetadataLookup interface {
	ClothType(ctx context.Context, garmentPath string) (entity.ClothType, error)
}

// ImageLoader загружает фото человека
type ImageLoader interface {
	Load(ctx context.Context, path string) (*entity.SourceImage, error)
}

// OutputWriter сохраняет сгенерированные изображения
type OutputWriter interface {
	// WriteMask пишет маску и возвращает путь к файлу
	WriteMask(imageName string, mask image.Image) (string, error)

	// WritePose пишет визуализацию DensePose и возвращает путь к файлу
	WritePose(imageName string, pose image.Image) (string, error)

	// Exists проверяет, что оба выхода для фото уже есть на диске
	Exists(imageName string) bool
}
