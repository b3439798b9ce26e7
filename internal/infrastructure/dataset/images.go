package dataset

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

// ImageLoader читает и проверяет фото человека
type ImageLoader struct{}

func NewImageLoader() *ImageLoader {
	return &ImageLoader{}
}

// Load читает файл, декодирует его для проверки и считает md5
func (l *ImageLoader) Load(ctx context.Context, path string) (*entity.SourceImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrImageUnreadable, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", entity.ErrImageUnreadable, path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return &entity.SourceImage{
		Name:   filepath.Base(path),
		Path:   abs,
		Data:   data,
		Bounds: img.Bounds(),
		Digest: BytesMD5(data),
	}, nil
}

// BytesMD5 считает md5 массива байт
func BytesMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

var _ port.ImageLoader = (*ImageLoader)(nil)
