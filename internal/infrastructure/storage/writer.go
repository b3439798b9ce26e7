package storage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

// DefaultMaskSuffix добавляется к имени фото в имени файла маски
const DefaultMaskSuffix = "_mask"

// OutputWriter пишет маски и DensePose в выходные каталоги.
// Каталоги не создаются, они должны существовать заранее.
type OutputWriter struct {
	MaskDir    string
	PoseDir    string
	MaskSuffix string
}

// NewOutputWriter создаёт писателя с суффиксом маски по умолчанию
func NewOutputWriter(maskDir, poseDir string) *OutputWriter {
	return &OutputWriter{
		MaskDir:    maskDir,
		PoseDir:    poseDir,
		MaskSuffix: DefaultMaskSuffix,
	}
}

// CheckDirs проверяет, что выходные каталоги существуют
func (w *OutputWriter) CheckDirs() error {
	for _, dir := range []string{w.MaskDir, w.PoseDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: output directory: %w", entity.ErrOutputWrite, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", entity.ErrOutputWrite, dir)
		}
	}
	return nil
}

// MaskPath путь маски: <MaskDir>/<имя без расширения><суффикс>.png
func (w *OutputWriter) MaskPath(imageName string) string {
	return filepath.Join(w.MaskDir, entity.StripExt(imageName)+w.MaskSuffix+".png")
}

// PosePath путь DensePose: <PoseDir>/<имя фото>
func (w *OutputWriter) PosePath(imageName string) string {
	return filepath.Join(w.PoseDir, imageName)
}

// WriteMask сохраняет маску в PNG
func (w *OutputWriter) WriteMask(imageName string, mask image.Image) (string, error) {
	path := w.MaskPath(imageName)
	if err := imaging.Save(mask, path); err != nil {
		return "", fmt.Errorf("%w: %s: %w", entity.ErrOutputWrite, path, err)
	}
	return path, nil
}

// WritePose сохраняет DensePose под именем исходного фото.
// Формат берётся из расширения, неизвестное расширение пишется как PNG.
func (w *OutputWriter) WritePose(imageName string, pose image.Image) (string, error) {
	path := w.PosePath(imageName)
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.PNG
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", entity.ErrOutputWrite, err)
	}
	if err := imaging.Encode(f, pose, format, imaging.JPEGQuality(95)); err != nil {
		f.Close()
		return "", fmt.Errorf("%w: %s: %w", entity.ErrOutputWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", entity.ErrOutputWrite, path, err)
	}
	return path, nil
}

// Exists сообщает, что маска и DensePose для фото уже записаны
func (w *OutputWriter) Exists(imageName string) bool {
	for _, path := range []string{w.MaskPath(imageName), w.PosePath(imageName)} {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

var _ port.OutputWriter = (*OutputWriter)(nil)
