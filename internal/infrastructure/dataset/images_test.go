package dataset

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"catvton-prep/internal/domain/entity"
)

func TestImageLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "person1.png")
	src := imaging.New(8, 6, color.NRGBA{R: 200, A: 255})
	require.NoError(t, imaging.Save(src, path))

	img, err := NewImageLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "person1.png", img.Name)
	require.True(t, filepath.IsAbs(img.Path))
	require.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds)
	require.Equal(t, BytesMD5(img.Data), img.Digest)
	require.Len(t, img.Digest, 32)
}

func TestImageLoader_Unreadable(t *testing.T) {
	dir := t.TempDir()
	loader := NewImageLoader()

	_, err := loader.Load(context.Background(), filepath.Join(dir, "missing.jpg"))
	require.True(t, errors.Is(err, entity.ErrImageUnreadable))

	path := writeFile(t, dir, "broken.jpg", "not an image")
	_, err = loader.Load(context.Background(), path)
	require.True(t, errors.Is(err, entity.ErrImageUnreadable))
	require.Equal(t, entity.ErrCodeImageUnreadable, entity.CodeOf(err))
}

func TestBytesMD5(t *testing.T) {
	require.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", BytesMD5(nil))
}
