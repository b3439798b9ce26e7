//go:build !gocv

package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"catvton-prep/internal/domain/entity"
)

func TestGoCVColorizer_StubFails(t *testing.T) {
	_, err := NewGoCVColorizer().Colorize(image.NewGray(image.Rect(0, 0, 1, 1)), entity.ColormapParula)
	require.EqualError(t, err, "gocv build tag is not enabled")
}
