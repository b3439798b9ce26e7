//go:build !gocv

package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"catvton-prep/config"
)

func TestNew_GoCVColorizerWithoutTag(t *testing.T) {
	cfg := testConfig(t)
	cfg.Colorizer = config.ColorizerGoCV

	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.ErrorContains(t, err, "gocv build tag is not enabled")
}
