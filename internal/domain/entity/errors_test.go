package entity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: ""},
		{name: "malformed", err: fmt.Errorf("line 2: %w", ErrMalformedLine), want: ErrCodeManifestMalformed},
		{name: "sidecar", err: fmt.Errorf("%w: %w", ErrSidecarNotFound, fs.ErrNotExist), want: ErrCodeMetadataNotFound},
		{name: "predictor", err: fmt.Errorf("mask: %w", ErrPredictor), want: ErrCodePredictor},
		{name: "cancelled", err: context.Canceled, want: ErrCodeCancelled},
		{name: "other", err: errors.New("boom"), want: ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestPairError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("%w: garment1.json: %w", ErrSidecarNotFound, fs.ErrNotExist)
	err := &PairError{Line: 4, Image: "person1.jpg", Stage: StageMetadata, Err: inner}

	require.True(t, errors.Is(err, ErrSidecarNotFound))
	require.True(t, errors.Is(err, fs.ErrNotExist))
	require.Contains(t, err.Error(), "line 4 (person1.jpg): metadata")
	require.Equal(t, ErrCodeMetadataNotFound, CodeOf(err))
}
