package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"catvton-prep/internal/domain/entity"
)

func TestRecorder_ObservePair(t *testing.T) {
	r := NewRecorder()

	done := entity.NewPairResult(entity.Pair{Line: 1})
	done.SetState(entity.StateDone)
	r.ObservePair(done)
	r.ObservePair(done)

	failed := entity.NewPairResult(entity.Pair{Line: 2})
	failed.Fail(entity.ErrSidecarNotFound)
	r.ObservePair(failed)

	require.Equal(t, 2.0, testutil.ToFloat64(r.PairsTotal.WithLabelValues("done")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.PairsTotal.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.PairFailures.WithLabelValues("METADATA_NOT_FOUND")))
}

func TestRecorder_InferenceAndCache(t *testing.T) {
	r := NewRecorder()
	r.ObserveInference("mask", 200*time.Millisecond)
	r.ObserveInference("densepose", time.Second)
	r.ObserveCacheHit("pose")

	require.Equal(t, 2, testutil.CollectAndCount(r.InferenceDuration))
	require.Equal(t, 1.0, testutil.ToFloat64(r.CacheHits.WithLabelValues("pose")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveCacheHit("mask")

	path := filepath.Join(t.TempDir(), "maskpose.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `maskpose_cache_hits_total{kind="mask"} 1`)
}
