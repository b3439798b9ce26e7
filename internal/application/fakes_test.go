package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"catvton-prep/internal/domain/entity"
)

// fakePredictor детерминированная модель: результат зависит только от входа
type fakePredictor struct {
	mu         sync.Mutex
	maskCalls  int
	poseCalls  int
	categories []entity.ClothType
	failOn     string // имя фото, на котором Mask возвращает ошибку
	closed     bool
}

func (f *fakePredictor) Mask(ctx context.Context, img *entity.SourceImage, category entity.ClothType) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.maskCalls++
	f.categories = append(f.categories, category)
	if f.failOn != "" && img.Name == f.failOn {
		return nil, errors.New("cuda out of memory")
	}

	mask := image.NewGray(image.Rect(0, 0, img.Bounds.Dx(), img.Bounds.Dy()))
	for y := 0; y < mask.Bounds().Dy()/2; y++ {
		for x := 0; x < mask.Bounds().Dx(); x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return mask, nil
}

func (f *fakePredictor) DensePose(ctx context.Context, img *entity.SourceImage) (*image.Gray, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.poseCalls++

	parts := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			parts.SetGray(x, y, color.Gray{Y: uint8((x + y) * 16)})
		}
	}
	return parts, nil
}

func (f *fakePredictor) Close() error {
	f.closed = true
	return nil
}

func (f *fakePredictor) calls() (mask, pose int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maskCalls, f.poseCalls
}

type fakeNotifier struct {
	summaries []*entity.RunSummary
	err       error
}

func (n *fakeNotifier) NotifyRun(ctx context.Context, s *entity.RunSummary) error {
	n.summaries = append(n.summaries, s)
	return n.err
}

type memCache struct {
	items map[string]image.Image
	gets  int
}

func (c *memCache) Get(ctx context.Context, key string) (image.Image, bool, error) {
	c.gets++
	img, ok := c.items[key]
	return img, ok, nil
}

func (c *memCache) Put(ctx context.Context, key string, img image.Image) error {
	c.items[key] = img
	return nil
}

type countingMetrics struct {
	pairs     map[entity.PairState]int
	inference map[string]int
	hits      map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		pairs:     map[entity.PairState]int{},
		inference: map[string]int{},
		hits:      map[string]int{},
	}
}

func (m *countingMetrics) ObservePair(r *entity.PairResult)              { m.pairs[r.State]++ }
func (m *countingMetrics) ObserveInference(op string, d time.Duration) { m.inference[op]++ }
func (m *countingMetrics) ObserveCacheHit(kind string)                  { m.hits[kind]++ }

// fixture раскладка входных и выходных каталогов для теста
type fixture struct {
	root     string
	images   string
	cloth    string
	mask     string
	pose     string
	manifest string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	d := &fixture{
		root:     root,
		images:   filepath.Join(root, "image"),
		cloth:    filepath.Join(root, "cloth"),
		mask:     filepath.Join(root, "mask"),
		pose:     filepath.Join(root, "pose"),
		manifest: filepath.Join(root, "pairs.txt"),
	}
	for _, dir := range []string{d.images, d.cloth, d.mask, d.pose} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return d
}

func (d *fixture) addPerson(t *testing.T, name string) {
	t.Helper()
	img := imaging.New(12, 16, color.NRGBA{R: 200, G: 150, B: 120, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(d.images, name)))
}

func (d *fixture) addGarment(t *testing.T, name, sidecar string) {
	t.Helper()
	img := imaging.New(8, 8, color.NRGBA{B: 255, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(d.cloth, name)))
	if sidecar != "" {
		path := strings.TrimSuffix(filepath.Join(d.cloth, name), filepath.Ext(name)) + ".json"
		require.NoError(t, os.WriteFile(path, []byte(sidecar), 0o644))
	}
}

func (d *fixture) writeManifest(t *testing.T, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(d.manifest, []byte(content), 0o644))
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
