package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"catvton-prep/internal/domain/entity"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadManifest(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pairs.txt",
		"person1.jpg garment1.jpg\n\n  person2.jpg\tgarment2.jpg  \nperson1.jpg garment1.jpg\n")

	pairs, err := ReadManifest(path)
	require.NoError(t, err)
	require.Equal(t, []entity.Pair{
		{Line: 1, Image: "person1.jpg", Garment: "garment1.jpg"},
		{Line: 3, Image: "person2.jpg", Garment: "garment2.jpg"},
		{Line: 4, Image: "person1.jpg", Garment: "garment1.jpg"},
	}, pairs)
}

func TestReadManifest_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pairs.txt", "")

	pairs, err := ReadManifest(path)
	require.NoError(t, err)
	require.Empty(t, pairs)
}

func TestReadManifest_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "one token", content: "person1.jpg garment1.jpg\nperson2.jpg\n"},
		{name: "three tokens", content: "a.jpg b.jpg c.jpg\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "pairs.txt", tt.content)
			_, err := ReadManifest(path)
			require.Error(t, err)
			require.True(t, errors.Is(err, entity.ErrMalformedLine))
		})
	}
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestManifestScanner_StopsAtMalformedLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pairs.txt", "a.jpg b.jpg\nbroken\nc.jpg d.jpg\n")

	m, err := OpenManifest(path)
	require.NoError(t, err)
	defer m.Close()

	require.True(t, m.Next())
	require.Equal(t, "a.jpg", m.Pair().Image)
	require.False(t, m.Next())
	require.ErrorContains(t, m.Err(), "line 2")
	require.False(t, m.Next())
}

func TestManifestScanner_Restartable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pairs.txt", "a.jpg b.jpg\nc.jpg d.jpg\n")

	first, err := ReadManifest(path)
	require.NoError(t, err)
	second, err := FileManifestReader{}.Read(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
