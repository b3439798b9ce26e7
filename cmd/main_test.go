package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type layout struct {
	root, manifest, images, cloth, mask, pose string
}

func newLayout(t *testing.T) layout {
	t.Helper()
	root := t.TempDir()
	l := layout{
		root:     root,
		manifest: filepath.Join(root, "pairs.txt"),
		images:   filepath.Join(root, "image"),
		cloth:    filepath.Join(root, "cloth"),
		mask:     filepath.Join(root, "mask"),
		pose:     filepath.Join(root, "pose"),
	}
	for _, dir := range []string{l.images, l.cloth, l.mask, l.pose} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	chdir(t, root)
	return l
}

func (l layout) args(extra ...string) []string {
	return append([]string{
		"--file_path", l.manifest,
		"--input_image", l.images,
		"--input_cloth", l.cloth,
		"--output_mask", l.mask,
		"--output_pose", l.pose,
		"--backend", "http",
		"--inference_url", "http://127.0.0.1:1",
		"--log_file", filepath.Join(l.root, "run.log"),
	}, extra...)
}

func TestExecute_EmptyManifest(t *testing.T) {
	l := newLayout(t)
	require.NoError(t, os.WriteFile(l.manifest, nil, 0o644))
	metrics := filepath.Join(l.root, "maskpose.prom")

	code := execute(context.Background(), l.args("--metrics_file", metrics))
	require.Equal(t, exitOK, code)
	require.FileExists(t, filepath.Join(l.root, "run.log"))
	require.FileExists(t, metrics)
}

func TestExecute_MalformedManifest(t *testing.T) {
	l := newLayout(t)
	require.NoError(t, os.WriteFile(l.manifest, []byte("person1.jpg\n"), 0o644))

	require.Equal(t, exitFailure, execute(context.Background(), l.args()))
}

func TestExecute_ConfigErrors(t *testing.T) {
	l := newLayout(t)

	require.Equal(t, exitConfig, execute(context.Background(), []string{"--file_path", l.manifest}))
	require.Equal(t, exitConfig, execute(context.Background(), l.args("--no_such_flag")))
	require.Equal(t, exitConfig, execute(context.Background(), l.args("--colormap", "viridis")))

	require.NoError(t, os.Remove(l.mask))
	require.Equal(t, exitConfig, execute(context.Background(), l.args()))
}

func TestExecute_WorkerFailsToStart(t *testing.T) {
	l := newLayout(t)
	require.NoError(t, os.WriteFile(l.manifest, []byte("person1.jpg garment1.jpg\n"), 0o644))
	ckpt := filepath.Join(l.root, "ckpt")
	require.NoError(t, os.MkdirAll(ckpt, 0o755))

	args := []string{
		"--file_path", l.manifest,
		"--input_image", l.images,
		"--input_cloth", l.cloth,
		"--output_mask", l.mask,
		"--output_pose", l.pose,
		"--catvton_ckpt_path", ckpt,
		"--worker_cmd", filepath.Join(l.root, "missing-python") + " automasker_worker.py",
		"--log_file", filepath.Join(l.root, "run.log"),
	}
	require.Equal(t, exitConfig, execute(context.Background(), args))
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
