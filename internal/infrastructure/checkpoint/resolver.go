package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://huggingface.co"
	DefaultRevision = "main"
)

// DefaultPatterns каталоги чекпоинта, нужные маскировщику
var DefaultPatterns = []string{"DensePose/", "SCHP/"}

var ErrInvalidRepo = errors.New("invalid checkpoint repo id")

// Config настройки загрузки с Hugging Face Hub
type Config struct {
	Endpoint string
	Token    string
	CacheDir string
	Revision string
	Patterns []string
	Timeout  time.Duration
}

// ConfigFromEnv читает HF_ENDPOINT, HF_TOKEN и HF_HOME
func ConfigFromEnv() Config {
	cfg := Config{
		Endpoint: os.Getenv("HF_ENDPOINT"),
		Token:    os.Getenv("HF_TOKEN"),
	}
	if home := os.Getenv("HF_HOME"); home != "" {
		cfg.CacheDir = filepath.Join(home, "hub")
	}
	return cfg
}

// Resolver находит локальный каталог чекпоинта, при необходимости скачивает его
type Resolver struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Revision == "" {
		cfg.Revision = DefaultRevision
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultPatterns
	}
	if cfg.CacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.CacheDir = filepath.Join(home, ".cache", "huggingface", "hub")
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &Resolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type modelInfo struct {
	SHA      string `json:"sha"`
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

// Resolve возвращает существующий путь как есть, иначе скачивает снапшот репозитория
func (r *Resolver) Resolve(ctx context.Context, pathOrRepo string) (string, error) {
	if _, err := os.Stat(pathOrRepo); err == nil {
		return pathOrRepo, nil
	}

	if !validRepoID(pathOrRepo) {
		return "", fmt.Errorf("%w: %q is neither an existing path nor org/name", ErrInvalidRepo, pathOrRepo)
	}
	if r.cfg.CacheDir == "" {
		return "", errors.New("checkpoint cache dir is not set")
	}

	info, err := r.modelInfo(ctx, pathOrRepo)
	if err != nil {
		return "", err
	}

	repoDir := filepath.Join(r.cfg.CacheDir, "models--"+strings.ReplaceAll(pathOrRepo, "/", "--"))
	snapshot := filepath.Join(repoDir, "snapshots", info.SHA)

	r.logger.Info("Resolving checkpoint",
		zap.String("repo", pathOrRepo),
		zap.String("revision", info.SHA),
		zap.String("dir", snapshot))

	for _, s := range info.Siblings {
		name := s.RFilename
		if !r.wanted(name) {
			continue
		}
		if !filepath.IsLocal(name) {
			return "", fmt.Errorf("checkpoint file %q escapes snapshot dir", name)
		}
		dst := filepath.Join(snapshot, filepath.FromSlash(name))
		if _, err := os.Stat(dst); err == nil {
			r.logger.Debug("Checkpoint file cached", zap.String("file", name))
			continue
		}
		if err := r.download(ctx, pathOrRepo, info.SHA, name, dst); err != nil {
			return "", err
		}
	}

	if err := writeRef(repoDir, r.cfg.Revision, info.SHA); err != nil {
		return "", err
	}
	return snapshot, nil
}

func (r *Resolver) wanted(name string) bool {
	for _, p := range r.cfg.Patterns {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func (r *Resolver) modelInfo(ctx context.Context, repo string) (*modelInfo, error) {
	u := fmt.Sprintf("%s/api/models/%s/revision/%s", r.cfg.Endpoint, repo, url.PathEscape(r.cfg.Revision))
	resp, err := r.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("model info %s: %w", repo, err)
	}
	defer resp.Body.Close()

	var info modelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode model info %s: %w", repo, err)
	}
	if info.SHA == "" {
		return nil, fmt.Errorf("model info %s: empty revision sha", repo)
	}
	return &info, nil
}

func (r *Resolver) download(ctx context.Context, repo, sha, name, dst string) error {
	u := fmt.Sprintf("%s/%s/resolve/%s/%s", r.cfg.Endpoint, repo, sha, name)

	r.logger.Info("Downloading checkpoint file", zap.String("file", name))

	resp, err := r.get(ctx, u)
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("move %s into snapshot: %w", name, err)
	}
	return nil
}

func (r *Resolver) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if r.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

func writeRef(repoDir, revision, sha string) error {
	refs := filepath.Join(repoDir, "refs")
	if err := os.MkdirAll(refs, 0o755); err != nil {
		return fmt.Errorf("create refs dir: %w", err)
	}
	return os.WriteFile(filepath.Join(refs, revision), []byte(sha), 0o644)
}

func validRepoID(s string) bool {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return false
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return false
		}
	}
	return true
}
