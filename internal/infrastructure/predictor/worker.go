package predictor

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

const (
	responsePrefix      = "json"
	DefaultReadyTimeout = 10 * time.Minute
)

// ErrWorkerStart процесс не дошёл до строки готовности
var ErrWorkerStart = errors.New("predictor worker failed to start")

// WorkerConfig параметры запуска процесса с моделями
type WorkerConfig struct {
	Command       []string // команда и её аргументы, например python automasker_worker.py
	DensePoseCkpt string
	SCHPCkpt      string
	Device        string
	Env           []string  // добавляется к окружению текущего процесса
	Stderr        io.Writer // по умолчанию os.Stderr
	ReadyTimeout  time.Duration
}

type workerRequest struct {
	ID        int64  `json:"id"`
	Op        string `json:"op"`
	Image     string `json:"image"`
	ClothType string `json:"cloth_type,omitempty"`
}

type workerResponse struct {
	ID    int64  `json:"id"`
	Ready bool   `json:"ready,omitempty"`
	PNG   string `json:"png,omitempty"`
	Error string `json:"error,omitempty"`
}

// Worker держит модели в отдельном долгоживущем процессе.
// Запросы идут строками JSON в stdin, ответы читаются из stdout.
type Worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	rd     *bufio.Reader
	logger *zap.Logger

	mu     sync.Mutex
	nextID int64
	broken error
}

// StartWorker запускает процесс и ждёт строку json{"ready":true},
// которую процесс печатает после загрузки моделей.
func StartWorker(ctx context.Context, cfg WorkerConfig, logger *zap.Logger) (*Worker, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("worker command is empty")
	}

	args := append([]string{}, cfg.Command[1:]...)
	args = append(args,
		"--densepose_ckpt", cfg.DensePoseCkpt,
		"--schp_ckpt", cfg.SCHPCkpt,
		"--device", cfg.Device,
	)
	cmd := exec.Command(cfg.Command[0], args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stderr = cfg.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkerStart, err)
	}

	logger.Info("Predictor worker started, loading models",
		zap.String("command", strings.Join(cfg.Command, " ")),
		zap.String("device", cfg.Device),
		zap.Int("pid", cmd.Process.Pid))

	w := &Worker{
		cmd:    cmd,
		stdin:  stdin,
		rd:     bufio.NewReader(stdout),
		logger: logger,
	}

	timeout := cfg.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	if err := w.waitReady(ctx, timeout); err != nil {
		_ = cmd.Process.Kill()
		if werr := cmd.Wait(); werr != nil {
			return nil, fmt.Errorf("%w: %w (%v)", ErrWorkerStart, err, werr)
		}
		return nil, fmt.Errorf("%w: %w", ErrWorkerStart, err)
	}

	logger.Info("Predictor worker ready")
	return w, nil
}

func (w *Worker) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		resp, err := w.readResponse()
		switch {
		case err != nil:
			done <- err
		case resp.Error != "":
			done <- errors.New(resp.Error)
		case !resp.Ready:
			done <- errors.New("first response is not a ready line")
		default:
			done <- nil
		}
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("waiting for ready line: %w", ctx.Err())
	}
}

// Mask просит процесс построить маску для категории одежды
func (w *Worker) Mask(ctx context.Context, img *entity.SourceImage, category entity.ClothType) (image.Image, error) {
	resp, err := w.call(ctx, workerRequest{Op: "mask", Image: img.Path, ClothType: string(category)})
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

// DensePose просит процесс построить карту частей тела
func (w *Worker) DensePose(ctx context.Context, img *entity.SourceImage) (*image.Gray, error) {
	resp, err := w.call(ctx, workerRequest{Op: "densepose", Image: img.Path})
	if err != nil {
		return nil, err
	}
	decoded, err := decodeResponse(resp)
	if err != nil {
		return nil, err
	}
	return toGray(decoded), nil
}

func (w *Worker) call(ctx context.Context, req workerRequest) (*workerResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.broken != nil {
		return nil, fmt.Errorf("worker is not running: %w", w.broken)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.nextID++
	req.ID = w.nextID
	line, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := w.stdin.Write(append(line, '\n')); err != nil {
		w.broken = err
		return nil, fmt.Errorf("write request: %w", err)
	}

	type result struct {
		resp *workerResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := w.readResponse()
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			w.broken = r.err
			return nil, r.err
		}
		if r.resp.ID != req.ID {
			w.broken = fmt.Errorf("response id %d does not match request id %d", r.resp.ID, req.ID)
			return nil, w.broken
		}
		return r.resp, nil
	case <-ctx.Done():
		// поток ответов больше не синхронизирован, процесс не переиспользуем
		w.broken = ctx.Err()
		_ = w.cmd.Process.Kill()
		return nil, ctx.Err()
	}
}

// readResponse пропускает посторонний вывод библиотек до строки с префиксом json
func (w *Worker) readResponse() (*workerResponse, error) {
	for {
		line, err := w.rd.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, responsePrefix) {
			if line != "" {
				w.logger.Debug("Worker output", zap.String("line", line))
			}
			continue
		}

		var resp workerResponse
		if err := json.Unmarshal([]byte(line[len(responsePrefix):]), &resp); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		return &resp, nil
	}
}

func decodeResponse(resp *workerResponse) (image.Image, error) {
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	data, err := base64.StdEncoding.DecodeString(resp.PNG)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return decodePNG(data)
}

// Close закрывает stdin и ждёт завершения процесса
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.stdin.Close()
	err := w.cmd.Wait()
	if w.broken == nil {
		w.broken = errors.New("worker closed")
	}
	w.logger.Info("Predictor worker stopped")

	// процесс убит после отмены запроса, это ожидаемое завершение
	if errors.Is(w.broken, context.Canceled) || errors.Is(w.broken, context.DeadlineExceeded) {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && w.cmd.ProcessState != nil && !w.cmd.ProcessState.Success() {
		return fmt.Errorf("worker exited: %w", err)
	}
	return nil
}

var _ port.Predictor = (*Worker)(nil)
