package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"catvton-prep/internal/domain/entity"
	"catvton-prep/internal/domain/port"
)

const maxErrorBody = 4 << 10

// HTTPClient обращается к удалённому серверу инференса
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient создаёт клиента с таймаутом на запрос
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Mask отправляет фото и категорию на /v1/mask
func (c *HTTPClient) Mask(ctx context.Context, img *entity.SourceImage, category entity.ClothType) (image.Image, error) {
	return c.post(ctx, "/v1/mask", img, map[string]string{"cloth_type": string(category)})
}

// DensePose отправляет фото на /v1/densepose
func (c *HTTPClient) DensePose(ctx context.Context, img *entity.SourceImage) (*image.Gray, error) {
	out, err := c.post(ctx, "/v1/densepose", img, nil)
	if err != nil {
		return nil, err
	}
	return toGray(out), nil
}

func (c *HTTPClient) post(ctx context.Context, path string, img *entity.SourceImage, fields map[string]string) (image.Image, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("image", img.Name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "image/png")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Inference response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("cost", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, readError(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return decodePNG(data)
}

// readError достаёт текст ошибки из JSON {"error": "..."} или тела целиком
func readError(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ port.Predictor = (*HTTPClient)(nil)
