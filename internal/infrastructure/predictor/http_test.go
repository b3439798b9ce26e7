package predictor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"catvton-prep/internal/domain/entity"
)

func grayPNG(t *testing.T, level uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func newInferenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/mask", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		require.Equal(t, "person1.jpg", hdr.Filename)
		require.Equal(t, []byte("jpeg-bytes"), data)

		switch r.FormValue("cloth_type") {
		case "upper":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(grayPNG(t, 255))
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"mask_type must be one of upper, lower"}`))
		}
	})
	mux.HandleFunc("/v1/densepose", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(grayPNG(t, 24))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_Mask(t *testing.T) {
	srv := newInferenceServer(t)
	c := NewHTTPClient(srv.URL+"/", 5*time.Second, zaptest.NewLogger(t))
	defer c.Close()

	img := &entity.SourceImage{Name: "person1.jpg", Data: []byte("jpeg-bytes")}
	mask, err := c.Mask(context.Background(), img, entity.ClothUpper)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 3, 3), mask.Bounds())
	require.Equal(t, color.Gray{Y: 255}, color.GrayModel.Convert(mask.At(0, 0)))
}

func TestHTTPClient_MaskServerError(t *testing.T) {
	srv := newInferenceServer(t)
	c := NewHTTPClient(srv.URL, 5*time.Second, zaptest.NewLogger(t))

	img := &entity.SourceImage{Name: "person1.jpg", Data: []byte("jpeg-bytes")}
	_, err := c.Mask(context.Background(), img, entity.ClothInner)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 422")
	require.Contains(t, err.Error(), "mask_type must be one of upper, lower")
}

func TestHTTPClient_DensePose(t *testing.T) {
	srv := newInferenceServer(t)
	c := NewHTTPClient(srv.URL, 5*time.Second, zaptest.NewLogger(t))

	pose, err := c.DensePose(context.Background(), &entity.SourceImage{Name: "p.jpg", Data: []byte("x")})
	require.NoError(t, err)
	require.Equal(t, uint8(24), pose.GrayAt(1, 1).Y)
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second, zaptest.NewLogger(t))
	_, err := c.DensePose(context.Background(), &entity.SourceImage{Name: "p.jpg"})
	require.Error(t, err)
}
