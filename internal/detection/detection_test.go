package detection

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/paperia/internal/common"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeImage(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shelf.png")
	require.NoError(t, imaging.Save(imaging.New(w, h, color.White), path))
	return path
}

func detectionServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		assert.Equal(t, "shelf.png", hdr.Filename)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// sizeReader returns the crop dimensions as text so tests can see what was cropped.
type sizeReader struct {
	mu    sync.Mutex
	text  string
	sizes []image.Point
}

func (r *sizeReader) ExtractText(_ context.Context, path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, img.Bounds().Size())
	return "  " + r.text + "  ", nil
}

func TestClient_DetectFiltersByConfidence(t *testing.T) {
	srv := detectionServer(t, `{"detections":[
		{"label":"bottle","confidence":0.91,"box":[0,0,10,10]},
		{"label":"cup","confidence":0.10,"box":[5,5,8,8]}]}`)
	path := writeImage(t, 20, 20)

	got, err := NewClient(Config{URL: srv.URL, MinConfidence: 0.25}, quiet()).Detect(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Detection{Label: "bottle", Confidence: 0.91, Box: [4]int{0, 0, 10, 10}}, got[0])
}

func TestClient_Errors(t *testing.T) {
	path := writeImage(t, 4, 4)

	_, err := NewClient(Config{}, quiet()).Detect(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrUnavailable)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err = NewClient(Config{URL: srv.URL}, quiet()).Detect(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrUnavailable)

	_, err = NewClient(Config{URL: srv.URL}, quiet()).Detect(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestScanAndDetect_CropsAndClampsBoxes(t *testing.T) {
	srv := detectionServer(t, `{"detections":[
		{"label":"bottle","confidence":0.9,"box":[2,3,12,8]},
		{"label":"box","confidence":0.8,"box":[30,30,60,60]},
		{"label":"ghost","confidence":0.7,"box":[50,50,70,70]}]}`)
	path := writeImage(t, 40, 40)
	reader := &sizeReader{text: "Aqua 600ml"}

	s := NewScanner(NewClient(Config{URL: srv.URL}, quiet()), reader, quiet())
	items, err := s.ScanAndDetect(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "bottle", items[0].Label)
	assert.Equal(t, [4]int{2, 3, 12, 8}, items[0].Coordinates)
	assert.Equal(t, "Aqua 600ml", items[0].Text)
	assert.Equal(t, [4]int{30, 30, 40, 40}, items[1].Coordinates)
	assert.Equal(t, []image.Point{{X: 10, Y: 5}, {X: 10, Y: 10}}, reader.sizes)
}

func TestScanAndDetect_NoDetections(t *testing.T) {
	srv := detectionServer(t, `{"detections":[]}`)
	reader := &sizeReader{}
	items, err := NewScanner(NewClient(Config{URL: srv.URL}, quiet()), reader, quiet()).
		ScanAndDetect(context.Background(), writeImage(t, 5, 5))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, reader.sizes)
}

type staticDetector []Detection

func (d staticDetector) Detect(context.Context, string) ([]Detection, error) { return d, nil }

func TestVerifyGoodsReceipt(t *testing.T) {
	path := writeImage(t, 8, 8)
	reader := &sizeReader{text: "SURAT JALAN: Beras 5kg x 2, Minyak Goreng 1L"}
	det := staticDetector{{Label: "Bottle", Confidence: 0.8}}

	tests := []struct {
		name        string
		expected    []string
		wantStatus  string
		wantMissing []string
	}{
		{name: "all in text", expected: []string{"beras 5kg", "Minyak Goreng"}, wantStatus: VerificationSuccess},
		{name: "found by label", expected: []string{"bottle"}, wantStatus: VerificationSuccess},
		{name: "blank entries ignored", expected: []string{" ", "beras"}, wantStatus: VerificationSuccess},
		{name: "missing item", expected: []string{"Beras", "Gula"}, wantStatus: VerificationMismatch, wantMissing: []string{"Gula"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewScanner(det, reader, quiet()).VerifyGoodsReceipt(context.Background(), path, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantMissing, v.Missing)
			assert.Contains(t, v.Text, "SURAT JALAN")
			assert.Len(t, v.Detections, 1)
		})
	}
}
