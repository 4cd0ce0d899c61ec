package azure

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	result computervision.OcrResult
	err    error
	lang   computervision.OcrLanguages
}

func (f *fakeRecognizer) RecognizePrintedTextInStream(_ context.Context, _ bool, body io.ReadCloser, lang computervision.OcrLanguages) (computervision.OcrResult, error) {
	_, _ = io.ReadAll(body)
	f.lang = lang
	return f.result, f.err
}

func words(texts ...string) *[]computervision.OcrWord {
	out := make([]computervision.OcrWord, len(texts))
	for i := range texts {
		out[i] = computervision.OcrWord{Text: &texts[i]}
	}
	return &out
}

func TestRecognize_FlattensLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	fake := &fakeRecognizer{result: computervision.OcrResult{
		Regions: &[]computervision.OcrRegion{
			{Lines: &[]computervision.OcrLine{
				{Words: words("Invoice", "Number:", "INV-1")},
				{Words: words("Total:", "$11.00")},
			}},
			{Lines: &[]computervision.OcrLine{{Words: words()}}},
		},
	}}
	eng := newEngine(fake, "en", nil)

	got, err := eng.Recognize(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoice Number: INV-1", "Total: $11.00"}, got)
	assert.Equal(t, computervision.OcrLanguagesEn, fake.lang)
}

func TestRecognize_Errors(t *testing.T) {
	eng := newEngine(&fakeRecognizer{err: errors.New("401")}, "", nil)
	_, err := eng.Recognize(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))
	_, err = eng.Recognize(context.Background(), path)
	assert.ErrorContains(t, err, "401")
}

func TestNewEngine_DefaultsToAutoDetect(t *testing.T) {
	eng := newEngine(&fakeRecognizer{}, "", nil)
	assert.Equal(t, computervision.OcrLanguagesUnk, eng.lang)

	eng = newEngine(&fakeRecognizer{}, "id", nil)
	assert.Equal(t, computervision.OcrLanguages("id"), eng.lang)
}
