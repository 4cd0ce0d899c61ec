package textcorrect

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

var ErrUndetected = errors.New("language not detected")

// Detector identifies the language of a text as an ISO 639-1 code.
type Detector interface {
	Detect(text string) (string, error)
}

// WhatlangDetector identifies languages from trigram profiles.
type WhatlangDetector struct {
	// MinConfidence rejects detections the library scores below it.
	MinConfidence float64
}

func (d WhatlangDetector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetected
	}
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" || info.Confidence < d.MinConfidence {
		return "", ErrUndetected
	}
	return code, nil
}
