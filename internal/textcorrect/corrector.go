// Package textcorrect detects the language of OCR output and applies the
// matching spelling correction.
package textcorrect

import (
	"log/slog"

	"github.com/joseph-ayodele/paperia/constants"
)

// Corrector dispatches text to a language-specific correction routine.
// Dictionaries and the detector are loaded once and shared by all calls.
type Corrector struct {
	detector   Detector
	english    *English
	indonesian *Indonesian
	logger     *slog.Logger
}

type Config struct {
	EnglishDictionary    string // empty uses the built-in list
	IndonesianDictionary string
	MaxEditDistance      int
}

// New loads both dictionaries and wires the default detector.
func New(cfg Config, logger *slog.Logger) (*Corrector, error) {
	if cfg.MaxEditDistance <= 0 {
		cfg.MaxEditDistance = 2
	}
	en, err := LoadDictionary(cfg.EnglishDictionary, constants.LanguageEnglish)
	if err != nil {
		return nil, err
	}
	id, err := LoadDictionary(cfg.IndonesianDictionary, constants.LanguageIndonesian)
	if err != nil {
		return nil, err
	}
	c := NewWith(WhatlangDetector{}, NewEnglish(en, cfg.MaxEditDistance), NewIndonesian(id, cfg.MaxEditDistance), logger)
	c.logger.Info("spelling dictionaries loaded", "english_terms", len(en), "indonesian_terms", len(id), "max_edit_distance", cfg.MaxEditDistance)
	return c, nil
}

// NewWith assembles a corrector from prepared parts.
func NewWith(detector Detector, english *English, indonesian *Indonesian, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Corrector{detector: detector, english: english, indonesian: indonesian, logger: logger}
}

// Correct returns the corrected text and the language label it was corrected
// as. Detection failures and unsupported languages pass the text through
// unchanged under the "unknown" label.
func (c *Corrector) Correct(text string) (string, string) {
	lang, err := c.detector.Detect(text)
	if err != nil {
		c.logger.Debug("language detection failed", "error", err)
		lang = constants.LanguageUnknown
	}

	switch lang {
	case constants.LanguageEnglish:
		return c.english.Correct(text), constants.LanguageEnglish
	case constants.LanguageIndonesian:
		return c.indonesian.Correct(text), constants.LanguageIndonesian
	default:
		return text, constants.LanguageUnknown
	}
}
