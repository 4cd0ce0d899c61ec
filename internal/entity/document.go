package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/constants"
)

// Document is an uploaded scan and its successive text transformations.
type Document struct {
	ID                  uuid.UUID                `json:"id"`
	Filename            string                   `json:"filename"`
	StoredPath          string                   `json:"stored_path"`
	ContentHash         string                   `json:"content_hash,omitempty"`
	RawText             string                   `json:"raw_text"`
	CorrectedText       string                   `json:"corrected_text"`
	LabeledText         string                   `json:"labeled_text"`
	ManualCorrectedText string                   `json:"manual_corrected_text"`
	DocType             string                   `json:"doc_type"`
	Status              constants.DocumentStatus `json:"status"`
	OCRConfidence       float64                  `json:"ocr_confidence"`
	CreatedAt           time.Time                `json:"created_at"`
	ReviewedAt          *time.Time               `json:"reviewed_at,omitempty"`
}

// EffectiveText is the text downstream parsing uses: the manual correction
// when present, otherwise the automatic correction. Raw OCR text is never used.
func (d *Document) EffectiveText() string {
	if d.ManualCorrectedText != "" {
		return d.ManualCorrectedText
	}
	return d.CorrectedText
}

// Reviewed reports whether the document reached its terminal state.
func (d *Document) Reviewed() bool {
	return d.Status == constants.DocumentReviewed
}
