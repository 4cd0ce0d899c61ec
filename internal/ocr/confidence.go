package ocr

import (
	"regexp"
	"strings"
)

// ImageConfidenceThreshold is the blended score below which image OCR is
// flagged for closer review.
const ImageConfidenceThreshold = 0.6

var (
	reDate   = regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b|\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`)
	reCurr   = regexp.MustCompile(`\b(usd|idr|rp|eur|sgd)\b|[$€£]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}([.,]\d{3})*[.,]\d{2}\b|\b\d+\.\d{2}\b`)
	reLabel  = regexp.MustCompile(`\b(invoice|total|subtotal|qty|price|faktur|jumlah|harga)\b`)
)

// heuristicConfidence scores decoded text by the invoice artifacts it contains.
func heuristicConfidence(txt string) float32 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	l := strings.ToLower(txt)
	score := float32(0.2)
	if reDate.MatchString(l) {
		score += 0.2
	}
	if reCurr.MatchString(l) {
		score += 0.15
	}
	if reAmount.MatchString(l) {
		score += 0.15
	}
	if reLabel.MatchString(l) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// blendConfidence weights the engine's own score higher when it has one.
func blendConfidence(engine, heuristic float32) float32 {
	conf := heuristic
	if engine > 0 {
		conf = 0.7*engine + 0.3*heuristic
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}
