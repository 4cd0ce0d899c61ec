package constants

// DocumentStatus is the review state stored on a document row.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentUploaded       DocumentStatus = "uploaded"
	DocumentAwaitingReview DocumentStatus = "awaiting_review"
	DocumentReviewed       DocumentStatus = "reviewed"
)

// CanTransition reports whether a document may move from one state to another.
// Reviewed is terminal.
func CanTransition(from, to DocumentStatus) bool {
	switch from {
	case DocumentUploaded:
		return to == DocumentAwaitingReview
	case DocumentAwaitingReview:
		return to == DocumentReviewed
	default:
		return false
	}
}

// Language labels produced by the corrector.
const (
	LanguageEnglish    = "en"
	LanguageIndonesian = "id"
	LanguageUnknown    = "unknown"
)
