package constants

import "strings"

// RecordKind selects which business record grammar a reviewed document feeds.
type RecordKind string

const (
	RecordInvoice  RecordKind = "invoice"
	RecordPurchase RecordKind = "purchase"
)

// doc_type is free text; these synonyms route to the purchase side.
var purchaseSynonyms = map[string]struct{}{
	"purchase":       {},
	"purchase_order": {},
	"purchase order": {},
	"po":             {},
}

// RecordKindFor maps a free-text doc_type to a record grammar.
// Anything not recognised as a purchase is treated as an invoice.
func RecordKindFor(docType string) RecordKind {
	normalized := strings.ToLower(strings.TrimSpace(docType))
	if _, ok := purchaseSynonyms[normalized]; ok {
		return RecordPurchase
	}
	return RecordInvoice
}
