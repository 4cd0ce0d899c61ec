// Package records turns reviewed document text into business records.
//
// Text is read with an explicit label grammar: every field is introduced by
// a fixed label ("Invoice Number:", "Total:", ...) and its value runs until
// the next recognised label. Product lines repeat as
// "Product: <name> Qty: <n> Price: <amount>" blocks.
package records

import (
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/paperia/constants"
)

// Canonical field keys, lowercased label text with single spaces.
const (
	keyInvoiceNumber  = "invoice number"
	keyPurchaseNumber = "purchase number"
	keyDate           = "date"
	keySubtotal       = "subtotal"
	keyTotal          = "total"
	keyTax            = "tax"
	keyDiscount       = "discount"
	keyCustomerName   = "customer name"
	keySupplierName   = "supplier name"
	keyAddress        = "address"
	keyPhone          = "phone"
	keyEmail          = "email"

	keyProduct = "product"
	keyQty     = "qty"
	keyPrice   = "price"
)

// Field is one labeled value of a grammar.
type Field struct {
	Label    string
	Required bool
}

func (f Field) key() string { return canonicalLabel(f.Label) }

// Grammar describes the labels a record kind is read from.
type Grammar struct {
	Kind      constants.RecordKind
	Fields    []Field
	PartyName string // label of the customer or supplier name

	pattern *regexp.Regexp
}

var itemLabels = []string{"Product", "Qty", "Price"}

// InvoiceGrammar reads sales invoices.
var InvoiceGrammar = newGrammar(constants.RecordInvoice, "Customer Name", []Field{
	{Label: "Invoice Number", Required: true},
	{Label: "Date", Required: true},
	{Label: "Subtotal", Required: true},
	{Label: "Total", Required: true},
	{Label: "Customer Name", Required: true},
	{Label: "Address"},
	{Label: "Phone"},
	{Label: "Email"},
	{Label: "Tax"},
	{Label: "Discount"},
})

// PurchaseGrammar reads supplier purchase orders.
var PurchaseGrammar = newGrammar(constants.RecordPurchase, "Supplier Name", []Field{
	{Label: "Purchase Number"},
	{Label: "Date", Required: true},
	{Label: "Subtotal", Required: true},
	{Label: "Total", Required: true},
	{Label: "Supplier Name", Required: true},
	{Label: "Address"},
	{Label: "Phone"},
	{Label: "Email"},
	{Label: "Tax"},
	{Label: "Discount"},
})

// GrammarFor picks the grammar for a free-text doc_type.
func GrammarFor(docType string) *Grammar {
	if constants.RecordKindFor(docType) == constants.RecordPurchase {
		return PurchaseGrammar
	}
	return InvoiceGrammar
}

func newGrammar(kind constants.RecordKind, partyLabel string, fields []Field) *Grammar {
	labels := make([]string, 0, len(fields)+len(itemLabels))
	for _, f := range fields {
		labels = append(labels, f.Label)
	}
	labels = append(labels, itemLabels...)

	// longest first so "Invoice Number" wins over a shorter label sharing its start
	sort.SliceStable(labels, func(i, j int) bool { return len(labels[i]) > len(labels[j]) })
	alts := make([]string, len(labels))
	for i, l := range labels {
		words := strings.Fields(l)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alts[i] = strings.Join(words, `\s+`)
	}
	// a label only counts when its separator follows, so label words inside values stay put
	pattern := regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\s*[:#]`)

	return &Grammar{Kind: kind, Fields: fields, PartyName: partyLabel, pattern: pattern}
}

// segment is a recognised label and the raw value that follows it.
type segment struct {
	key   string
	value string
}

// segments splits text at every recognised label. Text before the first
// label is ignored.
func (g *Grammar) segments(text string) []segment {
	matches := g.pattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]segment, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		out = append(out, segment{
			key:   canonicalLabel(text[m[2]:m[3]]),
			value: cleanValue(text[m[1]:end]),
		})
	}
	return out
}

func canonicalLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

func cleanValue(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	return strings.TrimRight(v, " ,;|")
}
