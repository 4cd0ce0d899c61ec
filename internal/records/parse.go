package records

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/common"
)

// Party is the counterparty block of a record: the customer of an invoice or
// the supplier of a purchase.
type Party struct {
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
}

type Item struct {
	Product   string  `json:"product"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

// Record is the parsed, typed content of a reviewed document.
type Record struct {
	Kind     constants.RecordKind `json:"kind"`
	Number   string               `json:"number,omitempty"`
	Date     time.Time            `json:"-"`
	Subtotal float64              `json:"subtotal"`
	Total    float64              `json:"total"`
	Tax      *float64             `json:"tax,omitempty"`
	Discount *float64             `json:"discount,omitempty"`
	Party    Party                `json:"party"`
	Items    []Item               `json:"items"`
}

// ParseError lists every missing required label and every value that could
// not be read. It wraps common.ErrValidation.
type ParseError struct {
	Kind    constants.RecordKind
	Missing []string
	Invalid []string
}

func (e *ParseError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, "; "))
	}
	return fmt.Sprintf("%s text: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *ParseError) Unwrap() error { return common.ErrValidation }

func (e *ParseError) empty() bool { return len(e.Missing) == 0 && len(e.Invalid) == 0 }

func (e *ParseError) missing(label string) {
	for _, m := range e.Missing {
		if m == label {
			return
		}
	}
	e.Missing = append(e.Missing, label)
}

func (e *ParseError) invalid(label, value string, err error) {
	e.Invalid = append(e.Invalid, fmt.Sprintf("%s %q: %v", label, value, err))
}

type rawItem struct {
	product, qty, price string
}

// Parse reads text into a Record. Nothing is written; callers run it before
// opening a transaction so grammar failures never leave partial rows.
func (g *Grammar) Parse(text string) (*Record, error) {
	values := make(map[string]string)
	var items []rawItem
	for _, s := range g.segments(text) {
		switch s.key {
		case keyProduct:
			items = append(items, rawItem{product: s.value})
		case keyQty:
			if len(items) > 0 && items[len(items)-1].qty == "" {
				items[len(items)-1].qty = s.value
			}
		case keyPrice:
			if len(items) > 0 && items[len(items)-1].price == "" {
				items[len(items)-1].price = s.value
			}
		default:
			// first occurrence wins
			if _, seen := values[s.key]; !seen {
				values[s.key] = s.value
			}
		}
	}

	perr := &ParseError{Kind: g.Kind}
	for _, f := range g.Fields {
		if f.Required && values[f.key()] == "" {
			perr.missing(f.Label)
		}
	}
	if len(items) == 0 {
		perr.missing("Product")
	}

	rec := &Record{
		Kind:   g.Kind,
		Number: values[keyInvoiceNumber],
		Party: Party{
			Name:    values[canonicalLabel(g.PartyName)],
			Address: optional(values[keyAddress]),
			Phone:   optional(values[keyPhone]),
			Email:   optional(values[keyEmail]),
		},
	}
	if g.Kind == constants.RecordPurchase {
		rec.Number = values[keyPurchaseNumber]
	}

	if v := values[keyDate]; v != "" {
		d, err := parseDate(v)
		if err != nil {
			perr.invalid("Date", v, err)
		}
		rec.Date = d
	}
	rec.Subtotal = requiredMoney(perr, "Subtotal", values[keySubtotal])
	rec.Total = requiredMoney(perr, "Total", values[keyTotal])
	rec.Tax = optionalMoney(perr, "Tax", values[keyTax])
	rec.Discount = optionalMoney(perr, "Discount", values[keyDiscount])

	for _, raw := range items {
		item := Item{Product: raw.product}
		if raw.product == "" {
			perr.missing("Product")
		}
		switch {
		case raw.qty == "":
			perr.missing("Qty")
		default:
			q, err := parseQty(raw.qty)
			if err != nil {
				perr.invalid("Qty", raw.qty, err)
			}
			item.Qty = q
		}
		item.UnitPrice = requiredMoney(perr, "Price", raw.price)
		if raw.price == "" {
			perr.missing("Price")
		}
		rec.Items = append(rec.Items, item)
	}

	if !perr.empty() {
		return nil, perr
	}
	return rec, nil
}

func requiredMoney(perr *ParseError, label, v string) float64 {
	if v == "" {
		return 0
	}
	f, err := parseMoney(v)
	if err != nil {
		perr.invalid(label, v, err)
	}
	return f
}

func optionalMoney(perr *ParseError, label, v string) *float64 {
	if v == "" {
		return nil
	}
	f, err := parseMoney(v)
	if err != nil {
		perr.invalid(label, v, err)
		return nil
	}
	return &f
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
