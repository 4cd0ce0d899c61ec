package records

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/common"
)

const invoiceText = "Invoice Number: INV-1 Date: 2024-01-01 Subtotal: $10.00 Total: $11.00 " +
	"Customer Name: Acme Address: X Phone: 555 Product: Widget Qty: 2 Price: $5.00"

func TestInvoiceGrammar_Parse(t *testing.T) {
	rec, err := InvoiceGrammar.Parse(invoiceText)
	require.NoError(t, err)

	assert.Equal(t, constants.RecordInvoice, rec.Kind)
	assert.Equal(t, "INV-1", rec.Number)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.InDelta(t, 10.0, rec.Subtotal, 0.001)
	assert.InDelta(t, 11.0, rec.Total, 0.001)
	assert.Nil(t, rec.Tax)
	assert.Equal(t, "Acme", rec.Party.Name)
	require.NotNil(t, rec.Party.Address)
	assert.Equal(t, "X", *rec.Party.Address)
	require.NotNil(t, rec.Party.Phone)
	assert.Equal(t, "555", *rec.Party.Phone)
	assert.Nil(t, rec.Party.Email)
	assert.Equal(t, []Item{{Product: "Widget", Qty: 2, UnitPrice: 5}}, rec.Items)
}

func TestInvoiceGrammar_MultilineAndMultipleItems(t *testing.T) {
	text := `ACME TRADING
invoice number: INV-77
date: 15 Januari 2024
customer name: Budi Santoso
email: budi@example.com
product: Kopi Bubuk qty: 3 pcs price: Rp 25.000
product: Gula Pasir qty: 1 price: Rp 15.000,-
subtotal: Rp 90.000
discount: Rp 5.000
tax: Rp 9.350
total: Rp 94.350`

	rec, err := InvoiceGrammar.Parse(text)
	require.NoError(t, err)

	assert.Equal(t, "INV-77", rec.Number)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "Budi Santoso", rec.Party.Name)
	require.NotNil(t, rec.Party.Email)
	assert.Equal(t, "budi@example.com", *rec.Party.Email)
	require.Len(t, rec.Items, 2)
	assert.Equal(t, Item{Product: "Kopi Bubuk", Qty: 3, UnitPrice: 25000}, rec.Items[0])
	assert.Equal(t, Item{Product: "Gula Pasir", Qty: 1, UnitPrice: 15000}, rec.Items[1])
	require.NotNil(t, rec.Discount)
	assert.InDelta(t, 5000.0, *rec.Discount, 0.001)
	require.NotNil(t, rec.Tax)
	assert.InDelta(t, 9350.0, *rec.Tax, 0.001)
	assert.InDelta(t, 94350.0, rec.Total, 0.001)
}

func TestInvoiceGrammar_LabelWordsInsideValues(t *testing.T) {
	const head = "Invoice Number: INV-2 Date: 2024-01-01 Subtotal: $10.00 Total: $10.00 "
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, rec *Record)
	}{
		{
			name: "product named after a label",
			text: head + "Customer Name: Acme Product: Phone Case Qty: 2 Price: $5.00",
			check: func(t *testing.T, rec *Record) {
				assert.Equal(t, []Item{{Product: "Phone Case", Qty: 2, UnitPrice: 5}}, rec.Items)
				assert.Nil(t, rec.Party.Phone)
			},
		},
		{
			name: "customer named after a label",
			text: head + "Customer Name: Total Solutions Product: Widget Qty: 1 Price: $10.00",
			check: func(t *testing.T, rec *Record) {
				assert.Equal(t, "Total Solutions", rec.Party.Name)
				assert.InDelta(t, 10.0, rec.Total, 0.001)
			},
		},
		{
			name: "address containing a label word",
			text: head + "Customer Name: Acme Address: 1 Date Palm Road Product: Widget Qty: 1 Price: $10.00",
			check: func(t *testing.T, rec *Record) {
				require.NotNil(t, rec.Party.Address)
				assert.Equal(t, "1 Date Palm Road", *rec.Party.Address)
				assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rec.Date)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse("invoice", tt.text)
			require.NoError(t, err)
			tt.check(t, rec)
		})
	}
}

func TestInvoiceGrammar_MissingFields(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantMissing []string
		wantInvalid int
	}{
		{
			name:        "no total",
			text:        "Invoice Number: INV-1 Date: 2024-01-01 Subtotal: $10.00 Customer Name: Acme Product: Widget Qty: 2 Price: $5.00",
			wantMissing: []string{"Total"},
		},
		{
			name:        "no product block",
			text:        "Invoice Number: INV-1 Date: 2024-01-01 Subtotal: $10.00 Total: $11.00 Customer Name: Acme",
			wantMissing: []string{"Product"},
		},
		{
			name:        "product without qty and price",
			text:        "Invoice Number: INV-1 Date: 2024-01-01 Subtotal: $10.00 Total: $11.00 Customer Name: Acme Product: Widget",
			wantMissing: []string{"Qty", "Price"},
		},
		{
			name:        "empty text",
			text:        "",
			wantMissing: []string{"Invoice Number", "Date", "Subtotal", "Total", "Customer Name", "Product"},
		},
		{
			name:        "malformed values",
			text:        "Invoice Number: INV-1 Date: someday Subtotal: ten Total: $11.00 Customer Name: Acme Product: Widget Qty: two Price: $5.00",
			wantInvalid: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InvoiceGrammar.Parse(tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			if tt.wantMissing != nil {
				assert.Equal(t, tt.wantMissing, perr.Missing)
			}
			assert.Len(t, perr.Invalid, tt.wantInvalid)
		})
	}
}

func TestPurchaseGrammar_Parse(t *testing.T) {
	text := "Purchase Number: PO-9 Date: 2024-02-03 Supplier Name: Sumber Makmur Phone: 021-555-0101 " +
		"Product: Beras Qty: 10 Price: 12.500 Subtotal: 125.000 Total: 125.000"

	rec, err := Parse("purchase_order", text)
	require.NoError(t, err)
	assert.Equal(t, constants.RecordPurchase, rec.Kind)
	assert.Equal(t, "PO-9", rec.Number)
	assert.Equal(t, "Sumber Makmur", rec.Party.Name)
	assert.Equal(t, []Item{{Product: "Beras", Qty: 10, UnitPrice: 12500}}, rec.Items)

	// the number is optional on purchases
	_, err = Parse("po", "Date: 2024-02-03 Supplier Name: X Product: Beras Qty: 1 Price: 10 Subtotal: 10 Total: 10")
	require.NoError(t, err)

	// a purchase needs a supplier, not a customer
	_, err = Parse("purchase", "Date: 2024-02-03 Customer Name: X Product: Beras Qty: 1 Price: 10 Subtotal: 10 Total: 10")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"Supplier Name"}, perr.Missing)
}

func TestGrammarFor(t *testing.T) {
	assert.Same(t, InvoiceGrammar, GrammarFor("invoice"))
	assert.Same(t, InvoiceGrammar, GrammarFor("receipt"))
	assert.Same(t, InvoiceGrammar, GrammarFor(""))
	assert.Same(t, PurchaseGrammar, GrammarFor("PO"))
	assert.Same(t, PurchaseGrammar, GrammarFor(" Purchase "))
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "$10.00", want: 10},
		{in: "10", want: 10},
		{in: "Rp 150.000,-", want: 150000},
		{in: "Rp. 1.234.567", want: 1234567},
		{in: "IDR 1.234,56", want: 1234.56},
		{in: "1,234.56", want: 1234.56},
		{in: "12,5", want: 12.5},
		{in: "-3.50", want: -3.5},
		{in: "ten", wantErr: true},
		{in: "$", wantErr: true},
		{in: "10 dollars", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMoney(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 8, 17, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-08-17", "17/08/2024", "17-08-2024", "17 August 2024", "17 Agustus 2024", "Aug 17, 2024", "17 agu 2024"} {
		t.Run(in, func(t *testing.T) {
			got, err := parseDate(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := parseDate("yesterday")
	assert.Error(t, err)
}

func TestParseQty(t *testing.T) {
	n, err := parseQty("3 pcs")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = parseQty("2x")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, bad := range []string{"", "0", "-1", "1.5", "two"} {
		_, err := parseQty(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidate(t *testing.T) {
	rec, err := InvoiceGrammar.Parse(invoiceText)
	require.NoError(t, err)
	require.NoError(t, Validate(rec))

	bad := *rec
	bad.Total = -1
	assert.ErrorIs(t, Validate(&bad), common.ErrValidation)

	bad = *rec
	bad.Items = nil
	assert.ErrorIs(t, Validate(&bad), common.ErrValidation)
}

func TestValidate_OptionalFieldsStoredAsParsed(t *testing.T) {
	text := "Invoice Number: INV-4 Date: 2024-01-01 Subtotal: $10.00 Total: $10.00 " +
		"Customer Name: Acme Phone: +62 21 555 0101 ext. 2 Email: billing at acme Product: Widget Qty: 1 Price: $10.00"

	rec, err := InvoiceGrammar.Parse(text)
	require.NoError(t, err)
	require.NotNil(t, rec.Party.Phone)
	assert.Equal(t, "+62 21 555 0101 ext. 2", *rec.Party.Phone)
	require.NotNil(t, rec.Party.Email)
	assert.Equal(t, "billing at acme", *rec.Party.Email)
	assert.NoError(t, Validate(rec))
}
