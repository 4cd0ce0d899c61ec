package records

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/entity"
	"github.com/joseph-ayodele/paperia/internal/repository"
)

// Parse reads text with the grammar for docType and validates the result.
func Parse(docType, text string) (*Record, error) {
	rec, err := GrammarFor(docType).Parse(text)
	if err != nil {
		return nil, err
	}
	if err := Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Result summarises the rows one Write produced.
type Result struct {
	Kind            constants.RecordKind
	RecordID        uuid.UUID
	PartyID         uuid.UUID
	PartyCreated    bool
	ProductsCreated int
}

// Writer persists parsed records. Counterparties and products are matched by
// exact name within the organization and created on first sight; the
// invoice or purchase itself is always a new row.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write stores rec through q, which callers normally bind to a transaction.
func (w *Writer) Write(ctx context.Context, q *repository.Queries, orgID uuid.UUID, rec *Record) (*Result, error) {
	if rec.Kind == constants.RecordPurchase {
		return w.writePurchase(ctx, q, orgID, rec)
	}
	return w.writeInvoice(ctx, q, orgID, rec)
}

func (w *Writer) writeInvoice(ctx context.Context, q *repository.Queries, orgID uuid.UUID, rec *Record) (*Result, error) {
	customer, created, err := q.Customers.GetOrCreate(ctx, partyEntity(orgID, rec.Party))
	if err != nil {
		return nil, fmt.Errorf("customer %q: %w", rec.Party.Name, err)
	}
	res := &Result{Kind: rec.Kind, PartyID: customer.ID, PartyCreated: created}

	inv := &entity.Invoice{
		OrganizationID: orgID,
		Number:         rec.Number,
		Date:           rec.Date,
		CustomerID:     customer.ID,
		Subtotal:       rec.Subtotal,
		Discount:       rec.Discount,
		Tax:            rec.Tax,
		Total:          rec.Total,
	}
	for _, it := range rec.Items {
		price := it.UnitPrice
		product, created, err := q.Products.GetOrCreate(ctx, &entity.Product{
			OrganizationID: orgID,
			Name:           it.Product,
			UnitPrice:      &price,
			SellingPrice:   &price,
		})
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", it.Product, err)
		}
		if created {
			res.ProductsCreated++
		}
		inv.Items = append(inv.Items, entity.InvoiceItem{ProductID: product.ID, Qty: it.Qty, UnitPrice: it.UnitPrice})
	}

	if err := q.Invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	res.RecordID = inv.ID
	w.logger.Info("records.invoice.ok",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"customer_id", customer.ID,
		"customer_created", created,
		"items", len(inv.Items))
	return res, nil
}

func (w *Writer) writePurchase(ctx context.Context, q *repository.Queries, orgID uuid.UUID, rec *Record) (*Result, error) {
	supplier, created, err := q.Suppliers.GetOrCreate(ctx, partyEntity(orgID, rec.Party))
	if err != nil {
		return nil, fmt.Errorf("supplier %q: %w", rec.Party.Name, err)
	}
	res := &Result{Kind: rec.Kind, PartyID: supplier.ID, PartyCreated: created}

	p := &entity.Purchase{
		OrganizationID: orgID,
		Number:         rec.Number,
		Date:           rec.Date,
		SupplierID:     supplier.ID,
		Subtotal:       rec.Subtotal,
		Discount:       rec.Discount,
		Tax:            rec.Tax,
		Total:          rec.Total,
	}
	for _, it := range rec.Items {
		price := it.UnitPrice
		product, created, err := q.Products.GetOrCreate(ctx, &entity.Product{
			OrganizationID: orgID,
			Name:           it.Product,
			UnitPrice:      &price,
			PurchasePrice:  &price,
		})
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", it.Product, err)
		}
		if created {
			res.ProductsCreated++
		}
		p.Items = append(p.Items, entity.PurchaseItem{ProductID: product.ID, Qty: it.Qty, UnitPrice: it.UnitPrice})
	}

	if err := q.Purchases.Create(ctx, p); err != nil {
		return nil, err
	}
	res.RecordID = p.ID
	w.logger.Info("records.purchase.ok",
		"purchase_id", p.ID,
		"supplier_id", supplier.ID,
		"supplier_created", created,
		"items", len(p.Items))
	return res, nil
}

func partyEntity(orgID uuid.UUID, p Party) *entity.Party {
	return &entity.Party{
		OrganizationID: orgID,
		Name:           p.Name,
		Address:        p.Address,
		Phone:          p.Phone,
		Email:          p.Email,
	}
}
