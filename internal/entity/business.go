package entity

import (
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Phone   *string   `json:"phone,omitempty"`
	Email   *string   `json:"email,omitempty"`
	Address *string   `json:"address,omitempty"`
	Created time.Time `json:"created"`
}

// Party is the shared shape of customers and suppliers.
type Party struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Phone          *string   `json:"phone,omitempty"`
	Email          *string   `json:"email,omitempty"`
	Address        *string   `json:"address,omitempty"`
	Created        time.Time `json:"created"`
}

type Customer = Party

type Supplier = Party

type Product struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	UnitPrice      *float64  `json:"unit_price,omitempty"`
	SellingPrice   *float64  `json:"selling_price,omitempty"`
	PurchasePrice  *float64  `json:"purchase_price,omitempty"`
	Created        time.Time `json:"created"`
}

type Invoice struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	Number         string        `json:"number"`
	Date           time.Time     `json:"date"`
	CustomerID     uuid.UUID     `json:"customer_id"`
	CustomerName   string        `json:"customer_name,omitempty"`
	Subtotal       float64       `json:"subtotal"`
	Discount       *float64      `json:"discount,omitempty"`
	Tax            *float64      `json:"tax,omitempty"`
	Total          float64       `json:"total"`
	Amount         float64       `json:"amount"`
	Items          []InvoiceItem `json:"items,omitempty"`
	Created        time.Time     `json:"created"`
}

type InvoiceItem struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Qty         int       `json:"qty"`
	UnitPrice   float64   `json:"unit_price"`
	Total       float64   `json:"total"`
}

type Purchase struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	Number         string         `json:"number,omitempty"`
	Date           time.Time      `json:"date"`
	SupplierID     uuid.UUID      `json:"supplier_id"`
	Subtotal       float64        `json:"subtotal"`
	Discount       *float64       `json:"discount,omitempty"`
	Tax            *float64       `json:"tax,omitempty"`
	Total          float64        `json:"total"`
	Amount         float64        `json:"amount"`
	Items          []PurchaseItem `json:"items,omitempty"`
	Created        time.Time      `json:"created"`
}

type PurchaseItem struct {
	ID         uuid.UUID `json:"id"`
	PurchaseID uuid.UUID `json:"purchase_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Qty        int       `json:"qty"`
	UnitPrice  float64   `json:"unit_price"`
	Total      float64   `json:"total"`
}
