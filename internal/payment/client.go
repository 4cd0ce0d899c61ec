// Package payment creates hosted payment invoices with the Xendit API.
package payment

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xendit/xendit-go"
	"github.com/xendit/xendit-go/invoice"

	"github.com/joseph-ayodele/paperia/internal/common"
)

type Config struct {
	BaseURL   string // default https://api.xendit.co
	SecretKey string
	Timeout   time.Duration
}

// InvoiceRequest is what a caller must supply to bill a customer.
type InvoiceRequest struct {
	ExternalID  string  `json:"external_id"`
	Amount      float64 `json:"amount"`
	PayerEmail  string  `json:"payer_email"`
	Description string  `json:"description"`
}

func (r InvoiceRequest) Validate() error {
	v := common.NewValidator().
		Field("external_id", r.ExternalID, common.Required, common.MaxLength(255)).
		Field("amount", r.Amount, common.Required, common.Positive).
		Field("payer_email", r.PayerEmail, common.Required, common.Email).
		Field("description", r.Description, common.Required, common.MaxLength(1000))
	if v.HasErrors() {
		return common.NewAppError("MISSING_PAYMENT_DATA", "Missing required payment data: "+v.ErrorMessage(), common.ErrInvalidInput)
	}
	return nil
}

// Invoice is the subset of the gateway's invoice object we hand back.
type Invoice struct {
	ID         string  `json:"id"`
	ExternalID string  `json:"external_id"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	InvoiceURL string  `json:"invoice_url"`
}

type Gateway interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)
}

type Client struct {
	invoices *invoice.Client
	log      *slog.Logger
	hasKey   bool
}

var _ Gateway = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.xendit.co"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		invoices: &invoice.Client{
			Opt: &xendit.Option{
				SecretKey: cfg.SecretKey,
				XenditURL: strings.TrimRight(cfg.BaseURL, "/"),
			},
			APIRequester: &xendit.APIRequesterImplementation{
				HTTPClient: &http.Client{Timeout: cfg.Timeout},
			},
		},
		log:    logger,
		hasKey: cfg.SecretKey != "",
	}
}

// CreateInvoice validates req and creates the invoice through the SDK.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !c.hasKey {
		return nil, common.NewAppError("PAYMENT_NOT_CONFIGURED", "payment secret key is not set", common.ErrUnavailable)
	}

	start := time.Now()
	inv, xerr := c.invoices.CreateWithContext(ctx, &invoice.CreateParams{
		ExternalID:  req.ExternalID,
		Amount:      req.Amount,
		PayerEmail:  req.PayerEmail,
		Description: req.Description,
	})
	if xerr != nil {
		c.log.Error("payment.invoice.rejected", "external_id", req.ExternalID,
			"status", xerr.Status, "error_code", xerr.ErrorCode, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, gatewayError(xerr)
	}

	c.log.Info("payment.invoice.ok", "external_id", req.ExternalID, "invoice_id", inv.ID,
		"status", inv.Status, "elapsed_ms", time.Since(start).Milliseconds())
	return &Invoice{
		ID:         inv.ID,
		ExternalID: inv.ExternalID,
		Status:     inv.Status,
		Amount:     inv.Amount,
		InvoiceURL: inv.InvoiceURL,
	}, nil
}

// gatewayError maps an SDK error onto the service error kinds. Transport
// and decode failures surface as GO_ERROR and count as unavailability.
func gatewayError(xerr *xendit.Error) error {
	cause := common.ErrUnavailable
	if xerr.ErrorCode != xendit.GoErrCode && xerr.Status >= 400 && xerr.Status < 500 {
		cause = common.ErrInvalidInput
	}
	code := xerr.ErrorCode
	if code == "" || code == xendit.GoErrCode {
		code = "PAYMENT_FAILED"
	}
	msg := xerr.Message
	if msg == "" {
		msg = "payment gateway status " + http.StatusText(xerr.Status)
	}
	return common.NewAppError(code, msg, cause)
}
