package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/paperia/constants"
	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/detection"
	"github.com/joseph-ayodele/paperia/internal/export"
	"github.com/joseph-ayodele/paperia/internal/imageprep"
	"github.com/joseph-ayodele/paperia/internal/llm"
	"github.com/joseph-ayodele/paperia/internal/ocr"
	"github.com/joseph-ayodele/paperia/internal/payment"
	"github.com/joseph-ayodele/paperia/internal/pipeline"
	"github.com/joseph-ayodele/paperia/internal/records"
	"github.com/joseph-ayodele/paperia/internal/repository"
	"github.com/joseph-ayodele/paperia/internal/review"
)

const editedText = "Invoice Number: INV-1 Date: 2024-01-01 Subtotal: $10.00 Total: $11.00 " +
	"Customer Name: Acme Address: X Phone: 555 Product: Widget Qty: 2 Price: $5.00"

type passPrep struct{}

func (passPrep) Run(path string) (imageprep.Result, error) {
	return imageprep.Result{Preprocessed: path, Cleaned: path}, nil
}

type fixedOCR struct{}

func (fixedOCR) Extract(context.Context, string) (ocr.ExtractionResult, error) {
	return ocr.ExtractionResult{Text: "Invoce Numbr: INV-1", Method: "image-ocr", Pages: 1, Confidence: 0.8}, nil
}

type fixedCorrector struct{}

func (fixedCorrector) Correct(string) (string, string) {
	return "Invoice Number: INV-1", constants.LanguageEnglish
}

type stubChat struct{ err error }

func (s stubChat) Reply(_ context.Context, req llm.ReplyRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "Hello from " + req.Organization, nil
}

type stubPayments struct{}

func (stubPayments) CreateInvoice(_ context.Context, req payment.InvoiceRequest) (*payment.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &payment.Invoice{ID: "inv_123", InvoiceURL: "https://pay.example/inv_123", Status: "PENDING"}, nil
}

type stubScanner struct{ paths []string }

func (s *stubScanner) ScanAndDetect(_ context.Context, path string) ([]detection.Item, error) {
	s.paths = append(s.paths, path)
	return []detection.Item{{Label: "bottle", Confidence: 0.9, Coordinates: [4]int{1, 2, 3, 4}, Text: "Aqua"}}, nil
}

func (s *stubScanner) VerifyGoodsReceipt(_ context.Context, path string, expected []string) (*detection.Verification, error) {
	s.paths = append(s.paths, path)
	return &detection.Verification{Status: detection.VerificationMismatch, Text: "Beras", Missing: expected[1:]}, nil
}

type fixture struct {
	srv     *Server
	db      *repository.DB
	scanner *stubScanner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	db, err := repository.Open(ctx, repository.Config{DSN: "sqlite://" + filepath.Join(dir, "server.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))

	q := db.Queries()
	proc := pipeline.NewProcessor(pipeline.Config{UploadDir: filepath.Join(dir, "uploads")},
		passPrep{}, fixedOCR{}, fixedCorrector{}, q.Documents, logger)
	scanner := &stubScanner{}

	srv, err := New(Config{ScanDir: filepath.Join(dir, "scans"), Organization: "Toko Maju", GinMode: "test"}, Deps{
		Uploader:  proc,
		Reviewer:  review.NewService(db, records.NewWriter(logger), "Toko Maju", logger),
		Documents: q.Documents,
		Invoices:  q.Invoices,
		Exporter:  export.NewService(q.Invoices, logger),
		Ping:      func(ctx context.Context) error { return repository.HealthCheck(ctx, db, 0, logger) },
		Scanner:   scanner,
		Payments:  stubPayments{},
		Chat:      stubChat{},
	}, logger)
	require.NoError(t, err)
	return &fixture{srv: srv, db: db, scanner: scanner}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, fileField, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, filename string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "document", filename, "fake-image", map[string]string{"doc_type": "invoice"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	return f.do(req)
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestUploadReviewFlow(t *testing.T) {
	f := newFixture(t)

	w := f.upload(t, "invoice_scan.jpg")
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/edit/"), loc)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	w = f.do(httptest.NewRequest(http.MethodGet, loc, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invoice Number: INV-1")
	assert.Contains(t, w.Body.String(), `name="documentText"`)

	w = f.do(postForm(loc, url.Values{"documentText": {editedText}}))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = f.do(postForm(loc, url.Values{"documentText": {editedText}}))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INV-1")
	assert.Contains(t, w.Body.String(), "Acme")
	assert.Contains(t, w.Body.String(), "11.00")
}

func TestSubmitEdit_GrammarFailureRerenders(t *testing.T) {
	f := newFixture(t)
	loc := f.upload(t, "scan.png").Header().Get("Location")

	noTotal := "Invoice Number: INV-1 Date: 2024-01-01 Subtotal: $10.00 Customer Name: Acme Product: Widget Qty: 2 Price: $5.00"
	w := f.do(postForm(loc, url.Values{"documentText": {noTotal}}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Missing: Total")
	assert.Contains(t, w.Body.String(), "Customer Name: Acme")

	invoices, err := f.db.Queries().Invoices.List(context.Background(), repository.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestEdit_NotFound(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/edit/not-a-uuid", "/edit/" + uuid.NewString()} {
		w := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := f.do(postForm("/edit/"+uuid.NewString(), url.Values{"documentText": {editedText}}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpload_Rejections(t *testing.T) {
	f := newFixture(t)

	w := f.upload(t, "notes.txt")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct := multipartBody(t, "", "", "", map[string]string{"doc_type": "invoice"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	w = f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file part")

	docs, err := f.db.Queries().Documents.List(context.Background(), repository.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestListDocuments(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "a.png")
	f.upload(t, "b.jpg")

	w := f.do(httptest.NewRequest(http.MethodGet, "/documents?doc_type=invoice&limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Documents []map[string]any `json:"documents"`
		Count     int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "awaiting_review", out.Documents[0]["status"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/documents?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "error", env["status"])
	assert.Equal(t, "from must be YYYY-MM-DD", env["message"])
}

func TestExportInvoices(t *testing.T) {
	f := newFixture(t)
	w := f.do(httptest.NewRequest(http.MethodGet, "/exports/invoices.xlsx?from=2024-01-01", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "invoices_")
	// xlsx files are zip archives
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = f.do(httptest.NewRequest(http.MethodGet, "/exports/invoices.xlsx?organization_id=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerService(t *testing.T) {
	f := newFixture(t)

	w := f.do(postJSON("/customer_service", `{"message":"Where is my order?"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "success", "message": "Hello from Toko Maju"}, decodeEnvelope(t, w))

	w = f.do(postJSON("/customer_service", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"status": "error", "message": "No message provided"}, decodeEnvelope(t, w))

	f.srv.deps.Chat = stubChat{err: common.NewAppError("LLM_REQUEST_FAILED", "Incorrect API key provided", common.ErrUnavailable)}
	w = f.do(postJSON("/customer_service", `{"message":"hi"}`))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Incorrect API key provided", decodeEnvelope(t, w)["message"])

	f.srv.deps.Chat = nil
	w = f.do(postJSON("/customer_service", `{"message":"hi"}`))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPayment(t *testing.T) {
	f := newFixture(t)

	w := f.do(postJSON("/payment", `{"external_id":"INV-1","amount":150000,"payer_email":"a@b.co","description":"Invoice INV-1"}`))
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "success", env["status"])
	assert.Equal(t, "inv_123", env["invoice_id"])
	assert.Equal(t, "https://pay.example/inv_123", env["invoice_url"])

	w = f.do(postJSON("/payment", `{"external_id":"INV-1"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env = decodeEnvelope(t, w)
	assert.Equal(t, "error", env["status"])
	assert.Contains(t, env["message"], "Missing required payment data")
}

func TestScanEndpoints(t *testing.T) {
	f := newFixture(t)

	body, ct := multipartBody(t, "image", "shelf.jpg", "img", nil)
	req := httptest.NewRequest(http.MethodPost, "/scan_item", body)
	req.Header.Set("Content-Type", ct)
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var items []detection.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Aqua", items[0].Text)
	require.Len(t, f.scanner.paths, 1)
	assert.FileExists(t, f.scanner.paths[0])

	body, ct = multipartBody(t, "image", "shelf.gif", "img", nil)
	req = httptest.NewRequest(http.MethodPost, "/scan_item", body)
	req.Header.Set("Content-Type", ct)
	w = f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid file type", decodeEnvelope(t, w)["message"])
}

func TestBatchScan(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"a.png", "b.txt", "c.jpeg"} {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("x"))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/batch_scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var out []map[string][]detection.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "a.png")
	assert.Contains(t, out[1], "c.jpeg")
}

func TestReceiveGoods(t *testing.T) {
	f := newFixture(t)

	body, ct := multipartBody(t, "image", "delivery.png", "img", map[string]string{"expected_items": `["Beras","Gula"]`})
	req := httptest.NewRequest(http.MethodPost, "/receive_goods", body)
	req.Header.Set("Content-Type", ct)
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Status string                 `json:"status"`
		Data   detection.Verification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, detection.VerificationMismatch, out.Data.Status)
	assert.Equal(t, []string{"Gula"}, out.Data.Missing)

	body, ct = multipartBody(t, "image", "delivery.png", "img", nil)
	req = httptest.NewRequest(http.MethodPost, "/receive_goods", body)
	req.Header.Set("Content-Type", ct)
	w = f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No expected items provided", decodeEnvelope(t, w)["message"])
}

func TestSalesAndMarketing(t *testing.T) {
	f := newFixture(t)

	rows := `[{"CustomerID":"a","Recency":1,"Frequency":10,"Monetary":500},
		{"CustomerID":"b","Recency":2,"Frequency":11,"Monetary":520},
		{"CustomerID":"c","Recency":90,"Frequency":1,"Monetary":20},
		{"CustomerID":"d","Recency":95,"Frequency":2,"Monetary":25}]`
	w := f.do(postJSON("/sales_and_marketing", rows))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Status string `json:"status"`
		Data   struct {
			Customers []struct {
				CustomerID string
				Cluster    int
			} `json:"segmented_customers"`
			Inertia []float64 `json:"inertia"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "success", out.Status)
	assert.Len(t, out.Data.Customers, 4)
	assert.Len(t, out.Data.Inertia, 4)

	// nothing posted and no invoices stored yet
	w = f.do(postJSON("/sales_and_marketing", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", decodeEnvelope(t, w)["status"])
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	f.srv.deps.Ping = func(context.Context) error { return errors.New("connection refused") }
	w = f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "paperia_http_requests_total")
}

func TestHealthServer(t *testing.T) {
	ctx := context.Background()
	var down bool
	h := NewHealthServer(func(context.Context) error {
		if down {
			return errors.New("db down")
		}
		return nil
	}, nil)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Check(ctx))
	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	down = true
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, h.Check(ctx))
	resp, err = h.health.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
