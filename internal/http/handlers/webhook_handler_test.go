package handlers_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lawnlink/lawncare-backend/internal/http/handlers"
	"github.com/lawnlink/lawncare-backend/internal/http/middleware"
	"github.com/lawnlink/lawncare-backend/internal/models"
	"github.com/lawnlink/lawncare-backend/internal/repository"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

type stubJobStore struct {
	job *models.JobRequest
}

func (s *stubJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.JobRequest, error) {
	if s.job == nil || s.job.ID != id {
		return nil, repository.ErrJobNotFound
	}
	copied := *s.job
	return &copied, nil
}

func (s *stubJobStore) MarkPaid(ctx context.Context, jobID uuid.UUID, transactionRef string, finalPrice, platformFee, providerPayout int64) (*models.JobRequest, error) {
	if s.job == nil || s.job.ID != jobID {
		return nil, repository.ErrJobNotFound
	}
	if s.job.PaymentStatus != models.PaymentStatusPending {
		return nil, repository.ErrPaymentNotPending
	}
	s.job.PaymentStatus = models.PaymentStatusPaid
	s.job.PaymentReference = &transactionRef
	if s.job.FinalPrice == nil {
		s.job.FinalPrice = &finalPrice
		s.job.PlatformFee = &platformFee
		s.job.ProviderPayout = &providerPayout
	}
	copied := *s.job
	return &copied, nil
}

func (s *stubJobStore) MarkPaymentFailed(ctx context.Context, jobID uuid.UUID) error {
	if s.job == nil || s.job.ID != jobID {
		return repository.ErrJobNotFound
	}
	if s.job.PaymentStatus != models.PaymentStatusPending {
		return repository.ErrPaymentNotPending
	}
	s.job.PaymentStatus = models.PaymentStatusFailed
	return nil
}

type stubWebhookStore struct {
	seen map[string]bool
}

func newStubWebhookStore() *stubWebhookStore {
	return &stubWebhookStore{seen: make(map[string]bool)}
}

func (s *stubWebhookStore) WasProcessed(ctx context.Context, jobID uuid.UUID, ref string) (bool, error) {
	return s.seen[jobID.String()+"|"+ref], nil
}

func (s *stubWebhookStore) MarkProcessed(ctx context.Context, jobID uuid.UUID, ref string) (bool, error) {
	k := jobID.String() + "|" + ref
	if s.seen[k] {
		return false, nil
	}
	s.seen[k] = true
	return true, nil
}

func (s *stubWebhookStore) Unmark(ctx context.Context, jobID uuid.UUID, ref string) error {
	delete(s.seen, jobID.String()+"|"+ref)
	return nil
}

type stubInvoiceStore struct{}

func (s *stubInvoiceStore) Create(ctx context.Context, inv *models.Invoice) error { return nil }

func newWebhookRouter(jobs *stubJobStore, signatureSecret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewWebhookService(jobs, newStubWebhookStore(), &stubInvoiceStore{}, nil)
	h := handlers.NewWebhookHandler(svc)

	r := gin.New()
	r.POST("/webhooks/payment", middleware.WebhookSignature(signatureSecret), h.HandlePaymentNotification)
	return r
}

func paidJobFixture() *models.JobRequest {
	return &models.JobRequest{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		Title:         "Покос газона",
		BasePrice:     12000,
		Status:        models.JobStatusOpen,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func postWebhook(r *gin.Engine, contentType, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestWebhookHandler_JSONPayload(t *testing.T) {
	jobs := &stubJobStore{job: paidJobFixture()}
	r := newWebhookRouter(jobs, "")

	body := `{"ResponseCode":"1","TransactionNumber":"TXN-1","order_id":"` + jobs.job.ID.String() + `"}`
	w := postWebhook(r, "application/json", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["processed"])
	assert.Equal(t, true, resp["payment_success"])
	assert.Equal(t, models.PaymentStatusPaid, jobs.job.PaymentStatus)
}

func TestWebhookHandler_JSONNumericResponseCode(t *testing.T) {
	jobs := &stubJobStore{job: paidJobFixture()}
	r := newWebhookRouter(jobs, "")

	// Некоторые шлюзы шлют код числом, а не строкой.
	body := `{"ResponseCode":1,"TransactionNumber":"TXN-1","order_id":"` + jobs.job.ID.String() + `"}`
	w := postWebhook(r, "application/json", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["payment_success"])
}

func TestWebhookHandler_FormPayload(t *testing.T) {
	jobs := &stubJobStore{job: paidJobFixture()}
	r := newWebhookRouter(jobs, "")

	form := url.Values{}
	form.Set("ResponseCode", "1")
	form.Set("TransactionNumber", "TXN-2")
	form.Set("order_id", jobs.job.ID.String())
	w := postWebhook(r, "application/x-www-form-urlencoded", form.Encode(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaymentStatusPaid, jobs.job.PaymentStatus)
}

func TestWebhookHandler_FormKeyIsJSONBlob(t *testing.T) {
	jobs := &stubJobStore{job: paidJobFixture()}
	r := newWebhookRouter(jobs, "")

	// Шлюз иногда кладёт весь JSON-объект в имя form-ключа с пустым значением.
	blob := `{"ResponseCode":"1","TransactionNumber":"TXN-3","order_id":"` + jobs.job.ID.String() + `"}`
	body := url.QueryEscape(blob) + "="
	w := postWebhook(r, "application/x-www-form-urlencoded", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["processed"])
	assert.Equal(t, models.PaymentStatusPaid, jobs.job.PaymentStatus)
}

func TestWebhookHandler_CustomOrderIdPrecedence(t *testing.T) {
	jobs := &stubJobStore{job: paidJobFixture()}
	r := newWebhookRouter(jobs, "")

	body := `{"ResponseCode":"1","TransactionNumber":"TXN-4",` +
		`"CustomOrderId":"` + jobs.job.ID.String() + `","order_id":"` + uuid.NewString() + `"}`
	w := postWebhook(r, "application/json", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaymentStatusPaid, jobs.job.PaymentStatus)
}

func TestWebhookHandler_MissingOrderID(t *testing.T) {
	r := newWebhookRouter(&stubJobStore{}, "")

	w := postWebhook(r, "application/json", `{"ResponseCode":"1","TransactionNumber":"TXN-5"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_UnknownJob(t *testing.T) {
	r := newWebhookRouter(&stubJobStore{}, "")

	body := `{"ResponseCode":"1","TransactionNumber":"TXN-6","order_id":"` + uuid.NewString() + `"}`
	w := postWebhook(r, "application/json", body, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookHandler_FailureNotification(t *testing.T) {
	jobs := &stubJobStore{job: paidJobFixture()}
	r := newWebhookRouter(jobs, "")

	body := `{"ResponseCode":"05","order_id":"` + jobs.job.ID.String() + `"}`
	w := postWebhook(r, "application/json", body, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["processed"])
	assert.Equal(t, false, resp["payment_success"])
	assert.Equal(t, models.PaymentStatusFailed, jobs.job.PaymentStatus)
}

func TestWebhookHandler_SignatureRequired(t *testing.T) {
	jobs := &stubJobStore{job: paidJobFixture()}
	secret := "gateway-secret"
	r := newWebhookRouter(jobs, secret)

	body := `{"ResponseCode":"1","TransactionNumber":"TXN-7","order_id":"` + jobs.job.ID.String() + `"}`

	w := postWebhook(r, "application/json", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postWebhook(r, "application/json", body, map[string]string{middleware.SignatureHeader: "deadbeef"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.PaymentStatusPending, jobs.job.PaymentStatus)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	signature := hex.EncodeToString(mac.Sum(nil))

	w = postWebhook(r, "application/json", body, map[string]string{middleware.SignatureHeader: signature})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaymentStatusPaid, jobs.job.PaymentStatus)
}
