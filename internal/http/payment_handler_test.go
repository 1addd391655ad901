package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsocial/payment-service-go/internal/events"
	"github.com/pawsocial/payment-service-go/internal/payment"
)

type fakeService struct {
	submitFunc  func(ctx context.Context, in payment.Intent) (*payment.Payment, error)
	fetchFunc   func(ctx context.Context, id int64) (*payment.Payment, error)
	historyFunc func(ctx context.Context, userID int64) ([]payment.Payment, error)
	latestFunc  func(ctx context.Context, limit int) ([]payment.Payment, error)
}

func (f *fakeService) Submit(ctx context.Context, in payment.Intent) (*payment.Payment, error) {
	if f.submitFunc != nil {
		return f.submitFunc(ctx, in)
	}
	return nil, nil
}

func (f *fakeService) Fetch(ctx context.Context, id int64) (*payment.Payment, error) {
	if f.fetchFunc != nil {
		return f.fetchFunc(ctx, id)
	}
	return nil, payment.ErrNotFound
}

func (f *fakeService) History(ctx context.Context, userID int64) ([]payment.Payment, error) {
	if f.historyFunc != nil {
		return f.historyFunc(ctx, userID)
	}
	return nil, nil
}

func (f *fakeService) Latest(ctx context.Context, limit int) ([]payment.Payment, error) {
	if f.latestFunc != nil {
		return f.latestFunc(ctx, limit)
	}
	return nil, nil
}

type fakeDispatcher struct {
	enqueueFunc func(ctx context.Context, in payment.Intent) (string, error)
	batchFunc   func(ctx context.Context, intents []payment.Intent) events.BatchResult
	statsFunc   func(ctx context.Context) (events.QueueStats, error)
}

func (f *fakeDispatcher) Enqueue(ctx context.Context, in payment.Intent) (string, error) {
	if f.enqueueFunc != nil {
		return f.enqueueFunc(ctx, in)
	}
	return "msg-1", nil
}

func (f *fakeDispatcher) EnqueueBatch(ctx context.Context, intents []payment.Intent) events.BatchResult {
	if f.batchFunc != nil {
		return f.batchFunc(ctx, intents)
	}
	return events.BatchResult{}
}

func (f *fakeDispatcher) Stats(ctx context.Context) (events.QueueStats, error) {
	if f.statsFunc != nil {
		return f.statsFunc(ctx)
	}
	return events.QueueStats{}, nil
}

func newTestRouter(svc SubmissionService, d QueueDispatcher) http.Handler {
	return NewRouter(NewPaymentHandler(svc, d))
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSubmitPayment_Success(t *testing.T) {
	svc := &fakeService{
		submitFunc: func(ctx context.Context, in payment.Intent) (*payment.Payment, error) {
			return &payment.Payment{
				ID:        41,
				UserID:    in.UserID,
				Amount:    in.Amount,
				Currency:  in.Currency,
				Status:    payment.StatusPaid,
				CreatedAt: time.Unix(0, 0),
			}, nil
		},
	}
	router := newTestRouter(svc, &fakeDispatcher{})

	rr := postJSON(t, router, "/api/payments", map[string]any{
		"user_id":  32,
		"amount":   "100.00",
		"currency": "INR",
	})

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Success   bool   `json:"success"`
		PaymentID int64  `json:"payment_id"`
		Message   string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(41), resp.PaymentID)
}

func TestSubmitPayment_ValidationFailure(t *testing.T) {
	svc := &fakeService{
		submitFunc: func(ctx context.Context, in payment.Intent) (*payment.Payment, error) {
			return nil, &payment.ValidationError{Field: "amount", Reason: "must be greater than zero"}
		},
	}
	router := newTestRouter(svc, &fakeDispatcher{})

	rr := postJSON(t, router, "/api/payments", map[string]any{
		"user_id": 32,
		"amount":  "-1",
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "amount")
}

func TestSubmitPayment_StoreUnavailable(t *testing.T) {
	svc := &fakeService{
		submitFunc: func(ctx context.Context, in payment.Intent) (*payment.Payment, error) {
			return nil, payment.ErrStoreUnavailable
		},
	}
	router := newTestRouter(svc, &fakeDispatcher{})

	rr := postJSON(t, router, "/api/payments", map[string]any{
		"user_id": 32,
		"amount":  "10.00",
	})

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestSubmitPayment_BadBody(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetPayment_Success(t *testing.T) {
	svc := &fakeService{
		fetchFunc: func(ctx context.Context, id int64) (*payment.Payment, error) {
			return &payment.Payment{
				ID:        id,
				UserID:    32,
				Amount:    decimal.RequireFromString("100.00"),
				Currency:  "INR",
				Status:    payment.StatusPaid,
				CreatedAt: time.Unix(0, 0),
			}, nil
		},
	}
	router := newTestRouter(svc, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/payments/41", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp payment.Payment
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(41), resp.ID)
	assert.Equal(t, payment.StatusPaid, resp.Status)
	assert.True(t, resp.Amount.Equal(decimal.RequireFromString("100.00")))
}

func TestGetPayment_NotFound(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/payments/999", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "payment not found", resp["error"])
}

func TestGetPayment_BadID(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/payments/abc", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListUserPayments_Empty(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/32/payments", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []payment.Payment
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Empty(t, resp)
}

func TestLatestPayments_PassesLimit(t *testing.T) {
	var gotLimit int
	svc := &fakeService{
		latestFunc: func(ctx context.Context, limit int) ([]payment.Payment, error) {
			gotLimit = limit
			return []payment.Payment{{ID: 1}}, nil
		},
	}
	router := newTestRouter(svc, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/payments/latest?limit=50", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 50, gotLimit)
}

func TestLatestPayments_BadLimit(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/payments/latest?limit=abc", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEnqueuePayment_Success(t *testing.T) {
	d := &fakeDispatcher{
		enqueueFunc: func(ctx context.Context, in payment.Intent) (string, error) {
			return "2b1a7c9e", nil
		},
	}
	router := newTestRouter(&fakeService{}, d)

	rr := postJSON(t, router, "/api/payments/enqueue", map[string]any{
		"user_id": 32,
		"amount":  "100.00",
	})

	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp struct {
		Status    string `json:"status"`
		MessageID string `json:"message_id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, "2b1a7c9e", resp.MessageID)
}

func TestEnqueuePayment_ValidationFailure(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeDispatcher{})

	rr := postJSON(t, router, "/api/payments/enqueue", map[string]any{
		"user_id": 32,
		"amount":  "0",
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEnqueuePayment_QueueUnavailable(t *testing.T) {
	d := &fakeDispatcher{
		enqueueFunc: func(ctx context.Context, in payment.Intent) (string, error) {
			return "", events.ErrQueueUnavailable
		},
	}
	router := newTestRouter(&fakeService{}, d)

	rr := postJSON(t, router, "/api/payments/enqueue", map[string]any{
		"user_id": 32,
		"amount":  "10.00",
	})

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestEnqueuePaymentBatch(t *testing.T) {
	var gotCount int
	d := &fakeDispatcher{
		batchFunc: func(ctx context.Context, intents []payment.Intent) events.BatchResult {
			gotCount = len(intents)
			res := events.BatchResult{}
			for i := range intents {
				res.Accepted = append(res.Accepted, events.BatchItem{Index: i, MessageID: "m"})
			}
			return res
		},
	}
	router := newTestRouter(&fakeService{}, d)

	payments := make([]map[string]any, 25)
	for i := range payments {
		payments[i] = map[string]any{"user_id": i + 1, "amount": "10.00"}
	}

	rr := postJSON(t, router, "/api/payments/enqueue/batch", map[string]any{"payments": payments})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 25, gotCount)

	var resp events.BatchResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Accepted, 25)
	assert.Empty(t, resp.Rejected)
}

func TestEnqueuePaymentBatch_Empty(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeDispatcher{})

	rr := postJSON(t, router, "/api/payments/enqueue/batch", map[string]any{"payments": []any{}})

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQueueStats(t *testing.T) {
	d := &fakeDispatcher{
		statsFunc: func(ctx context.Context) (events.QueueStats, error) {
			return events.QueueStats{Queue: "payment.queued", VisibleMessages: 3, Consumers: 1}, nil
		},
	}
	router := newTestRouter(&fakeService{}, d)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp events.QueueStats
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 3, resp.VisibleMessages)
}

func TestQueueStats_Unavailable(t *testing.T) {
	d := &fakeDispatcher{
		statsFunc: func(ctx context.Context) (events.QueueStats, error) {
			return events.QueueStats{}, errors.New("channel closed")
		},
	}
	router := newTestRouter(&fakeService{}, d)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	router := newTestRouter(&fakeService{}, &fakeDispatcher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}
