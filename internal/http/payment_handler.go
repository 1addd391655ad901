package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pawsocial/payment-service-go/internal/events"
	"github.com/pawsocial/payment-service-go/internal/payment"
)

// SubmissionService is the slice of *payment.Service the handlers need.
type SubmissionService interface {
	Submit(ctx context.Context, in payment.Intent) (*payment.Payment, error)
	Fetch(ctx context.Context, id int64) (*payment.Payment, error)
	History(ctx context.Context, userID int64) ([]payment.Payment, error)
	Latest(ctx context.Context, limit int) ([]payment.Payment, error)
}

// QueueDispatcher is the slice of *events.Dispatcher the handlers need.
type QueueDispatcher interface {
	Enqueue(ctx context.Context, in payment.Intent) (string, error)
	EnqueueBatch(ctx context.Context, intents []payment.Intent) events.BatchResult
	Stats(ctx context.Context) (events.QueueStats, error)
}

type PaymentHandler struct {
	svc        SubmissionService
	dispatcher QueueDispatcher
}

func NewPaymentHandler(svc SubmissionService, dispatcher QueueDispatcher) *PaymentHandler {
	return &PaymentHandler{svc: svc, dispatcher: dispatcher}
}

type submitResponse struct {
	Success   bool   `json:"success"`
	PaymentID int64  `json:"payment_id,omitempty"`
	Message   string `json:"message"`
}

func (h *PaymentHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var in payment.Intent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Success: false, Message: "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.svc.Submit(ctx, in)
	if err != nil {
		var verr *payment.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, submitResponse{Success: false, Message: verr.Error()})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, submitResponse{Success: false, Message: "payment store unavailable"})
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Success:   true,
		PaymentID: p.ID,
		Message:   "payment recorded",
	})
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "paymentId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.svc.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "payment store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) ListUserPayments(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	payments, err := h.svc.History(ctx, userID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "payment store unavailable")
		return
	}
	if payments == nil {
		payments = []payment.Payment{}
	}

	writeJSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) LatestPayments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	payments, err := h.svc.Latest(ctx, limit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "payment store unavailable")
		return
	}
	if payments == nil {
		payments = []payment.Payment{}
	}

	writeJSON(w, http.StatusOK, payments)
}

type enqueueResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

func (h *PaymentHandler) EnqueuePayment(w http.ResponseWriter, r *http.Request) {
	var in payment.Intent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := payment.ValidateIntent(&in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	msgID, err := h.dispatcher.Enqueue(ctx, in)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "payment queue unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, enqueueResponse{Status: "queued", MessageID: msgID})
}

type enqueueBatchRequest struct {
	Payments []payment.Intent `json:"payments"`
}

func (h *PaymentHandler) EnqueuePaymentBatch(w http.ResponseWriter, r *http.Request) {
	var req enqueueBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Payments) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}
	for i := range req.Payments {
		if err := payment.ValidateIntent(&req.Payments[i]); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res := h.dispatcher.EnqueueBatch(ctx, req.Payments)
	if res.Accepted == nil {
		res.Accepted = []events.BatchItem{}
	}
	if res.Rejected == nil {
		res.Rejected = []events.BatchFailure{}
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *PaymentHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stats, err := h.dispatcher.Stats(ctx)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "payment queue unavailable")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
