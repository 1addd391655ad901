package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *PaymentHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", h.SubmitPayment)
			r.Get("/latest", h.LatestPayments)
			r.Post("/enqueue", h.EnqueuePayment)
			r.Post("/enqueue/batch", h.EnqueuePaymentBatch)
			r.Get("/{paymentId}", h.GetPayment)
		})
		r.Get("/users/{userId}/payments", h.ListUserPayments)
		r.Get("/queue/stats", h.QueueStats)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "payment-service",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
