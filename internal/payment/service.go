package payment

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

const (
	// DefaultCurrency is applied when the intent leaves the currency blank.
	DefaultCurrency = "INR"

	maxCurrencyLen = 8

	// DefaultLatestLimit bounds the open latest-payments read path.
	DefaultLatestLimit = 1000
)

// Service validates intents and persists them. Each call is an independent
// operation: one durable write per submission, no retries, failures surface
// to the caller as-is.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ValidateIntent checks an intent and normalizes its currency.
func ValidateIntent(in *Intent) error {
	if in.UserID <= 0 {
		return &ValidationError{Field: "user_id", Reason: "must be a positive integer"}
	}
	if !in.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if in.Amount.Exponent() < -2 {
		return &ValidationError{Field: "amount", Reason: "at most two decimal places"}
	}
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if len(in.Currency) > maxCurrencyLen {
		return &ValidationError{Field: "currency", Reason: "must be a short code"}
	}
	return nil
}

// Submit persists a valid intent with status PAID and returns the stored record.
func (s *Service) Submit(ctx context.Context, in Intent) (*Payment, error) {
	if err := ValidateIntent(&in); err != nil {
		return nil, err
	}

	p := &Payment{
		UserID:      in.UserID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Status:      StatusPaid,
		Description: in.Description,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, storeError("create", err)
	}

	s.logger.Info().
		Int64("payment_id", p.ID).
		Int64("user_id", p.UserID).
		Str("amount", p.Amount.StringFixed(2)).
		Str("currency", p.Currency).
		Msg("payment recorded")
	return p, nil
}

func (s *Service) Fetch(ctx context.Context, id int64) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, storeError("fetch", err)
	}
	return p, nil
}

// History returns a user's payments, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]Payment, error) {
	payments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("history", err)
	}
	return payments, nil
}

// Latest returns the most recent payments across all users, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]Payment, error) {
	if limit <= 0 || limit > DefaultLatestLimit {
		limit = DefaultLatestLimit
	}
	payments, err := s.repo.ListLatest(ctx, limit)
	if err != nil {
		return nil, storeError("latest", err)
	}
	return payments, nil
}
