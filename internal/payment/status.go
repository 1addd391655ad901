package payment

type Status string

const (
	StatusPaid    Status = "PAID"
	StatusPending Status = "PENDING"
	StatusFailed  Status = "FAILED"
)
