// model/payment.go
package model

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
	PaymentExpired PaymentStatus = "EXPIRED"
)

type PaymentType string

const (
	TypePayment PaymentType = "PAYMENT"
	TypeFine    PaymentType = "FINE"
)

type Payment struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"user_id"`
	BorrowingID int64         `json:"borrowing_id"`
	Status      PaymentStatus `json:"status"`
	Type        PaymentType   `json:"type"`
	Amount      float64       `json:"amount"`
	SessionURL  string        `json:"session_url,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
