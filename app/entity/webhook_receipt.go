package entity

import "time"

const (
	WebhookReceiptProcessed int32 = 10
	WebhookReceiptRejected  int32 = 20
)

type WebhookReceipt struct {
	ID uint64

	Source      string
	Signature   string
	PayloadJSON string
	EventCount  int32
	PaymentID   *string
	Status      int32
	TxStatus    *string
	Error       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
