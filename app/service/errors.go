package service

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInvalidPayType        = errors.New("invalid pay type")
	ErrCurrencyUnsupported   = errors.New("currency is not supported")
	ErrRecurrenceUnsupported = errors.New("recurrence is not supported for this request")
	ErrFlowNotFound          = errors.New("flow not found or expired")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrProvider              = errors.New("provider request failed")
	ErrUnsupportedOperation  = errors.New("operation is not supported")
	ErrRefundRejected        = errors.New("refund rejected")
)
