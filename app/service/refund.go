package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
)

type refundRequest interface {
	GetTransactionId() string
	GetAmount() string
	GetReference() string
	GetIdempotencyKey() string
}

type voidRequest interface {
	GetTransactionId() string
}

// Refund refunds a one-off payment. Any provider failure, including a non-2xx
// answer, is reported as ErrRefundRejected. A caller-supplied idempotency key
// makes retries of the same refund resolve to the refund already created.
func (s *GatewayService) Refund(ctx context.Context, req refundRequest) (tx *entity.Transaction, err error) {
	defer func() { s.metrics.Refund("refund", err) }()

	paymentID := strings.TrimSpace(req.GetTransactionId())
	if !strings.HasPrefix(paymentID, gocardless.PaymentIDPrefix) {
		return nil, fmt.Errorf("%w: only payments can be refunded", ErrUnsupportedOperation)
	}

	amount, err := entity.ParseAmount(req.GetAmount())
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	minor := entity.ToMinorUnits(amount)
	reference := strings.TrimSpace(req.GetReference())

	var opts []gocardless.RequestOption
	if key := strings.TrimSpace(req.GetIdempotencyKey()); key != "" {
		opts = append(opts, gocardless.WithIdempotencyKey(key))
	}

	resp, err := s.client.Refunds.Create(ctx, &gocardless.RefundCreateParams{
		Amount:                  minor,
		TotalAmountConfirmation: minor,
		Reference:               reference,
		Links:                   gocardless.RefundPaymentLinkParams{Payment: paymentID},
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefundRejected, err)
	}
	if !resp.Success() || resp.Resource == nil || resp.Resource.ID == "" {
		return nil, fmt.Errorf("%w: provider answered with status %d", ErrRefundRejected, resp.StatusCode)
	}
	refund := resp.Resource
	// A reused key resolves to the refund it first created, which must be
	// this same refund.
	if resp.Outcome == gocardless.OutcomeConflictResolved &&
		(refund.Amount != minor || refund.Links.Payment != paymentID) {
		return nil, fmt.Errorf("%w: idempotency key already used for refund %s", ErrRefundRejected, refund.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"refund_id":  refund.ID,
		"amount":     entity.FormatMinorUnits(refund.Amount),
		"replayed":   resp.Outcome == gocardless.OutcomeConflictResolved,
	}).Info("refund_created")

	parent := paymentID
	return &entity.Transaction{
		Amount:              entity.FormatMinorUnits(refund.Amount),
		Currency:            refund.Currency,
		Status:              entity.StatusRefunded,
		TransactionID:       refund.ID,
		ParentTransactionID: &parent,
		Invoices:            entity.Invoices{},
	}, nil
}

// Void cancels the subscription behind a payment, if there is one. The result
// is always void for the original transaction id.
func (s *GatewayService) Void(ctx context.Context, req voidRequest) (tx *entity.Transaction, err error) {
	defer func() { s.metrics.Refund("void", err) }()

	transactionID := strings.TrimSpace(req.GetTransactionId())
	if transactionID == "" {
		return nil, ErrInvalidRequest
	}

	paymentResp, err := s.client.Payments.Get(ctx, transactionID)
	if err != nil {
		return nil, providerError("get payment", err)
	}

	if paymentResp.Resource != nil && paymentResp.Resource.Links.Subscription != "" {
		subscriptionID := paymentResp.Resource.Links.Subscription
		subResp, err := s.client.Subscriptions.Get(ctx, subscriptionID)
		if err != nil {
			return nil, providerError("get subscription", err)
		}
		if subResp.Resource != nil && subResp.Resource.ID != "" && !subscriptionEnded(subResp.Resource.Status) {
			if _, err := s.client.Subscriptions.Action(ctx, subResp.Resource.ID, "cancel", nil); err != nil {
				return nil, providerError("cancel subscription", err)
			}
			s.logger.WithFields(logrus.Fields{
				"payment_id":      transactionID,
				"subscription_id": subResp.Resource.ID,
			}).Info("subscription_cancelled")
		}
	}

	return &entity.Transaction{
		Status:        entity.StatusVoid,
		TransactionID: transactionID,
		Invoices:      entity.Invoices{},
	}, nil
}

// Capture is not available for direct debit: there is no separate
// authorization step to capture.
func (s *GatewayService) Capture(_ context.Context, _ string) (*entity.Transaction, error) {
	return nil, ErrUnsupportedOperation
}

func subscriptionEnded(status string) bool {
	switch status {
	case "cancelled", "finished":
		return true
	default:
		return false
	}
}
