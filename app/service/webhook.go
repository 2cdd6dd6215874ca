package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
	"github.com/vibast-solutions/ms-go-gocardless/app/mapper"
	"github.com/vibast-solutions/ms-go-gocardless/app/repository"
)

const (
	webhookResultProcessed = "processed"
	webhookResultRejected  = "rejected"
)

type handleWebhookRequest interface {
	GetRequestId() string
	GetSource() string
	GetSignature() string
	GetPayload() string
}

// ValidateWebhook verifies a webhook batch and reconciles it into a single
// transaction. Every batch is recorded as processed or rejected.
func (s *GatewayService) ValidateWebhook(ctx context.Context, req handleWebhookRequest) (*entity.Transaction, error) {
	payload := []byte(req.GetPayload())
	signature := strings.TrimSpace(req.GetSignature())
	logger := s.logger.WithField("request_id", req.GetRequestId())

	events, err := gocardless.ParseWebhook(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		if errors.Is(err, gocardless.ErrInvalidSignature) {
			// Unauthenticated bodies are not stored.
			s.persistRejectedReceipt(ctx, req, "", 0, "webhook signature mismatch")
			return nil, ErrInvalidSignature
		}
		s.persistRejectedReceipt(ctx, req, req.GetPayload(), 0, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	fields := mapper.FoldEvents(events)

	var (
		payment      *gocardless.Payment
		subscription *gocardless.Subscription
	)
	if paymentID := fields.ID(entity.ResourcePayment); paymentID != "" {
		resp, err := s.client.Payments.Get(ctx, paymentID)
		if err != nil {
			s.persistRejectedReceipt(ctx, req, req.GetPayload(), len(events), fmt.Sprintf("fetch payment %s: %v", paymentID, err))
			return nil, providerError("get payment", err)
		}
		payment = resp.Resource
	}
	if payment != nil && payment.Links.Subscription != "" {
		resp, err := s.client.Subscriptions.Get(ctx, payment.Links.Subscription)
		if err != nil {
			s.persistRejectedReceipt(ctx, req, req.GetPayload(), len(events), fmt.Sprintf("fetch subscription %s: %v", payment.Links.Subscription, err))
			return nil, providerError("get subscription", err)
		}
		subscription = resp.Resource
	}

	tx := mapper.WebhookTransaction(fields, payment, subscription)
	if !tx.Postable() && tx.TransactionID != "" {
		logger.WithFields(logrus.Fields{
			"payment_id": tx.TransactionID,
			"cause":      fields.Cause(entity.ResourcePayment),
		}).Warn("webhook_status_unmapped")
	}

	if err := s.persistProcessedReceipt(ctx, req, len(events), tx); err != nil {
		return nil, err
	}
	s.metrics.WebhookBatch(webhookResultProcessed, string(tx.Status))

	logger.WithFields(logrus.Fields{
		"events":     len(events),
		"payment_id": tx.TransactionID,
		"status":     tx.Status,
	}).Info("webhook_processed")

	return tx, nil
}

func (s *GatewayService) persistProcessedReceipt(ctx context.Context, req handleWebhookRequest, eventCount int, tx *entity.Transaction) error {
	now := s.now().UTC()
	status := string(tx.Status)
	receipt := &entity.WebhookReceipt{
		Source:      receiptSource(req),
		Signature:   truncate(strings.TrimSpace(req.GetSignature()), 128),
		PayloadJSON: req.GetPayload(),
		EventCount:  int32(eventCount),
		PaymentID:   normalizeOptionalString(tx.TransactionID),
		Status:      entity.WebhookReceiptProcessed,
		TxStatus:    &status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.receiptRepo.Create(ctx, receipt)
	if !errors.Is(err, repository.ErrWebhookReceiptAlreadyExists) {
		return err
	}

	// A batch rejected earlier, e.g. on a provider outage, is promoted once a
	// redelivery goes through.
	promoted, err := s.receiptRepo.MarkProcessed(ctx, receipt)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"payment_id": tx.TransactionID,
		"promoted":   promoted,
	}).Debug("webhook_redelivered")
	return nil
}

func (s *GatewayService) persistRejectedReceipt(ctx context.Context, req handleWebhookRequest, payload string, eventCount int, reason string) {
	s.metrics.WebhookBatch(webhookResultRejected, "")

	now := s.now().UTC()
	reason = truncate(strings.TrimSpace(reason), 1024)
	if reason == "" {
		reason = "webhook rejected"
	}

	err := s.receiptRepo.Create(ctx, &entity.WebhookReceipt{
		Source:      receiptSource(req),
		Signature:   truncate(strings.TrimSpace(req.GetSignature()), 128),
		PayloadJSON: payload,
		EventCount:  int32(eventCount),
		Status:      entity.WebhookReceiptRejected,
		Error:       &reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil && !errors.Is(err, repository.ErrWebhookReceiptAlreadyExists) {
		s.logger.WithError(err).Warn("webhook_receipt_persist_failed")
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": req.GetRequestId(),
		"reason":     reason,
	}).Warn("webhook_rejected")
}

func receiptSource(req handleWebhookRequest) string {
	source := strings.TrimSpace(req.GetSource())
	if source == "" {
		return "gocardless"
	}
	return source
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
