package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
)

type mandateActionRequest interface {
	GetMandateId() string
	GetMetadata() map[string]string
}

func (s *GatewayService) CancelMandate(ctx context.Context, req mandateActionRequest) (*gocardless.Mandate, error) {
	return s.mandateAction(ctx, req, "cancel")
}

func (s *GatewayService) ReinstateMandate(ctx context.Context, req mandateActionRequest) (*gocardless.Mandate, error) {
	return s.mandateAction(ctx, req, "reinstate")
}

func (s *GatewayService) mandateAction(ctx context.Context, req mandateActionRequest, action string) (*gocardless.Mandate, error) {
	mandateID := strings.TrimSpace(req.GetMandateId())
	if !strings.HasPrefix(mandateID, gocardless.MandateIDPrefix) {
		return nil, ErrInvalidRequest
	}

	var params any
	if len(req.GetMetadata()) > 0 {
		params = &gocardless.ActionParams{Metadata: req.GetMetadata()}
	}

	resp, err := s.client.Mandates.Action(ctx, mandateID, action, params)
	if err != nil {
		return nil, providerError(action+" mandate", err)
	}

	s.logger.WithFields(logrus.Fields{
		"mandate_id": mandateID,
		"action":     action,
		"outcome":    resp.Outcome,
	}).Info("mandate_action_applied")

	return resp.Resource, nil
}
