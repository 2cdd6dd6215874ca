package service

import (
	"context"

	"github.com/sirupsen/logrus"
)

// RunPurgeReceiptsBatch removes one batch of webhook receipts older than the
// configured retention.
func (s *GatewayService) RunPurgeReceiptsBatch(ctx context.Context) error {
	retention := s.jobsCfg.ReceiptsRetention
	if retention <= 0 {
		retention = defaultRetention
	}
	cutoff := s.now().UTC().Add(-retention)

	deleted, err := s.receiptRepo.DeleteOlderThan(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"cutoff":  cutoff,
		"deleted": deleted,
	}).Info("webhook_receipts_purged")

	return nil
}
