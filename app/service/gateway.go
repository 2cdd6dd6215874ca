package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/factory"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
	"github.com/vibast-solutions/ms-go-gocardless/app/metrics"
	"github.com/vibast-solutions/ms-go-gocardless/config"
)

const (
	defaultBatchSize = int32(500)
	defaultRetention = 30 * 24 * time.Hour
)

// SupportedCurrencies lists the currencies GoCardless collects in.
var SupportedCurrencies = []string{"AUD", "DKK", "EUR", "GBP", "NZD", "SEK"}

type flowSessionRepository interface {
	Save(ctx context.Context, session *entity.FlowSession) error
	Find(ctx context.Context, token string) (*entity.FlowSession, error)
	Delete(ctx context.Context, token string) error
}

type webhookReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.WebhookReceipt) error
	MarkProcessed(ctx context.Context, receipt *entity.WebhookReceipt) (bool, error)
	ListRecent(ctx context.Context, status int32, limit int32) ([]*entity.WebhookReceipt, error)
	DeleteOlderThan(ctx context.Context, before time.Time, limit int32) (int64, error)
}

// GatewayService drives the redirect flow, webhook reconciliation and
// refund/void operations against one GoCardless merchant account.
type GatewayService struct {
	client      *gocardless.Client
	flowRepo    flowSessionRepository
	receiptRepo webhookReceiptRepository
	cfg         config.GoCardlessConfig
	jobsCfg     config.JobsConfig
	metrics     *metrics.Recorder
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewGatewayService(
	client *gocardless.Client,
	flowRepo flowSessionRepository,
	receiptRepo webhookReceiptRepository,
	cfg config.GoCardlessConfig,
	jobsCfg config.JobsConfig,
	recorder *metrics.Recorder,
) *GatewayService {
	return &GatewayService{
		client:      client,
		flowRepo:    flowRepo,
		receiptRepo: receiptRepo,
		cfg:         cfg,
		jobsCfg:     jobsCfg,
		metrics:     recorder,
		logger:      factory.NewModuleLogger("gateway-service"),
		now:         time.Now,
	}
}

func (s *GatewayService) Client() *gocardless.Client {
	return s.client
}

func (s *GatewayService) batchSize() int32 {
	if s.jobsCfg.BatchSize <= 0 {
		return defaultBatchSize
	}
	return s.jobsCfg.BatchSize
}

func currencySupported(currency string) bool {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	for _, supported := range SupportedCurrencies {
		if supported == currency {
			return true
		}
	}
	return false
}

// providerError wraps a provider failure so callers can match ErrProvider and
// still reach the underlying *gocardless.APIError or *gocardless.TransportError.
func providerError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrProvider, op, err)
}

// IsRetryable reports whether a service error came from a transport failure or
// timeout that the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProvider) && gocardless.IsRetryable(err)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
