package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
)

type EventFilter struct {
	ResourceType string
	Action       string
	CreatedAfter string
	PageSize     int
}

func (f EventFilter) query() url.Values {
	query := url.Values{}
	if v := strings.TrimSpace(f.ResourceType); v != "" {
		query.Set("resource_type", v)
	}
	if v := strings.TrimSpace(f.Action); v != "" {
		query.Set("action", v)
	}
	if v := strings.TrimSpace(f.CreatedAfter); v != "" {
		query.Set("created_at[gt]", v)
	}
	if f.PageSize > 0 {
		query.Set("limit", strconv.Itoa(f.PageSize))
	}
	return query
}

// WalkEvents calls fn for every provider event matching the filter, one page
// at a time, and returns how many events were visited.
func (s *GatewayService) WalkEvents(ctx context.Context, filter EventFilter, fn func(*gocardless.Event) error) (int, error) {
	paginator := s.client.Events.All(filter.query())

	count := 0
	for paginator.Next(ctx) {
		count++
		if err := fn(paginator.Value()); err != nil {
			return count, err
		}
	}
	if err := paginator.Err(); err != nil {
		return count, providerError("list events", err)
	}
	return count, nil
}

func (s *GatewayService) ListReceipts(ctx context.Context, status int32, limit int32) ([]*entity.WebhookReceipt, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.receiptRepo.ListRecent(ctx, status, limit)
}
