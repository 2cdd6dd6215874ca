package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
)

const flowSessionKeyPrefix = "gocardless:flow:"

var ErrFlowSessionInvalid = errors.New("flow session is invalid")

// FlowSessionRepository keeps redirect flow correlation records in Redis. A
// record expires on its own after the configured TTL.
type FlowSessionRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewFlowSessionRepository(client redis.Cmdable, ttl time.Duration) *FlowSessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FlowSessionRepository{client: client, ttl: ttl}
}

func (r *FlowSessionRepository) Save(ctx context.Context, session *entity.FlowSession) error {
	if session == nil || strings.TrimSpace(session.Token) == "" {
		return ErrFlowSessionInvalid
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, flowSessionKey(session.Token), payload, r.ttl).Err()
}

// Find returns nil when the record is missing or expired.
func (r *FlowSessionRepository) Find(ctx context.Context, token string) (*entity.FlowSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	data, err := r.client.Get(ctx, flowSessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	session := &entity.FlowSession{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *FlowSessionRepository) Delete(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return r.client.Del(ctx, flowSessionKey(token)).Err()
}

func flowSessionKey(token string) string {
	return flowSessionKeyPrefix + token
}
