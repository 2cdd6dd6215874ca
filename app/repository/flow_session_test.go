package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
)

func newTestFlowSessionRepository(t *testing.T, ttl time.Duration) (*FlowSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewFlowSessionRepository(client, ttl), mr
}

func TestFlowSessionSaveFindDelete(t *testing.T) {
	repo, mr := newTestFlowSessionRepository(t, 30*time.Minute)
	ctx := context.Background()

	session := &entity.FlowSession{
		Token:        "flow-1",
		SessionToken: "SESS_abc",
		PayType:      entity.PayTypeSubscribe,
		ClientID:     "42",
		Amount:       "10.00",
		Currency:     "GBP",
		Invoices:     "1=10.00",
		Recur:        &entity.Recurrence{Amount: "10.00", Term: 12, Period: "month"},
		ReturnURL:    "https://shop.example/return",
	}
	require.NoError(t, repo.Save(ctx, session))
	assert.Equal(t, 30*time.Minute, mr.TTL(flowSessionKey("flow-1")))

	found, err := repo.Find(ctx, "flow-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "SESS_abc", found.SessionToken)
	assert.Equal(t, entity.PayTypeSubscribe, found.PayType)
	require.NotNil(t, found.Recur)
	assert.Equal(t, 12, found.Recur.Term)

	require.NoError(t, repo.Delete(ctx, "flow-1"))
	found, err = repo.Find(ctx, "flow-1")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFlowSessionExpires(t *testing.T) {
	repo, mr := newTestFlowSessionRepository(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &entity.FlowSession{Token: "flow-2", SessionToken: "SESS_x"}))
	mr.FastForward(2 * time.Minute)

	found, err := repo.Find(ctx, "flow-2")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFlowSessionRejectsMissingToken(t *testing.T) {
	repo, _ := newTestFlowSessionRepository(t, time.Minute)

	assert.ErrorIs(t, repo.Save(context.Background(), &entity.FlowSession{}), ErrFlowSessionInvalid)
	assert.ErrorIs(t, repo.Save(context.Background(), nil), ErrFlowSessionInvalid)

	found, err := repo.Find(context.Background(), " ")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFlowSessionFindSurfacesRedisErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewFlowSessionRepository(client, time.Minute)
	_, err := repo.Find(context.Background(), "flow-3")
	assert.Error(t, err)
}
