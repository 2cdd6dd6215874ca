package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
	"github.com/vibast-solutions/ms-go-gocardless/app/repository"
	"github.com/vibast-solutions/ms-go-gocardless/config"
)

const testWebhookSecret = "whsec_test_0123456789012345678901234567890123"

type apiCall struct {
	Method         string
	Path           string
	IdempotencyKey string
	Body           map[string]json.RawMessage
}

type apiReply struct {
	status int
	body   string
}

// fakeProvider answers GoCardless API calls from a "METHOD /path" route table.
type fakeProvider struct {
	mu     sync.Mutex
	routes map[string]func(call apiCall) apiReply
	calls  []apiCall
}

func (p *fakeProvider) on(route string, status int, body string) {
	p.handle(route, func(apiCall) apiReply { return apiReply{status: status, body: body} })
}

func (p *fakeProvider) handle(route string, fn func(call apiCall) apiReply) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[route] = fn
}

func (p *fakeProvider) recorded() []apiCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]apiCall(nil), p.calls...)
}

func (p *fakeProvider) count(route string) int {
	n := 0
	for _, call := range p.recorded() {
		if call.Method+" "+call.Path == route {
			n++
		}
	}
	return n
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	body := map[string]json.RawMessage{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	call := apiCall{
		Method:         r.Method,
		Path:           r.URL.Path,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Body:           body,
	}

	p.mu.Lock()
	p.calls = append(p.calls, call)
	fn, ok := p.routes[r.Method+" "+r.URL.Path]
	p.mu.Unlock()

	reply := apiReply{status: http.StatusNotFound, body: `{"error":{"type":"invalid_api_usage","code":404,"message":"not found"}}`}
	if ok {
		reply = fn(call)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = io.WriteString(w, reply.body)
}

type fakeFlowRepo struct {
	sessions map[string]*entity.FlowSession
	deleted  []string
}

func newFakeFlowRepo() *fakeFlowRepo {
	return &fakeFlowRepo{sessions: map[string]*entity.FlowSession{}}
}

func (r *fakeFlowRepo) Save(_ context.Context, session *entity.FlowSession) error {
	if session == nil || session.Token == "" {
		return repository.ErrFlowSessionInvalid
	}
	copyItem := *session
	r.sessions[session.Token] = &copyItem
	return nil
}

func (r *fakeFlowRepo) Find(_ context.Context, token string) (*entity.FlowSession, error) {
	item, ok := r.sessions[token]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *fakeFlowRepo) Delete(_ context.Context, token string) error {
	delete(r.sessions, token)
	r.deleted = append(r.deleted, token)
	return nil
}

type fakeReceiptRepo struct {
	receipts []*entity.WebhookReceipt
	purged   []time.Time
}

func (r *fakeReceiptRepo) Create(_ context.Context, receipt *entity.WebhookReceipt) error {
	for _, item := range r.receipts {
		if item.Source == receipt.Source && item.Signature == receipt.Signature {
			return repository.ErrWebhookReceiptAlreadyExists
		}
	}
	copyItem := *receipt
	copyItem.ID = uint64(len(r.receipts) + 1)
	r.receipts = append(r.receipts, &copyItem)
	receipt.ID = copyItem.ID
	return nil
}

func (r *fakeReceiptRepo) MarkProcessed(_ context.Context, receipt *entity.WebhookReceipt) (bool, error) {
	for _, item := range r.receipts {
		if item.Source != receipt.Source || item.Signature != receipt.Signature || item.Status != entity.WebhookReceiptRejected {
			continue
		}
		item.PayloadJSON = receipt.PayloadJSON
		item.EventCount = receipt.EventCount
		item.PaymentID = receipt.PaymentID
		item.Status = entity.WebhookReceiptProcessed
		item.TxStatus = receipt.TxStatus
		item.Error = nil
		item.UpdatedAt = receipt.UpdatedAt
		return true, nil
	}
	return false, nil
}

func (r *fakeReceiptRepo) ListRecent(_ context.Context, status int32, limit int32) ([]*entity.WebhookReceipt, error) {
	items := make([]*entity.WebhookReceipt, 0)
	for i := len(r.receipts) - 1; i >= 0 && int32(len(items)) < limit; i-- {
		if status > 0 && r.receipts[i].Status != status {
			continue
		}
		items = append(items, r.receipts[i])
	}
	return items, nil
}

func (r *fakeReceiptRepo) DeleteOlderThan(_ context.Context, before time.Time, limit int32) (int64, error) {
	r.purged = append(r.purged, before)
	kept := r.receipts[:0]
	var deleted int64
	for _, item := range r.receipts {
		if item.CreatedAt.Before(before) && deleted < int64(limit) {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	r.receipts = kept
	return deleted, nil
}

type testGateway struct {
	svc      *GatewayService
	provider *fakeProvider
	flows    *fakeFlowRepo
	receipts *fakeReceiptRepo
}

func newTestGateway(t *testing.T, now time.Time) *testGateway {
	t.Helper()

	provider := &fakeProvider{routes: map[string]func(call apiCall) apiReply{}}
	srv := httptest.NewServer(provider)
	t.Cleanup(srv.Close)

	client := gocardless.NewClient(gocardless.Config{
		AccessToken: strings.Repeat("t", 40),
		BaseURL:     srv.URL,
	})

	flows := newFakeFlowRepo()
	receipts := &fakeReceiptRepo{}
	svc := NewGatewayService(client, flows, receipts, config.GoCardlessConfig{
		AccessToken:   strings.Repeat("t", 40),
		WebhookSecret: testWebhookSecret,
		DevMode:       "true",
		PublicBaseURL: "https://pay.example.com/",
		CompanyName:   "Example Hosting Ltd",
		FlowTTL:       time.Hour,
	}, config.JobsConfig{ReceiptsRetention: 24 * time.Hour, BatchSize: 10}, nil)
	svc.now = func() time.Time { return now }

	return &testGateway{svc: svc, provider: provider, flows: flows, receipts: receipts}
}
