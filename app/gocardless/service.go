package gocardless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Outcome tells a caller whether a write created the resource or whether an
// earlier attempt with the same idempotency key had already created it.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeConflictResolved
)

type Response[T any] struct {
	StatusCode int
	Outcome    Outcome
	Resource   *T
	Raw        json.RawMessage
}

func (r *Response[T]) Success() bool {
	return r != nil && r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

type Page[T any] struct {
	Items  []*T
	Before string
	After  string
	Limit  int
}

type RequestOption func(*request)

// WithIdempotencyKey pins the Idempotency-Key header so a retried write is
// reported as a conflict instead of creating a second resource.
func WithIdempotencyKey(key string) RequestOption {
	return func(r *request) {
		r.idempotencyKey = key
	}
}

// Service is the generic client for one API resource, e.g. /payments.
type Service[T any] struct {
	client      *Client
	path        string
	envelopeKey string
}

func newService[T any](client *Client, envelopeKey string) *Service[T] {
	return &Service[T]{
		client:      client,
		path:        "/" + envelopeKey,
		envelopeKey: envelopeKey,
	}
}

func (s *Service[T]) EnvelopeKey() string {
	return s.envelopeKey
}

func (s *Service[T]) Create(ctx context.Context, params any, opts ...RequestOption) (*Response[T], error) {
	req := request{
		method: http.MethodPost,
		path:   s.path,
		body:   map[string]any{s.envelopeKey: params},
	}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := s.send(ctx, req)
	if err != nil {
		return s.resolveConflict(ctx, err)
	}
	return resp, nil
}

func (s *Service[T]) Get(ctx context.Context, id string) (*Response[T], error) {
	path, err := s.resourcePath(id)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, request{method: http.MethodGet, path: path})
}

func (s *Service[T]) Update(ctx context.Context, id string, params any) (*Response[T], error) {
	path, err := s.resourcePath(id)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, request{
		method: http.MethodPut,
		path:   path,
		body:   map[string]any{s.envelopeKey: params},
	})
}

// Action posts to /<resource>/:id/actions/<name>. The body is keyed by "data".
func (s *Service[T]) Action(ctx context.Context, id, name string, params any, opts ...RequestOption) (*Response[T], error) {
	path, err := s.resourcePath(id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("gocardless action name is required")
	}
	if params == nil {
		params = struct{}{}
	}

	req := request{
		method: http.MethodPost,
		path:   path + "/actions/" + url.PathEscape(name),
		body:   map[string]any{"data": params},
	}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := s.send(ctx, req)
	if err != nil {
		return s.resolveConflict(ctx, err)
	}
	return resp, nil
}

func (s *Service[T]) List(ctx context.Context, query url.Values) (*Page[T], error) {
	raw, err := s.client.do(ctx, request{method: http.MethodGet, path: s.path, query: query})
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw.body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", s.envelopeKey, err)
	}

	page := &Page[T]{Items: []*T{}}
	if items, ok := envelope[s.envelopeKey]; ok && len(items) > 0 {
		if err := json.Unmarshal(items, &page.Items); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", s.envelopeKey, err)
		}
	}

	if meta, ok := envelope["meta"]; ok && len(meta) > 0 {
		var m struct {
			Cursors struct {
				Before *string `json:"before"`
				After  *string `json:"after"`
			} `json:"cursors"`
			Limit int `json:"limit"`
		}
		if err := json.Unmarshal(meta, &m); err != nil {
			return nil, fmt.Errorf("decode %s list meta: %w", s.envelopeKey, err)
		}
		if m.Cursors.Before != nil {
			page.Before = *m.Cursors.Before
		}
		if m.Cursors.After != nil {
			page.After = *m.Cursors.After
		}
		page.Limit = m.Limit
	}

	return page, nil
}

// All returns a fresh paginator over the list endpoint.
func (s *Service[T]) All(query url.Values) *Paginator[T] {
	return NewPaginator[T](s, query)
}

func (s *Service[T]) send(ctx context.Context, req request) (*Response[T], error) {
	raw, err := s.client.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.decode(raw)
}

func (s *Service[T]) decode(raw *rawResponse) (*Response[T], error) {
	resp := &Response[T]{StatusCode: raw.statusCode}
	if len(raw.body) == 0 {
		return resp, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw.body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", s.envelopeKey, err)
	}
	body, ok := envelope[s.envelopeKey]
	if !ok {
		return resp, nil
	}

	var resource T
	if err := json.Unmarshal(body, &resource); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", s.envelopeKey, err)
	}
	resp.Resource = &resource
	resp.Raw = body

	return resp, nil
}

// resolveConflict turns an idempotent creation conflict into a fetch of the
// resource that already exists. Any other error is returned unchanged.
func (s *Service[T]) resolveConflict(ctx context.Context, err error) (*Response[T], error) {
	id, ok := ConflictingResourceID(err)
	if !ok {
		return nil, err
	}

	s.client.logger.WithField("resource", s.envelopeKey).WithField("conflicting_resource_id", id).Info("gocardless_idempotent_conflict_resolved")

	resp, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	resp.Outcome = OutcomeConflictResolved
	return resp, nil
}

func (s *Service[T]) resourcePath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("gocardless %s id is required", s.envelopeKey)
	}
	return s.path + "/" + url.PathEscape(id), nil
}

type RedirectFlowService struct {
	*Service[RedirectFlow]
}

// Complete finishes a redirect flow. Completing a flow twice returns the
// already completed flow.
func (s *RedirectFlowService) Complete(ctx context.Context, id, sessionToken string) (*Response[RedirectFlow], error) {
	resp, err := s.Action(ctx, id, "complete", &RedirectFlowCompleteParams{SessionToken: sessionToken})
	if err == nil {
		return resp, nil
	}
	if !hasReason(err, ReasonRedirectFlowAlreadyCompleted) {
		return nil, err
	}

	resp, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	resp.Outcome = OutcomeConflictResolved
	return resp, nil
}
