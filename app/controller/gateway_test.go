package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
	"github.com/vibast-solutions/ms-go-gocardless/app/service"
	"github.com/vibast-solutions/ms-go-gocardless/app/types"
	"github.com/vibast-solutions/ms-go-gocardless/config"
)

const controllerWebhookSecret = "whsec_ctrl_01234567890123456789012345678901234"

type controllerFlowRepo struct {
	sessions map[string]*entity.FlowSession
}

func (r *controllerFlowRepo) Save(_ context.Context, session *entity.FlowSession) error {
	r.sessions[session.Token] = session
	return nil
}

func (r *controllerFlowRepo) Find(_ context.Context, token string) (*entity.FlowSession, error) {
	return r.sessions[token], nil
}

func (r *controllerFlowRepo) Delete(_ context.Context, token string) error {
	delete(r.sessions, token)
	return nil
}

type controllerReceiptRepo struct {
	receipts []*entity.WebhookReceipt
}

func (r *controllerReceiptRepo) Create(_ context.Context, receipt *entity.WebhookReceipt) error {
	r.receipts = append(r.receipts, receipt)
	return nil
}

func (r *controllerReceiptRepo) MarkProcessed(_ context.Context, _ *entity.WebhookReceipt) (bool, error) {
	return false, nil
}

func (r *controllerReceiptRepo) ListRecent(_ context.Context, _ int32, _ int32) ([]*entity.WebhookReceipt, error) {
	return r.receipts, nil
}

func (r *controllerReceiptRepo) DeleteOlderThan(_ context.Context, _ time.Time, _ int32) (int64, error) {
	return 0, nil
}

// newTestController wires the controller to a provider stub that answers
// "METHOD /path" keys with canned JSON bodies.
func newTestController(t *testing.T, routes map[string]string) (*GatewayController, *controllerFlowRepo) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"type":"invalid_api_usage","code":404,"message":"not found"}}`)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client := gocardless.NewClient(gocardless.Config{AccessToken: strings.Repeat("t", 40), BaseURL: srv.URL})
	flows := &controllerFlowRepo{sessions: map[string]*entity.FlowSession{}}
	gatewayService := service.NewGatewayService(client, flows, &controllerReceiptRepo{}, config.GoCardlessConfig{
		AccessToken:   strings.Repeat("t", 40),
		WebhookSecret: controllerWebhookSecret,
		DevMode:       "true",
		PublicBaseURL: "https://pay.example.com",
		FlowTTL:       time.Hour,
	}, config.JobsConfig{}, nil)

	return NewGatewayController(gatewayService), flows
}

func newRequest(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHealth(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	ctx, rec := newRequest(http.MethodGet, "/health", "")

	if err := ctrl.Health(ctx); err != nil {
		t.Fatalf("health returned error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestStartFlow(t *testing.T) {
	ctrl, flows := newTestController(t, map[string]string{
		"POST /redirect_flows": `{"redirect_flows":{"id":"RE0001","redirect_url":"https://pay.gocardless.com/flow/RE0001"}}`,
	})

	ctx, rec := newRequest(http.MethodPost, "/flows", `{"pay_type":"onetime","client_id":"42","amount":"10.00","currency":"gbp","return_url":"https://host.example.com/return"}`)
	if err := ctrl.StartFlow(ctx); err != nil {
		t.Fatalf("start flow returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.StartFlowResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RedirectFlowId != "RE0001" || resp.FlowToken == "" || flows.sessions[resp.FlowToken] == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStartFlowRejectsInvalidBody(t *testing.T) {
	ctrl, _ := newTestController(t, nil)

	cases := map[string]struct {
		body   string
		status int
	}{
		"malformed":   {body: `{`, status: http.StatusBadRequest},
		"bad paytype": {body: `{"pay_type":"card","client_id":"1","amount":"1","currency":"GBP","return_url":"https://x.example.com"}`, status: http.StatusBadRequest},
		"usd":         {body: `{"pay_type":"onetime","client_id":"1","amount":"1","currency":"USD","return_url":"https://x.example.com"}`, status: http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx, rec := newRequest(http.MethodPost, "/flows", tc.body)
			if err := ctrl.StartFlow(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCompleteFlowUnknownToken(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	query := url.Values{"flow_token": {"missing"}, "redirect_flow_id": {"RE0001"}}
	ctx, rec := newRequest(http.MethodGet, "/flows/complete?"+query.Encode(), "")

	if err := ctrl.CompleteFlow(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCompleteFlowRedirects(t *testing.T) {
	ctrl, flows := newTestController(t, map[string]string{
		"POST /redirect_flows/RE0001/actions/complete": `{"redirect_flows":{"id":"RE0001","links":{"mandate":"MD0001"}}}`,
		"POST /payments": `{"payments":{"id":"PM0001","amount":1000,"currency":"GBP"}}`,
	})
	flows.sessions["flow-1"] = &entity.FlowSession{
		Token:          "flow-1",
		SessionToken:   "SESS_x",
		PayType:        entity.PayTypeOneTime,
		ClientID:       "42",
		Amount:         "10.00",
		Currency:       "GBP",
		ReturnURL:      "https://host.example.com/return",
		RedirectFlowID: "RE0001",
	}

	ctx, rec := newRequest(http.MethodGet, "/flows/complete?flow_token=flow-1&redirect_flow_id=RE0001", "")
	if err := ctrl.CompleteFlow(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get(echo.HeaderLocation)
	if !strings.HasPrefix(location, "https://host.example.com/return?") || !strings.Contains(location, "payment_id=PM0001") {
		t.Fatalf("unexpected redirect: %s", location)
	}
}

func TestHandleWebhook(t *testing.T) {
	ctrl, _ := newTestController(t, map[string]string{
		"GET /payments/PM0001": `{"payments":{"id":"PM0001","amount":500,"currency":"EUR","metadata":{"client_id":"9"}}}`,
	})
	body := `{"events":[{"id":"EV1","resource_type":"payments","links":{"payment":"PM0001"},"details":{"cause":"payment_confirmed"}}]}`

	t.Run("bad signature", func(t *testing.T) {
		ctx, rec := newRequest(http.MethodPost, "/webhooks/gocardless", body)
		ctx.Request().Header.Set(gocardless.SignatureHeader, gocardless.Sign([]byte(body), "other"))
		if err := ctrl.HandleWebhook(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != statusInvalidToken {
			t.Fatalf("expected %d, got %d", statusInvalidToken, rec.Code)
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		ctx, rec := newRequest(http.MethodPost, "/webhooks/gocardless", body)
		if err := ctrl.HandleWebhook(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != statusInvalidToken {
			t.Fatalf("expected %d, got %d", statusInvalidToken, rec.Code)
		}
	})

	t.Run("envelope without signature header", func(t *testing.T) {
		envelope, _ := json.Marshal(map[string]string{
			"payload":   body,
			"signature": gocardless.Sign([]byte(body), controllerWebhookSecret),
		})
		ctx, rec := newRequest(http.MethodPost, "/webhooks/gocardless", string(envelope))
		if err := ctrl.HandleWebhook(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != statusInvalidToken {
			t.Fatalf("expected %d, got %d: %s", statusInvalidToken, rec.Code, rec.Body.String())
		}
	})

	t.Run("verified", func(t *testing.T) {
		ctx, rec := newRequest(http.MethodPost, "/webhooks/gocardless", body)
		ctx.Request().Header.Set(gocardless.SignatureHeader, gocardless.Sign([]byte(body), controllerWebhookSecret))
		if err := ctrl.HandleWebhook(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp types.TransactionEnvelopeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Transaction.Status != "approved" || resp.Transaction.TransactionId != "PM0001" || !resp.Transaction.Postable {
			t.Fatalf("unexpected transaction: %+v", resp.Transaction)
		}
	})
}

func TestValidateForwardedWebhook(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	payload := `{"events":[{"id":"EV2","resource_type":"mandates","links":{"mandate":"MD0001"},"details":{"cause":"mandate_created"}}]}`
	forwarded, _ := json.Marshal(map[string]string{
		"payload":   payload,
		"signature": gocardless.Sign([]byte(payload), controllerWebhookSecret),
	})

	ctx, rec := newRequest(http.MethodPost, "/webhooks/validate", string(forwarded))
	if err := ctrl.ValidateWebhook(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRefundVoidCaptureErrors(t *testing.T) {
	ctrl, _ := newTestController(t, nil)

	ctx, rec := newRequest(http.MethodPost, "/transactions/SB0001/refund", `{"amount":"5.00"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("SB0001")
	if err := ctrl.Refund(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("refund: expected 422, got %d", rec.Code)
	}

	ctx, rec = newRequest(http.MethodPost, "/transactions/PM0001/capture", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("PM0001")
	if err := ctrl.Capture(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("capture: expected 422, got %d", rec.Code)
	}

	ctx, rec = newRequest(http.MethodPost, "/transactions/PM0404/void", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("PM0404")
	if err := ctrl.Void(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("void: expected 502, got %d", rec.Code)
	}
}

func TestCancelMandate(t *testing.T) {
	ctrl, _ := newTestController(t, map[string]string{
		"POST /mandates/MD0001/actions/cancel": `{"mandates":{"id":"MD0001","status":"cancelled"}}`,
	})

	ctx, rec := newRequest(http.MethodPost, "/mandates/MD0001/cancel", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("MD0001")
	if err := ctrl.CancelMandate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cancelled"`) {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}

	ctx, rec = newRequest(http.MethodPost, "/mandates/PM0001/reinstate", "")
	ctx.SetParamNames("id")
	ctx.SetParamValues("PM0001")
	if err := ctrl.ReinstateMandate(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-mandate id, got %d", rec.Code)
	}
}
