package types

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ContactRequest struct {
	GivenName    string `json:"given_name"`
	FamilyName   string `json:"family_name"`
	Email        string `json:"email"`
	CompanyName  string `json:"company_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
}

type RecurRequest struct {
	Amount string `json:"amount"`
	Term   int32  `json:"term"`
	Period string `json:"period"`
}

func (r *RecurRequest) GetAmount() string {
	if r == nil {
		return ""
	}
	return r.Amount
}

func (r *RecurRequest) GetTerm() int32 {
	if r == nil {
		return 0
	}
	return r.Term
}

func (r *RecurRequest) GetPeriod() string {
	if r == nil {
		return ""
	}
	return r.Period
}

type StartFlowRequest struct {
	PayType     string           `json:"pay_type"`
	ClientId    string           `json:"client_id"`
	Amount      string           `json:"amount"`
	Currency    string           `json:"currency"`
	Description string           `json:"description"`
	ReturnUrl   string           `json:"return_url"`
	Invoices    []*InvoiceAmount `json:"invoices"`
	Recur       *RecurRequest    `json:"recur"`
	Contact     *ContactRequest  `json:"contact"`
}

func (r *StartFlowRequest) GetPayType() string { return r.PayType }
func (r *StartFlowRequest) GetClientId() string { return r.ClientId }
func (r *StartFlowRequest) GetAmount() string { return r.Amount }
func (r *StartFlowRequest) GetCurrency() string { return r.Currency }
func (r *StartFlowRequest) GetDescription() string { return r.Description }
func (r *StartFlowRequest) GetReturnUrl() string { return r.ReturnUrl }
func (r *StartFlowRequest) GetInvoices() []*InvoiceAmount { return r.Invoices }
func (r *StartFlowRequest) GetRecur() *RecurRequest { return r.Recur }

func (r *StartFlowRequest) GetContact() *ContactRequest {
	if r.Contact == nil {
		return &ContactRequest{}
	}
	return r.Contact
}

func NewStartFlowRequestFromContext(ctx echo.Context) (*StartFlowRequest, error) {
	var body StartFlowRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.PayType = strings.ToLower(strings.TrimSpace(body.PayType))
	body.ClientId = strings.TrimSpace(body.ClientId)
	body.Amount = strings.TrimSpace(body.Amount)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Description = strings.TrimSpace(body.Description)
	body.ReturnUrl = strings.TrimSpace(body.ReturnUrl)
	if body.Recur != nil {
		body.Recur.Amount = strings.TrimSpace(body.Recur.Amount)
		body.Recur.Period = strings.ToLower(strings.TrimSpace(body.Recur.Period))
	}
	for _, invoice := range body.Invoices {
		if invoice == nil {
			continue
		}
		invoice.Id = strings.TrimSpace(invoice.Id)
		invoice.Amount = strings.TrimSpace(invoice.Amount)
	}

	return &body, nil
}

func (r *StartFlowRequest) Validate() error {
	if r.GetPayType() != "subscribe" && r.GetPayType() != "onetime" {
		return errors.New("pay_type must be subscribe or onetime")
	}
	if strings.TrimSpace(r.GetClientId()) == "" {
		return errors.New("client_id is required")
	}
	if err := validatePositiveAmount("amount", r.GetAmount()); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.GetCurrency())) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if err := validateAbsoluteURL("return_url", r.GetReturnUrl()); err != nil {
		return err
	}
	for _, invoice := range r.GetInvoices() {
		if invoice == nil || invoice.Id == "" {
			return errors.New("invoice id is required")
		}
		if strings.ContainsAny(invoice.Id, "|=") || strings.ContainsAny(invoice.Amount, "|=") {
			return errors.New("invoice id and amount must not contain '|' or '='")
		}
		if err := validatePositiveAmount("invoice amount", invoice.Amount); err != nil {
			return err
		}
	}
	if r.Recur != nil && r.Recur.Term < 0 {
		return errors.New("recur term must be >= 0")
	}
	return nil
}

type CompleteFlowRequest struct {
	FlowToken      string `json:"flow_token"`
	RedirectFlowId string `json:"redirect_flow_id"`
}

func (r *CompleteFlowRequest) GetFlowToken() string { return r.FlowToken }
func (r *CompleteFlowRequest) GetRedirectFlowId() string { return r.RedirectFlowId }

func NewCompleteFlowRequestFromContext(ctx echo.Context) (*CompleteFlowRequest, error) {
	return &CompleteFlowRequest{
		FlowToken:      strings.TrimSpace(ctx.QueryParam("flow_token")),
		RedirectFlowId: strings.TrimSpace(ctx.QueryParam("redirect_flow_id")),
	}, nil
}

func (r *CompleteFlowRequest) Validate() error {
	if r.GetFlowToken() == "" {
		return errors.New("flow_token is required")
	}
	if r.GetRedirectFlowId() == "" {
		return errors.New("redirect_flow_id is required")
	}
	return nil
}

type SuccessRequest struct {
	ClientId       string `json:"client_id"`
	SubscriptionId string `json:"subscription_id"`
	PaymentId      string `json:"payment_id"`
}

func (r *SuccessRequest) GetClientId() string { return r.ClientId }
func (r *SuccessRequest) GetSubscriptionId() string { return r.SubscriptionId }
func (r *SuccessRequest) GetPaymentId() string { return r.PaymentId }

func NewSuccessRequestFromContext(ctx echo.Context) (*SuccessRequest, error) {
	return &SuccessRequest{
		ClientId:       strings.TrimSpace(ctx.QueryParam("client_id")),
		SubscriptionId: strings.TrimSpace(ctx.QueryParam("subscription_id")),
		PaymentId:      strings.TrimSpace(ctx.QueryParam("payment_id")),
	}, nil
}

func (r *SuccessRequest) Validate() error {
	if r.GetSubscriptionId() == "" && r.GetPaymentId() == "" {
		return errors.New("subscription_id or payment_id is required")
	}
	return nil
}

const (
	headerWebhookSignature = "Webhook-Signature"
	headerIdempotencyKey   = "Idempotency-Key"
)

type HandleWebhookRequest struct {
	RequestId string `json:"request_id"`
	Source    string `json:"source"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

func (r *HandleWebhookRequest) GetRequestId() string { return r.RequestId }
func (r *HandleWebhookRequest) GetSource() string { return r.Source }
func (r *HandleWebhookRequest) GetSignature() string { return r.Signature }
func (r *HandleWebhookRequest) GetPayload() string { return r.Payload }

// NewHandleWebhookRequestFromContext reads a delivery straight from the
// provider: the signature header and the raw body bytes, untouched until the
// signature has been verified.
func NewHandleWebhookRequestFromContext(ctx echo.Context, source string) (*HandleWebhookRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	return &HandleWebhookRequest{
		RequestId: webhookRequestID(ctx),
		Source:    source,
		Signature: strings.TrimSpace(ctx.Request().Header.Get(headerWebhookSignature)),
		Payload:   string(rawBody),
	}, nil
}

// NewForwardedWebhookRequestFromContext reads a batch the host forwards as
// {"payload": "...", "signature": "..."}. The signature header, when present,
// is used if the envelope carries none.
func NewForwardedWebhookRequestFromContext(ctx echo.Context, source string) (*HandleWebhookRequest, error) {
	var body struct {
		Payload   string `json:"payload"`
		Signature string `json:"signature"`
	}
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	signature := strings.TrimSpace(body.Signature)
	if signature == "" {
		signature = strings.TrimSpace(ctx.Request().Header.Get(headerWebhookSignature))
	}

	return &HandleWebhookRequest{
		RequestId: webhookRequestID(ctx),
		Source:    source,
		Signature: signature,
		Payload:   body.Payload,
	}, nil
}

func webhookRequestID(ctx echo.Context) string {
	requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	if requestID == "" {
		requestID = strings.TrimSpace(ctx.Response().Header().Get(echo.HeaderXRequestID))
	}
	return requestID
}

func (r *HandleWebhookRequest) Validate() error {
	if strings.TrimSpace(r.GetSignature()) == "" {
		return errors.New("webhook signature is required")
	}
	if strings.TrimSpace(r.GetPayload()) == "" {
		return errors.New("payload is required")
	}
	return nil
}

type RefundRequest struct {
	TransactionId string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Reference     string `json:"reference"`
	Notes         string `json:"notes"`
	// IdempotencyKey pins the provider request so a retried refund is created
	// once. Falls back to the Idempotency-Key header.
	IdempotencyKey string `json:"idempotency_key"`
}

func (r *RefundRequest) GetTransactionId() string { return r.TransactionId }
func (r *RefundRequest) GetAmount() string { return r.Amount }
func (r *RefundRequest) GetReference() string { return r.Reference }
func (r *RefundRequest) GetIdempotencyKey() string { return r.IdempotencyKey }

func NewRefundRequestFromContext(ctx echo.Context) (*RefundRequest, error) {
	var body RefundRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.TransactionId = strings.TrimSpace(ctx.Param("id"))
	body.Amount = strings.TrimSpace(body.Amount)
	body.Reference = strings.TrimSpace(body.Reference)
	body.Notes = strings.TrimSpace(body.Notes)
	body.IdempotencyKey = strings.TrimSpace(body.IdempotencyKey)
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = strings.TrimSpace(ctx.Request().Header.Get(headerIdempotencyKey))
	}
	return &body, nil
}

func (r *RefundRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	return validatePositiveAmount("amount", r.GetAmount())
}

type VoidRequest struct {
	TransactionId string `json:"transaction_id"`
	Reference     string `json:"reference"`
	Notes         string `json:"notes"`
}

func (r *VoidRequest) GetTransactionId() string { return r.TransactionId }

func NewVoidRequestFromContext(ctx echo.Context) (*VoidRequest, error) {
	var body VoidRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.TransactionId = strings.TrimSpace(ctx.Param("id"))
	body.Reference = strings.TrimSpace(body.Reference)
	body.Notes = strings.TrimSpace(body.Notes)
	return &body, nil
}

func (r *VoidRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	return nil
}

type MandateActionRequest struct {
	MandateId string            `json:"mandate_id"`
	Metadata  map[string]string `json:"metadata"`
}

func (r *MandateActionRequest) GetMandateId() string { return r.MandateId }
func (r *MandateActionRequest) GetMetadata() map[string]string { return r.Metadata }

func NewMandateActionRequestFromContext(ctx echo.Context) (*MandateActionRequest, error) {
	var body MandateActionRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.MandateId = strings.TrimSpace(ctx.Param("id"))
	return &body, nil
}

func (r *MandateActionRequest) Validate() error {
	if !strings.HasPrefix(r.GetMandateId(), "MD") {
		return errors.New("mandate id must start with MD")
	}
	return nil
}

func validatePositiveAmount(field, raw string) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return errors.New(field + " must be a decimal amount")
	}
	if !amount.IsPositive() {
		return errors.New(field + " must be > 0")
	}
	return nil
}

func validateAbsoluteURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New(field + " is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errors.New(field + " must be an absolute http(s) url")
	}
	return nil
}
