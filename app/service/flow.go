package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
	"github.com/vibast-solutions/ms-go-gocardless/app/mapper"
	"github.com/vibast-solutions/ms-go-gocardless/app/types"
)

const (
	flowPhaseStart    = "start"
	flowPhaseComplete = "complete"

	sessionTokenPrefix = "SESS_"
	flowCompletePath   = "/flows/complete"
)

type startFlowRequest interface {
	GetPayType() string
	GetClientId() string
	GetAmount() string
	GetCurrency() string
	GetDescription() string
	GetReturnUrl() string
	GetInvoices() []*types.InvoiceAmount
	GetRecur() *types.RecurRequest
	GetContact() *types.ContactRequest
}

type completeFlowRequest interface {
	GetFlowToken() string
	GetRedirectFlowId() string
}

type successRequest interface {
	GetClientId() string
	GetSubscriptionId() string
	GetPaymentId() string
}

type StartFlowResult struct {
	RedirectURL       string
	RedirectFlowID    string
	FlowToken         string
	RecurringEligible bool
}

type CompleteFlowResult struct {
	RedirectURL string
	PayType     entity.PayType
	Transaction *entity.Transaction
}

// StartFlow creates a redirect flow for the payer and remembers the session
// token it was created with so the flow can be completed after the redirect.
func (s *GatewayService) StartFlow(ctx context.Context, req startFlowRequest) (result *StartFlowResult, err error) {
	payType := entity.PayType(strings.ToLower(strings.TrimSpace(req.GetPayType())))
	defer func() { s.metrics.Flow(flowPhaseStart, string(payType), err) }()

	if payType != entity.PayTypeSubscribe && payType != entity.PayTypeOneTime {
		return nil, ErrInvalidPayType
	}

	clientID := strings.TrimSpace(req.GetClientId())
	returnURL := strings.TrimSpace(req.GetReturnUrl())
	if clientID == "" || returnURL == "" {
		return nil, ErrInvalidRequest
	}

	currency := strings.ToUpper(strings.TrimSpace(req.GetCurrency()))
	if !currencySupported(currency) {
		return nil, ErrCurrencyUnsupported
	}

	amount, err := entity.ParseAmount(req.GetAmount())
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	recurrence := recurrenceFromRequest(req.GetRecur())
	eligible := RecurringEligible(amount, recurrence)
	if payType == entity.PayTypeSubscribe && !eligible {
		return nil, ErrRecurrenceUnsupported
	}

	sessionToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	flowToken := uuid.NewString()

	description := strings.TrimSpace(req.GetDescription())
	if description == "" {
		description = strings.TrimSpace(s.cfg.CompanyName)
	}

	resp, err := s.client.RedirectFlows.Create(ctx, &gocardless.RedirectFlowCreateParams{
		Description:        description,
		SessionToken:       sessionToken,
		SuccessRedirectURL: s.successRedirectURL(flowToken),
		PrefilledCustomer:  prefilledCustomer(req.GetContact()),
	}, gocardless.WithIdempotencyKey(idempotencyKey(flowToken, "redirect_flow")))
	if err != nil {
		return nil, providerError("create redirect flow", err)
	}
	if resp.Resource == nil || strings.TrimSpace(resp.Resource.RedirectURL) == "" {
		return nil, providerError("create redirect flow", errors.New("response has no redirect_url"))
	}

	session := &entity.FlowSession{
		Token:          flowToken,
		SessionToken:   sessionToken,
		PayType:        payType,
		ClientID:       clientID,
		Amount:         entity.FormatAmount(amount),
		Currency:       currency,
		Invoices:       invoicesFromRequest(req.GetInvoices()).Serialize(),
		ReturnURL:      returnURL,
		RedirectFlowID: resp.Resource.ID,
		CreatedAt:      s.now().UTC(),
	}
	if payType == entity.PayTypeSubscribe {
		session.Recur = recurrence
	}
	if err := s.flowRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"redirect_flow_id": resp.Resource.ID,
		"pay_type":         payType,
		"client_id":        clientID,
	}).Info("redirect_flow_created")

	return &StartFlowResult{
		RedirectURL:       resp.Resource.RedirectURL,
		RedirectFlowID:    resp.Resource.ID,
		FlowToken:         flowToken,
		RecurringEligible: eligible,
	}, nil
}

// CompleteFlow completes the redirect flow the payer returned from and creates
// the subscription or one-off payment against the new mandate.
func (s *GatewayService) CompleteFlow(ctx context.Context, req completeFlowRequest) (result *CompleteFlowResult, err error) {
	flowToken := strings.TrimSpace(req.GetFlowToken())
	redirectFlowID := strings.TrimSpace(req.GetRedirectFlowId())
	if flowToken == "" || redirectFlowID == "" {
		return nil, ErrInvalidRequest
	}

	session, err := s.flowRepo.Find(ctx, flowToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrFlowNotFound
	}
	defer func() { s.metrics.Flow(flowPhaseComplete, string(session.PayType), err) }()

	if session.RedirectFlowID != "" && session.RedirectFlowID != redirectFlowID {
		return nil, fmt.Errorf("%w: redirect flow does not belong to this session", ErrInvalidRequest)
	}

	flowResp, err := s.client.RedirectFlows.Complete(ctx, redirectFlowID, session.SessionToken)
	if err != nil {
		return nil, providerError("complete redirect flow", err)
	}
	if flowResp.Resource == nil || strings.TrimSpace(flowResp.Resource.Links.Mandate) == "" {
		return nil, providerError("complete redirect flow", errors.New("completed flow has no mandate"))
	}
	mandateID := flowResp.Resource.Links.Mandate

	metadata := map[string]string{
		mapper.MetadataClientID: session.ClientID,
		mapper.MetadataInvoices: session.Invoices,
	}

	result = &CompleteFlowResult{PayType: session.PayType}
	query := url.Values{}
	query.Set("client_id", session.ClientID)

	switch session.PayType {
	case entity.PayTypeSubscribe:
		params, err := subscriptionParams(session, mandateID, metadata, s.now())
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Subscriptions.Create(ctx, params, gocardless.WithIdempotencyKey(idempotencyKey(flowToken, "subscription")))
		if err != nil {
			return nil, providerError("create subscription", err)
		}
		result.Transaction = mapper.SubscriptionTransaction(session.ClientID, resp.Resource)
		if resp.Resource != nil {
			query.Set("subscription_id", resp.Resource.ID)
		}
	case entity.PayTypeOneTime:
		amount, err := entity.ParseAmount(session.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		resp, err := s.client.Payments.Create(ctx, &gocardless.PaymentCreateParams{
			Amount:   entity.ToMinorUnits(amount),
			Currency: session.Currency,
			Metadata: metadata,
			Links:    gocardless.MandateLinkParams{Mandate: mandateID},
		}, gocardless.WithIdempotencyKey(idempotencyKey(flowToken, "payment")))
		if err != nil {
			return nil, providerError("create payment", err)
		}
		result.Transaction = mapper.PaymentTransaction(session.ClientID, resp.Resource)
		if resp.Resource != nil {
			query.Set("payment_id", resp.Resource.ID)
		}
	default:
		return nil, ErrInvalidPayType
	}

	result.RedirectURL, err = appendQuery(session.ReturnURL, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := s.flowRepo.Delete(ctx, flowToken); err != nil {
		s.logger.WithError(err).WithField("redirect_flow_id", redirectFlowID).Warn("flow_session_delete_failed")
	}

	s.logger.WithFields(logrus.Fields{
		"redirect_flow_id": redirectFlowID,
		"mandate_id":       mandateID,
		"pay_type":         session.PayType,
		"transaction_id":   result.Transaction.TransactionID,
	}).Info("redirect_flow_completed")

	return result, nil
}

// Success builds the transaction for the return-URL callback. The payer only
// reaches it after the mandate was authorized, so the status is approved.
func (s *GatewayService) Success(ctx context.Context, req successRequest) (*entity.Transaction, error) {
	clientID := strings.TrimSpace(req.GetClientId())

	if subscriptionID := strings.TrimSpace(req.GetSubscriptionId()); subscriptionID != "" {
		resp, err := s.client.Subscriptions.Get(ctx, subscriptionID)
		if err != nil {
			return nil, providerError("get subscription", err)
		}
		return mapper.SubscriptionTransaction(clientID, resp.Resource), nil
	}

	paymentID := strings.TrimSpace(req.GetPaymentId())
	if paymentID == "" {
		return nil, ErrInvalidRequest
	}
	resp, err := s.client.Payments.Get(ctx, paymentID)
	if err != nil {
		return nil, providerError("get payment", err)
	}
	return mapper.PaymentTransaction(clientID, resp.Resource), nil
}

// RecurringEligible reports whether an attempt may be set up as a
// subscription: the recurring amount must equal the charge and the period must
// be weekly, monthly or yearly.
func RecurringEligible(amount decimal.Decimal, recur *entity.Recurrence) bool {
	if recur == nil || strings.TrimSpace(recur.Amount) == "" {
		return false
	}
	recurAmount, err := entity.ParseAmount(recur.Amount)
	if err != nil || !recurAmount.IsPositive() {
		return false
	}
	if !recurAmount.Equal(amount.Round(2)) {
		return false
	}
	_, ok := IntervalUnit(recur.Period)
	return ok
}

// IntervalUnit maps a recurrence period to the provider's interval unit.
func IntervalUnit(period string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "week":
		return "weekly", true
	case "month":
		return "monthly", true
	case "year":
		return "yearly", true
	default:
		return "", false
	}
}

func subscriptionParams(session *entity.FlowSession, mandateID string, metadata map[string]string, now time.Time) (*gocardless.SubscriptionCreateParams, error) {
	if session.Recur == nil {
		return nil, ErrRecurrenceUnsupported
	}
	unit, ok := IntervalUnit(session.Recur.Period)
	if !ok {
		return nil, ErrRecurrenceUnsupported
	}
	amount, err := entity.ParseAmount(session.Recur.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	params := &gocardless.SubscriptionCreateParams{
		Amount:       entity.ToMinorUnits(amount),
		Currency:     session.Currency,
		IntervalUnit: unit,
		Metadata:     metadata,
		Links:        gocardless.MandateLinkParams{Mandate: mandateID},
	}
	if session.Recur.Term > 0 {
		params.Interval = session.Recur.Term
	}
	if unit != "weekly" {
		day := dayOfMonth(now)
		params.DayOfMonth = &day
	}
	if unit == "yearly" {
		params.Month = strings.ToLower(now.Month().String())
	}

	return params, nil
}

// dayOfMonth returns today's day for a subscription. The provider accepts 1-28
// or -1 for the last day of the month.
func dayOfMonth(now time.Time) int {
	day := now.Day()
	if day > 28 {
		return -1
	}
	return day
}

func (s *GatewayService) successRedirectURL(flowToken string) string {
	query := url.Values{}
	query.Set("flow_token", flowToken)
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + flowCompletePath + "?" + query.Encode()
}

func appendQuery(rawURL string, values url.Values) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	for key, vals := range values {
		if key == "client_id" && query.Get(key) != "" {
			continue
		}
		for _, v := range vals {
			query.Set(key, v)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func newSessionToken() (string, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return "", err
	}
	digest := sha256.Sum256(seed)
	return sessionTokenPrefix + base64.RawURLEncoding.EncodeToString(digest[:]), nil
}

func idempotencyKey(flowToken, step string) string {
	return flowToken + ":" + step
}

func recurrenceFromRequest(recur *types.RecurRequest) *entity.Recurrence {
	if recur == nil {
		return nil
	}
	return &entity.Recurrence{
		Amount: strings.TrimSpace(recur.GetAmount()),
		Term:   int(recur.GetTerm()),
		Period: strings.ToLower(strings.TrimSpace(recur.GetPeriod())),
	}
}

func invoicesFromRequest(items []*types.InvoiceAmount) entity.Invoices {
	invoices := make(entity.Invoices, 0, len(items))
	for _, item := range items {
		if item == nil || strings.TrimSpace(item.Id) == "" {
			continue
		}
		amount, err := entity.ParseAmount(item.Amount)
		if err != nil {
			continue
		}
		invoices = append(invoices, entity.Invoice{ID: strings.TrimSpace(item.Id), Amount: entity.FormatAmount(amount)})
	}
	return invoices
}

func prefilledCustomer(contact *types.ContactRequest) *gocardless.PrefilledCustomer {
	if contact == nil {
		return nil
	}
	customer := &gocardless.PrefilledCustomer{
		GivenName:    strings.TrimSpace(contact.GivenName),
		FamilyName:   strings.TrimSpace(contact.FamilyName),
		Email:        strings.TrimSpace(contact.Email),
		CompanyName:  strings.TrimSpace(contact.CompanyName),
		AddressLine1: strings.TrimSpace(contact.AddressLine1),
		AddressLine2: strings.TrimSpace(contact.AddressLine2),
		City:         strings.TrimSpace(contact.City),
		Region:       strings.TrimSpace(contact.Region),
		PostalCode:   strings.TrimSpace(contact.PostalCode),
		CountryCode:  strings.ToUpper(strings.TrimSpace(contact.CountryCode)),
	}
	if *customer == (gocardless.PrefilledCustomer{}) {
		return nil
	}
	return customer
}
