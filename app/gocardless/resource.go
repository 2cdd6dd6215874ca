package gocardless

import "time"

// ID prefixes issued by the provider.
const (
	PaymentIDPrefix      = "PM"
	MandateIDPrefix      = "MD"
	SubscriptionIDPrefix = "SB"
	RefundIDPrefix       = "RF"
	RedirectFlowIDPrefix = "RE"
)

type RedirectFlowLinks struct {
	Creditor            string `json:"creditor,omitempty"`
	Customer            string `json:"customer,omitempty"`
	CustomerBankAccount string `json:"customer_bank_account,omitempty"`
	Mandate             string `json:"mandate,omitempty"`
}

type RedirectFlow struct {
	ID                 string            `json:"id"`
	Description        string            `json:"description,omitempty"`
	SessionToken       string            `json:"session_token,omitempty"`
	SuccessRedirectURL string            `json:"success_redirect_url,omitempty"`
	RedirectURL        string            `json:"redirect_url,omitempty"`
	Scheme             string            `json:"scheme,omitempty"`
	CreatedAt          *time.Time        `json:"created_at,omitempty"`
	Links              RedirectFlowLinks `json:"links"`
}

type MandateLinks struct {
	Creditor            string `json:"creditor,omitempty"`
	Customer            string `json:"customer,omitempty"`
	CustomerBankAccount string `json:"customer_bank_account,omitempty"`
}

type Mandate struct {
	ID                     string            `json:"id"`
	Reference              string            `json:"reference,omitempty"`
	Status                 string            `json:"status,omitempty"`
	Scheme                 string            `json:"scheme,omitempty"`
	NextPossibleChargeDate string            `json:"next_possible_charge_date,omitempty"`
	Metadata               map[string]string `json:"metadata,omitempty"`
	CreatedAt              *time.Time        `json:"created_at,omitempty"`
	Links                  MandateLinks      `json:"links"`
}

type PaymentLinks struct {
	Creditor     string `json:"creditor,omitempty"`
	Mandate      string `json:"mandate,omitempty"`
	Payout       string `json:"payout,omitempty"`
	Subscription string `json:"subscription,omitempty"`
}

type Payment struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded,omitempty"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status,omitempty"`
	ChargeDate     string            `json:"charge_date,omitempty"`
	Reference      string            `json:"reference,omitempty"`
	Description    string            `json:"description,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      *time.Time        `json:"created_at,omitempty"`
	Links          PaymentLinks      `json:"links"`
}

type SubscriptionLinks struct {
	Mandate string `json:"mandate,omitempty"`
}

type Subscription struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status,omitempty"`
	Name         string            `json:"name,omitempty"`
	IntervalUnit string            `json:"interval_unit,omitempty"`
	Interval     int               `json:"interval,omitempty"`
	DayOfMonth   *int              `json:"day_of_month,omitempty"`
	Month        string            `json:"month,omitempty"`
	StartDate    string            `json:"start_date,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    *time.Time        `json:"created_at,omitempty"`
	Links        SubscriptionLinks `json:"links"`
}

type RefundLinks struct {
	Payment string `json:"payment,omitempty"`
	Mandate string `json:"mandate,omitempty"`
}

type Refund struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency,omitempty"`
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
	Links     RefundLinks       `json:"links"`
}

type EventDetails struct {
	Origin      string `json:"origin,omitempty"`
	Cause       string `json:"cause,omitempty"`
	Description string `json:"description,omitempty"`
	Scheme      string `json:"scheme,omitempty"`
	ReasonCode  string `json:"reason_code,omitempty"`
}

// Event links are keyed by singular resource name, e.g. "payment" or "mandate".
type Event struct {
	ID           string            `json:"id"`
	CreatedAt    *time.Time        `json:"created_at,omitempty"`
	ResourceType string            `json:"resource_type"`
	Action       string            `json:"action"`
	Details      EventDetails      `json:"details"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Links        map[string]string `json:"links,omitempty"`
}

type PrefilledCustomer struct {
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	Email        string `json:"email,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

type RedirectFlowCreateParams struct {
	Description        string             `json:"description,omitempty"`
	SessionToken       string             `json:"session_token"`
	SuccessRedirectURL string             `json:"success_redirect_url"`
	PrefilledCustomer  *PrefilledCustomer `json:"prefilled_customer,omitempty"`
}

type RedirectFlowCompleteParams struct {
	SessionToken string `json:"session_token"`
}

type MandateLinkParams struct {
	Mandate string `json:"mandate"`
}

type PaymentCreateParams struct {
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Links     MandateLinkParams `json:"links"`
}

type SubscriptionCreateParams struct {
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	IntervalUnit string            `json:"interval_unit"`
	Interval     int               `json:"interval,omitempty"`
	DayOfMonth   *int              `json:"day_of_month,omitempty"`
	Month        string            `json:"month,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Links        MandateLinkParams `json:"links"`
}

type RefundPaymentLinkParams struct {
	Payment string `json:"payment"`
}

type RefundCreateParams struct {
	Amount                  int64                   `json:"amount"`
	TotalAmountConfirmation int64                   `json:"total_amount_confirmation"`
	Reference               string                  `json:"reference,omitempty"`
	Metadata                map[string]string       `json:"metadata,omitempty"`
	Links                   RefundPaymentLinkParams `json:"links"`
}

type ActionParams struct {
	Metadata map[string]string `json:"metadata,omitempty"`
}
