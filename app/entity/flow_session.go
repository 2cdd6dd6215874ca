package entity

import "time"

type PayType string

const (
	PayTypeSubscribe PayType = "subscribe"
	PayTypeOneTime   PayType = "onetime"
)

type Recurrence struct {
	Amount string `json:"amount"`
	Term   int    `json:"term"`
	Period string `json:"period"`
}

// FlowSession correlates a redirect flow initiation with its completion
// across the browser redirect.
type FlowSession struct {
	Token          string      `json:"token"`
	SessionToken   string      `json:"session_token"`
	PayType        PayType     `json:"pay_type"`
	ClientID       string      `json:"client_id"`
	Amount         string      `json:"amount"`
	Currency       string      `json:"currency"`
	Invoices       string      `json:"invoices"`
	Recur          *Recurrence `json:"recur,omitempty"`
	ReturnURL      string      `json:"return_url"`
	RedirectFlowID string      `json:"redirect_flow_id"`
	CreatedAt      time.Time   `json:"created_at"`
}
