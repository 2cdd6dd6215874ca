package types

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type InvoiceAmount struct {
	Id     string `json:"id"`
	Amount string `json:"amount"`
}

type Transaction struct {
	ClientId            *string          `json:"client_id"`
	Amount              string           `json:"amount"`
	Currency            string           `json:"currency"`
	Status              string           `json:"status"`
	ReferenceId         *string          `json:"reference_id"`
	TransactionId       string           `json:"transaction_id"`
	ParentTransactionId *string          `json:"parent_transaction_id,omitempty"`
	Invoices            []*InvoiceAmount `json:"invoices"`
	Message             string           `json:"message,omitempty"`
	Postable            bool             `json:"postable"`
}

type TransactionEnvelopeResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type StartFlowResponse struct {
	RedirectUrl       string `json:"redirect_url"`
	RedirectFlowId    string `json:"redirect_flow_id"`
	FlowToken         string `json:"flow_token"`
	RecurringEligible bool   `json:"recurring_eligible"`
}

type Mandate struct {
	Id        string `json:"id"`
	Reference string `json:"reference,omitempty"`
	Status    string `json:"status,omitempty"`
	Scheme    string `json:"scheme,omitempty"`
}

type MandateEnvelopeResponse struct {
	Mandate *Mandate `json:"mandate"`
}
