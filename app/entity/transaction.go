package entity

// Status is the canonical transaction status posted to the host ledger.
type Status string

const (
	StatusApproved   Status = "approved"
	StatusDeclined   Status = "declined"
	StatusVoid       Status = "void"
	StatusPending    Status = "pending"
	StatusReconciled Status = "reconciled"
	StatusRefunded   Status = "refunded"
	StatusReturned   Status = "returned"

	// StatusError marks a provider state this service cannot map. It is not a
	// canonical status and must never be posted to the ledger.
	StatusError Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusApproved,
		StatusDeclined,
		StatusVoid,
		StatusPending,
		StatusReconciled,
		StatusRefunded,
		StatusReturned:
		return true
	default:
		return false
	}
}

type Transaction struct {
	ClientID            *string
	Amount              string
	Currency            string
	Status              Status
	ReferenceID         *string
	TransactionID       string
	ParentTransactionID *string
	Invoices            Invoices
	Message             string
}

// Postable reports whether the host platform may apply the record to its ledger.
func (t *Transaction) Postable() bool {
	return t != nil && t.Status.Valid()
}
