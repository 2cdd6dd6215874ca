package mapper

import (
	"strings"

	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
)

var causeStatuses = map[string]entity.Status{
	"payment_submitted":         entity.StatusApproved,
	"payment_confirmed":         entity.StatusApproved,
	"payment_paid_out":          entity.StatusApproved,
	"customer_approval_denied":  entity.StatusDeclined,
	"direct_debit_not_enabled":  entity.StatusDeclined,
	"invalid_bank_details":      entity.StatusDeclined,
	"payment_cancelled":         entity.StatusVoid,
	"subscription_cancelled":    entity.StatusVoid,
	"payment_created":           entity.StatusPending,
	"subscription_created":      entity.StatusPending,
	"customer_approval_granted": entity.StatusPending,
	"payment_retried":           entity.StatusPending,
	"chargeback_settled":        entity.StatusRefunded,
	"refund_requested":          entity.StatusRefunded,
}

// StatusForCause projects a provider cause onto a canonical status. Unknown
// causes map to entity.StatusError.
func StatusForCause(cause string) entity.Status {
	if status, ok := causeStatuses[strings.ToLower(strings.TrimSpace(cause))]; ok {
		return status
	}
	return entity.StatusError
}
