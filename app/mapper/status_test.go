package mapper

import (
	"testing"

	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
)

func TestStatusForCause(t *testing.T) {
	cases := map[string]entity.Status{
		"payment_submitted":         entity.StatusApproved,
		"payment_confirmed":         entity.StatusApproved,
		"payment_paid_out":          entity.StatusApproved,
		"PAYMENT_PAID_OUT":          entity.StatusApproved,
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
		"foo_bar":                   entity.StatusError,
		"":                          entity.StatusError,
	}
	for cause, want := range cases {
		if got := StatusForCause(cause); got != want {
			t.Fatalf("%q: expected %s, got %s", cause, want, got)
		}
	}

	if StatusForCause("foo_bar").Valid() {
		t.Fatal("unmapped cause must not produce a canonical status")
	}
}
