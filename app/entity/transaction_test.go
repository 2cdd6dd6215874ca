package entity

import "testing"

func TestStatusValid(t *testing.T) {
	for _, status := range []Status{StatusApproved, StatusDeclined, StatusVoid, StatusPending, StatusReconciled, StatusRefunded, StatusReturned} {
		if !status.Valid() {
			t.Fatalf("expected %s to be canonical", status)
		}
	}
	if StatusError.Valid() {
		t.Fatal("error must not be a canonical status")
	}
	if Status("").Valid() {
		t.Fatal("empty status must not be canonical")
	}
}

func TestTransactionPostable(t *testing.T) {
	if (&Transaction{Status: StatusError}).Postable() {
		t.Fatal("error transaction must not be postable")
	}
	if !(&Transaction{Status: StatusApproved}).Postable() {
		t.Fatal("approved transaction must be postable")
	}
	var tx *Transaction
	if tx.Postable() {
		t.Fatal("nil transaction must not be postable")
	}
}

func TestParseResourceKind(t *testing.T) {
	cases := map[string]ResourceKind{
		"payments":      ResourcePayment,
		"subscriptions": ResourceSubscription,
		"mandates":      ResourceMandate,
		"refunds":       ResourceRefund,
		"payouts":       ResourceUnknown,
	}
	for raw, want := range cases {
		if got := ParseResourceKind(raw); got != want {
			t.Fatalf("%s: expected %v, got %v", raw, want, got)
		}
	}
	if ResourcePayment.LinkKey() != "payment" || ResourceUnknown.LinkKey() != "" {
		t.Fatal("unexpected link keys")
	}
}
