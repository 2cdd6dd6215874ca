package mapper

import (
	"testing"

	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
)

func TestWebhookTransactionPrefersPaymentMetadata(t *testing.T) {
	fields := EventFields{entity.ResourcePayment: {ID: "PM1", Cause: "payment_paid_out"}}
	payment := &gocardless.Payment{
		ID:       "PM1",
		Amount:   1250,
		Currency: "GBP",
		Metadata: map[string]string{"client_id": "7", "invoices": "12=12.50"},
	}
	subscription := &gocardless.Subscription{Metadata: map[string]string{"client_id": "8", "invoices": "99=1.00"}}

	tx := WebhookTransaction(fields, payment, subscription)
	if tx.ClientID == nil || *tx.ClientID != "7" {
		t.Fatalf("unexpected client id: %v", tx.ClientID)
	}
	if tx.Amount != "12.50" || tx.Currency != "GBP" || tx.TransactionID != "PM1" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.Status != entity.StatusApproved {
		t.Fatalf("unexpected status: %s", tx.Status)
	}
	if len(tx.Invoices) != 1 || tx.Invoices[0].ID != "12" {
		t.Fatalf("unexpected invoices: %+v", tx.Invoices)
	}
}

func TestWebhookTransactionFallsBackToSubscription(t *testing.T) {
	fields := EventFields{entity.ResourcePayment: {ID: "PM2", Cause: "payment_confirmed"}}
	payment := &gocardless.Payment{ID: "PM2", Amount: 999, Currency: "EUR", Links: gocardless.PaymentLinks{Subscription: "SB1"}}
	subscription := &gocardless.Subscription{ID: "SB1", Metadata: map[string]string{"client_id": "8", "invoices": "1=4.99|2=5.00"}}

	tx := WebhookTransaction(fields, payment, subscription)
	if tx.ClientID == nil || *tx.ClientID != "8" {
		t.Fatalf("unexpected client id: %v", tx.ClientID)
	}
	if len(tx.Invoices) != 2 {
		t.Fatalf("unexpected invoices: %+v", tx.Invoices)
	}
	if tx.Amount != "9.99" {
		t.Fatalf("unexpected amount: %s", tx.Amount)
	}
}

func TestWebhookTransactionToleratesMissingMetadata(t *testing.T) {
	fields := EventFields{entity.ResourcePayment: {ID: "PM3", Cause: "payment_created"}}
	tx := WebhookTransaction(fields, &gocardless.Payment{ID: "PM3", Amount: 100}, nil)
	if tx.ClientID != nil {
		t.Fatalf("client id must not be fabricated, got %q", *tx.ClientID)
	}
	if tx.Invoices == nil || len(tx.Invoices) != 0 {
		t.Fatalf("expected empty invoices, got %#v", tx.Invoices)
	}
	if tx.Status != entity.StatusPending {
		t.Fatalf("unexpected status: %s", tx.Status)
	}
}

func TestWebhookTransactionWithoutPayment(t *testing.T) {
	tx := WebhookTransaction(EventFields{}, nil, nil)
	if tx.Status != entity.StatusError || tx.Postable() {
		t.Fatalf("expected unpostable error transaction, got %+v", tx)
	}
	if tx.Amount != "0.00" {
		t.Fatalf("unexpected amount: %s", tx.Amount)
	}
}

func TestSubscriptionTransactionHasNoTransactionID(t *testing.T) {
	tx := SubscriptionTransaction("7", &gocardless.Subscription{ID: "SB1", Amount: 2000, Currency: "GBP", Metadata: map[string]string{"invoices": "3=20.00"}})
	if tx.TransactionID != "" {
		t.Fatalf("expected empty transaction id, got %s", tx.TransactionID)
	}
	if tx.Amount != "20.00" || tx.Status != entity.StatusApproved {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestTransactionToResponse(t *testing.T) {
	clientID := "7"
	resp := TransactionToResponse(&entity.Transaction{
		ClientID:      &clientID,
		Amount:        "1.00",
		Status:        entity.StatusRefunded,
		TransactionID: "RF1",
		Invoices:      entity.Invoices{{ID: "1", Amount: "1.00"}},
	})
	if !resp.Postable || resp.Status != "refunded" || len(resp.Invoices) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if TransactionToResponse(nil) != nil {
		t.Fatal("expected nil response for nil transaction")
	}
}
