package mapper

import (
	"strings"

	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
	"github.com/vibast-solutions/ms-go-gocardless/app/types"
)

const (
	MetadataClientID = "client_id"
	MetadataInvoices = "invoices"
)

// WebhookTransaction builds the canonical record for a webhook batch. Client
// and invoice metadata is read from the payment first, then its subscription.
func WebhookTransaction(fields EventFields, payment *gocardless.Payment, subscription *gocardless.Subscription) *entity.Transaction {
	tx := &entity.Transaction{
		Amount:   entity.FormatMinorUnits(0),
		Status:   fields.PaymentStatus(),
		Invoices: entity.Invoices{},
	}

	var paymentMeta, subscriptionMeta map[string]string
	if payment != nil {
		tx.Amount = entity.FormatMinorUnits(payment.Amount)
		tx.Currency = payment.Currency
		tx.TransactionID = payment.ID
		paymentMeta = payment.Metadata
	}
	if subscription != nil {
		subscriptionMeta = subscription.Metadata
	}

	tx.ClientID = optionalString(firstMetadata(MetadataClientID, paymentMeta, subscriptionMeta))
	tx.Invoices = entity.ParseInvoices(firstMetadata(MetadataInvoices, paymentMeta, subscriptionMeta))

	return tx
}

func PaymentTransaction(clientID string, payment *gocardless.Payment) *entity.Transaction {
	tx := &entity.Transaction{
		ClientID: optionalString(clientID),
		Amount:   entity.FormatMinorUnits(0),
		Status:   entity.StatusApproved,
		Invoices: entity.Invoices{},
	}
	if payment == nil {
		return tx
	}
	tx.Amount = entity.FormatMinorUnits(payment.Amount)
	tx.Currency = payment.Currency
	tx.TransactionID = payment.ID
	tx.Invoices = entity.ParseInvoices(payment.Metadata[MetadataInvoices])
	return tx
}

// SubscriptionTransaction carries no transaction id: the payments the
// subscription produces are reported individually through webhooks.
func SubscriptionTransaction(clientID string, subscription *gocardless.Subscription) *entity.Transaction {
	tx := &entity.Transaction{
		ClientID: optionalString(clientID),
		Amount:   entity.FormatMinorUnits(0),
		Status:   entity.StatusApproved,
		Invoices: entity.Invoices{},
	}
	if subscription == nil {
		return tx
	}
	tx.Amount = entity.FormatMinorUnits(subscription.Amount)
	tx.Currency = subscription.Currency
	tx.Invoices = entity.ParseInvoices(subscription.Metadata[MetadataInvoices])
	return tx
}

func TransactionToResponse(tx *entity.Transaction) *types.Transaction {
	if tx == nil {
		return nil
	}

	invoices := make([]*types.InvoiceAmount, 0, len(tx.Invoices))
	for _, invoice := range tx.Invoices {
		invoices = append(invoices, &types.InvoiceAmount{Id: invoice.ID, Amount: invoice.Amount})
	}

	return &types.Transaction{
		ClientId:            tx.ClientID,
		Amount:              tx.Amount,
		Currency:            tx.Currency,
		Status:              string(tx.Status),
		ReferenceId:         tx.ReferenceID,
		TransactionId:       tx.TransactionID,
		ParentTransactionId: tx.ParentTransactionID,
		Invoices:            invoices,
		Message:             tx.Message,
		Postable:            tx.Postable(),
	}
}

func MandateToResponse(mandate *gocardless.Mandate) *types.Mandate {
	if mandate == nil {
		return nil
	}
	return &types.Mandate{
		Id:        mandate.ID,
		Reference: mandate.Reference,
		Status:    mandate.Status,
		Scheme:    mandate.Scheme,
	}
}

func firstMetadata(key string, sources ...map[string]string) string {
	for _, source := range sources {
		if value := strings.TrimSpace(source[key]); value != "" {
			return value
		}
	}
	return ""
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
