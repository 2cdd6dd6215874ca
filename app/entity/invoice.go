package entity

import "strings"

type Invoice struct {
	ID     string
	Amount string
}

type Invoices []Invoice

// Serialize encodes the allocation as "id=amount|id=amount", the format stored
// in provider metadata.
func (invoices Invoices) Serialize() string {
	var b strings.Builder
	for i, invoice := range invoices {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(invoice.ID)
		b.WriteByte('=')
		b.WriteString(invoice.Amount)
	}
	return b.String()
}

// ParseInvoices decodes a serialized allocation. Pairs without an "=" are
// dropped.
func ParseInvoices(raw string) Invoices {
	invoices := Invoices{}
	if raw == "" {
		return invoices
	}
	for _, pair := range strings.Split(raw, "|") {
		id, amount, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		invoices = append(invoices, Invoice{ID: id, Amount: amount})
	}
	return invoices
}
