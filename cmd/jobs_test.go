package cmd

import (
	"testing"

	"github.com/vibast-solutions/ms-go-gocardless/app/entity"
)

func TestParseReceiptStatus(t *testing.T) {
	cases := map[string]int32{
		"":          0,
		"all":       0,
		"Processed": entity.WebhookReceiptProcessed,
		"rejected":  entity.WebhookReceiptRejected,
	}
	for raw, want := range cases {
		got, err := parseReceiptStatus(raw)
		if err != nil || got != want {
			t.Fatalf("%q: expected %d, got %d (%v)", raw, want, got, err)
		}
	}
	if _, err := parseReceiptStatus("pending"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}
