package gocardless

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_0123456789012345678901234567890123456789"

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"events":[{"id":"EV1","resource_type":"payments","action":"confirmed","links":{"payment":"PM1"},"details":{"cause":"payment_confirmed"}}]}`)
	signature := Sign(body, testWebhookSecret)

	assert.True(t, VerifySignature(body, signature, testWebhookSecret))
	assert.False(t, VerifySignature(body, signature, "wrong-secret"))
	assert.False(t, VerifySignature(body, "", testWebhookSecret))
	assert.False(t, VerifySignature(body, "not-hex", testWebhookSecret))

	for i := range body {
		altered := append([]byte(nil), body...)
		altered[i] ^= 0x01
		if VerifySignature(altered, signature, testWebhookSecret) {
			t.Fatalf("expected altered byte %d to be rejected", i)
		}
	}
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{"events":[{"id":"EV1","resource_type":"payments","action":"paid_out","links":{"payment":"PM1"},"details":{"cause":"payment_paid_out","origin":"gocardless"}},{"id":"EV2","resource_type":"mandates","action":"active","links":{"mandate":"MD1"},"details":{}}]}`)

	events, err := ParseWebhook(body, Sign(body, testWebhookSecret), testWebhookSecret)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "payments", events[0].ResourceType)
	assert.Equal(t, "PM1", events[0].Links["payment"])
	assert.Equal(t, "payment_paid_out", events[0].Details.Cause)
	assert.Equal(t, "MD1", events[1].Links["mandate"])
}

func TestParseWebhookRejectsBeforeDecoding(t *testing.T) {
	body := []byte(`not json at all`)
	_, err := ParseWebhook(body, Sign(body, "other-secret"), testWebhookSecret)
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	_, err = ParseWebhook(body, Sign(body, testWebhookSecret), testWebhookSecret)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidSignature))
}

func TestParseWebhookRequiresSecret(t *testing.T) {
	body := []byte(`{"events":[]}`)
	_, err := ParseWebhook(body, Sign(body, ""), "")
	require.Error(t, err)
}
