package gocardless

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const SignatureHeader = "Webhook-Signature"

// Sign returns the hex encoded HMAC-SHA256 of body keyed with secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(body []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}

	candidate, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(candidate, mac.Sum(nil))
}

// ParseWebhook verifies the signature over the raw body before decoding the
// event batch.
func ParseWebhook(body []byte, signature, secret string) ([]*Event, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("gocardless webhook secret is not configured")
	}
	if !VerifySignature(body, signature, secret) {
		return nil, ErrInvalidSignature
	}

	var envelope struct {
		Events []*Event `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	if envelope.Events == nil {
		envelope.Events = []*Event{}
	}

	return envelope.Events, nil
}
