package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	svc := NewStripeService("sk_test", "whsec_test")
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)

	assert.True(t, svc.VerifyWebhookSignature(payload, signPayload("whsec_test", payload)))
	assert.False(t, svc.VerifyWebhookSignature(payload, signPayload("whsec_other", payload)))
	assert.False(t, svc.VerifyWebhookSignature(payload, "deadbeef"))
	assert.False(t, svc.VerifyWebhookSignature(payload, ""))

	// A single flipped byte in the body invalidates the signature.
	sig := signPayload("whsec_test", payload)
	tampered := append([]byte{}, payload...)
	tampered[0] = '['
	assert.False(t, svc.VerifyWebhookSignature(tampered, sig))
}

func TestParseEvent(t *testing.T) {
	svc := NewStripeService("sk_test", "whsec_test")

	event, err := svc.ParseEvent([]byte(`{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{"id":"sub_1"}}}`))
	assert.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventSubscriptionUpdated, event.Type)
	assert.NotEmpty(t, event.Data.Object)

	_, err = svc.ParseEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = svc.ParseEvent([]byte(`{"id":"evt_1"}`))
	assert.Error(t, err, "events without a type are rejected")
}

func TestStripeSubscriptionItemHelpers(t *testing.T) {
	empty := &StripeSubscription{}
	assert.Equal(t, "", empty.PriceID())
	assert.Equal(t, 0.0, empty.Amount())
	assert.Equal(t, "", empty.Currency())
	assert.Equal(t, "", empty.Interval())
}
