package webhook_test

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/webhook"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()
	payload := []byte(`{"event_id":"e1"}`)

	sig, err := webhook.SignPayload("secret", payload)
	require.NoError(t, err)
	assert.Len(t, sig.Signature, 64)
	assert.NotEmpty(t, sig.ID)

	assert.NoError(t, webhook.VerifySignature("secret", payload, sig, time.Minute))
	assert.ErrorIs(t, webhook.VerifySignature("other", payload, sig, time.Minute), webhook.ErrInvalidSignature)
	assert.ErrorIs(t, webhook.VerifySignature("secret", []byte(`{}`), sig, time.Minute), webhook.ErrInvalidSignature)

	old := sig
	old.Timestamp = time.Now().Add(-time.Hour).Unix()
	assert.ErrorIs(t, webhook.VerifySignature("secret", payload, old, time.Minute), webhook.ErrSignatureExpired)
}

func TestSignPayload_Invalid(t *testing.T) {
	t.Parallel()
	_, err := webhook.SignPayload("", []byte("x"))
	assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
	_, err = webhook.SignPayload("secret", nil)
	assert.ErrorIs(t, err, webhook.ErrInvalidPayload)
}

func TestExtractSignatureHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("x-webhook-signature", "abc")
	h.Set("x-webhook-timestamp", strconv.FormatInt(1700000000, 10))
	h.Set("x-webhook-id", "id-1")

	sig, err := webhook.ExtractSignatureHeaders(h)
	require.NoError(t, err)
	assert.Equal(t, webhook.SignatureHeaders{Signature: "abc", Timestamp: 1700000000, ID: "id-1"}, sig)

	h.Set(webhook.HeaderTimestamp, "soon")
	_, err = webhook.ExtractSignatureHeaders(h)
	assert.ErrorIs(t, err, webhook.ErrInvalidSignature)

	_, err = webhook.ExtractSignatureHeaders(http.Header{})
	assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
}
