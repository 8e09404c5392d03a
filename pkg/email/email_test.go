package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/email"
	"github.com/dmitrymomot/eventkit/pkg/validator"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  email.SendEmailParams
		invalid []string
	}{
		{
			name:   "valid html",
			params: email.SendEmailParams{SendTo: "a@example.com", Subject: "Hi", BodyHTML: "<p>x</p>"},
		},
		{
			name:   "valid text",
			params: email.SendEmailParams{SendTo: "a@example.com", Subject: "Hi", BodyText: "x"},
		},
		{
			name:    "bad address",
			params:  email.SendEmailParams{SendTo: "nope", Subject: "Hi", BodyText: "x"},
			invalid: []string{"send_to"},
		},
		{
			name:    "missing subject and body",
			params:  email.SendEmailParams{SendTo: "a@example.com"},
			invalid: []string{"subject", "body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.params.Validate()
			if len(tt.invalid) == 0 {
				assert.NoError(t, err)
				return
			}
			errs := validator.ExtractValidationErrors(err)
			require.NotNil(t, errs)
			for _, field := range tt.invalid {
				assert.True(t, errs.Has(field), field)
			}
		})
	}
}

func TestDevSender_SendEmail(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sender := email.NewDevSender(dir)

	err := sender.SendEmail(context.Background(), email.SendEmailParams{
		SendTo:   "alice@example.com",
		Subject:  "Launch party starts in 1 hour",
		BodyHTML: "<p>See you there</p>",
		BodyText: "See you there",
		Tag:      "reminder",
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		if strings.HasSuffix(e.Name(), ".json") {
			var meta map[string]string
			require.NoError(t, json.Unmarshal(raw, &meta))
			assert.Equal(t, "alice@example.com", meta["send_to"])
			assert.Equal(t, "reminder", meta["tag"])
			continue
		}
		assert.Equal(t, "<p>See you there</p>", string(raw))
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	sender, err := email.NewFromConfig(email.Config{DevDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &email.DevSender{}, sender)

	_, err = email.NewFromConfig(email.Config{
		PostmarkServerToken: "server",
		SenderEmail:         "noreply@example.com",
		SupportEmail:        "support@example.com",
	})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	sender, err = email.NewFromConfig(email.Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "noreply@example.com",
		SupportEmail:         "support@example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, sender)
}
