package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/email"
	"github.com/dmitrymomot/eventkit/pkg/event"
	"github.com/dmitrymomot/eventkit/pkg/notifications"
	"github.com/dmitrymomot/eventkit/pkg/retry"
	"github.com/dmitrymomot/eventkit/pkg/webhook"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	fail map[string]error
}

func (m *fakeMailer) SendEmail(_ context.Context, p email.SendEmailParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[p.SendTo]; err != nil {
		return err
	}
	m.sent = append(m.sent, p)
	return nil
}

func TestMultiBackend(t *testing.T) {
	t.Parallel()

	mb := notifications.NewMultiBackend().Register(event.ChannelInApp, notifications.NoOpBackend{})

	assert.NoError(t, mb.Send(context.Background(), event.Channel{Kind: event.ChannelInApp}, notifications.Message{}))

	err := mb.Send(context.Background(), event.Channel{Kind: event.ChannelEmail}, notifications.Message{})
	assert.ErrorIs(t, err, notifications.ErrUnsupportedChannel)
	assert.True(t, retry.IsPermanent(err))
}

func TestEmailBackend(t *testing.T) {
	t.Parallel()

	msg := notifications.Message{Level: notifications.LevelCritical, Title: "Moved", Body: "Room <B>"}

	t.Run("all targets", func(t *testing.T) {
		t.Parallel()
		mailer := &fakeMailer{}
		b := notifications.NewEmailBackend(mailer)

		err := b.Send(context.Background(), event.Channel{ID: "c1", Targets: []string{"a@example.com", "b@example.com"}}, msg)
		require.NoError(t, err)
		require.Len(t, mailer.sent, 2)
		assert.Equal(t, "[Urgent] Moved", mailer.sent[0].Subject)
		assert.Contains(t, mailer.sent[0].BodyHTML, "Room &lt;B&gt;")
		assert.Equal(t, "Room <B>", mailer.sent[0].BodyText)
	})

	t.Run("some targets fail", func(t *testing.T) {
		t.Parallel()
		mailer := &fakeMailer{fail: map[string]error{"b@example.com": errors.New("bounce")}}
		b := notifications.NewEmailBackend(mailer)

		err := b.Send(context.Background(), event.Channel{ID: "c1", Targets: []string{"a@example.com", "b@example.com"}}, msg)
		var partial *notifications.PartialError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, []string{"a@example.com"}, partial.Delivered)
		assert.Contains(t, partial.Failed, "b@example.com")
	})

	t.Run("invalid address is permanent", func(t *testing.T) {
		t.Parallel()
		b := notifications.NewEmailBackend(&fakeMailer{})

		err := b.Send(context.Background(), event.Channel{ID: "c1", Targets: []string{"not-an-email"}}, msg)
		assert.ErrorIs(t, err, notifications.ErrDeliveryFailed)
		assert.True(t, retry.IsPermanent(err))
	})

	t.Run("no targets", func(t *testing.T) {
		t.Parallel()
		b := notifications.NewEmailBackend(&fakeMailer{})

		err := b.Send(context.Background(), event.Channel{ID: "c1"}, msg)
		assert.ErrorIs(t, err, notifications.ErrNoTargets)
	})
}

func TestWebhookBackend(t *testing.T) {
	t.Parallel()

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		sig, err := webhook.ExtractSignatureHeaders(r.Header)
		assert.NoError(t, err)
		assert.NoError(t, webhook.VerifySignature("secret", body, sig, time.Minute))

		var payload notifications.WebhookPayload
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "c1", payload.ChannelID)
		assert.Equal(t, "Moved", payload.Title)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ok.Close)

	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	t.Cleanup(gone.Close)

	b := notifications.NewWebhookBackend(webhook.NewSender(), webhook.NewBreakers(3, 1, time.Minute))
	msg := notifications.Message{EventID: "e1", Level: notifications.LevelInfo, Title: "Moved"}

	t.Run("signed delivery", func(t *testing.T) {
		t.Parallel()
		err := b.Send(context.Background(), event.Channel{ID: "c1", Targets: []string{ok.URL}, Secret: "secret"}, msg)
		assert.NoError(t, err)
	})

	t.Run("partial", func(t *testing.T) {
		t.Parallel()
		err := b.Send(context.Background(), event.Channel{ID: "c1", Targets: []string{ok.URL, gone.URL}, Secret: "secret"}, msg)
		var partial *notifications.PartialError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, []string{ok.URL}, partial.Delivered)
	})

	t.Run("permanent rejection", func(t *testing.T) {
		t.Parallel()
		err := b.Send(context.Background(), event.Channel{ID: "c2", Targets: []string{gone.URL}}, msg)
		assert.ErrorIs(t, err, notifications.ErrDeliveryFailed)
		assert.True(t, retry.IsPermanent(err))
	})

	t.Run("invalid url", func(t *testing.T) {
		t.Parallel()
		err := b.Send(context.Background(), event.Channel{ID: "c3", Targets: []string{"not a url"}}, msg)
		assert.ErrorIs(t, err, notifications.ErrDeliveryFailed)
		assert.True(t, retry.IsPermanent(err))
	})
}

func TestInAppBackend(t *testing.T) {
	t.Parallel()

	b := notifications.NewInAppBackend(4, notifications.WithMaxUsers(2))
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sub := b.Subscribe(ctx, "u1")

	err := b.Send(context.Background(), event.Channel{ID: "c1", Targets: []string{"u1", "u2"}}, notifications.Message{Title: "Hello"})
	require.NoError(t, err)

	select {
	case m := <-sub.Receive(ctx):
		assert.Equal(t, "Hello", m.Data.Title)
	case <-time.After(time.Second):
		t.Fatal("message not received")
	}

	// A third user evicts the least recently used broadcaster and closes its subscribers.
	require.NoError(t, b.Send(context.Background(), event.Channel{ID: "c2", Targets: []string{"u3"}}, notifications.Message{Title: "x"}))
	select {
	case _, open := <-sub.Receive(ctx):
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("subscriber not closed on eviction")
	}
}
