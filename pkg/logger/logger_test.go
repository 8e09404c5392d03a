package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/eventkit/pkg/environment"
	"github.com/dmitrymomot/eventkit/pkg/logger"
)

type ctxKey struct{}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf))
	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Info("hello", logger.EventID("e1"))
	entry := decode(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "e1", entry["event_id"])
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env      environment.Environment
		wantText bool
		debug    bool
		wantEnv  string
	}{
		{environment.Production, false, false, "production"},
		{environment.Staging, false, false, "staging"},
		{environment.Development, true, true, "development"},
		{"", true, true, "development"},
	}
	for _, tt := range tests {
		t.Run(string(tt.env), func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			log := logger.New(logger.WithOutput(buf), logger.WithEnvironment(tt.env, "eventd"))

			log.Debug("dbg")
			assert.Equal(t, tt.debug, buf.Len() > 0)
			buf.Reset()

			log.Info("msg")
			if tt.wantText {
				assert.Contains(t, buf.String(), "env="+tt.wantEnv)
				assert.Contains(t, buf.String(), "service=eventd")
				return
			}
			entry := decode(t, buf)
			assert.Equal(t, tt.wantEnv, entry["env"])
			assert.Equal(t, "eventd", entry["service"])
		})
	}
}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithContextValue("request_id", ctxKey{}),
		logger.WithContextExtractors(nil, environment.LoggerExtractor()),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
	ctx = environment.WithContext(ctx, environment.Staging)
	log.With(logger.Component("test")).WithGroup("g").InfoContext(ctx, "x")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"env":"staging"`)
	assert.Contains(t, out, `"component":"test"`)
}

func TestWithFormat(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText)).Info("plain")
	assert.True(t, strings.HasPrefix(buf.String(), "time="))

	assert.Panics(t, func() { logger.WithFormat("xml") })
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
	assert.Equal(t, "error", logger.Error(errors.New("x")).Key)
	assert.True(t, logger.UserID("").Equal(slog.Attr{}))
	assert.Equal(t, "u1", logger.UserID("u1").Value.String())
	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))

	errs := logger.Errors(nil, errors.New("b"))
	assert.Equal(t, "errors", errs.Key)
	require.Len(t, errs.Value.Group(), 1)
	assert.Equal(t, "1", errs.Value.Group()[0].Key)

	assert.Equal(t, int64(900), logger.Offset(900).Value.Int64())
	assert.Equal(t, "subscription_id", logger.SubscriptionID("s1").Key)
	assert.Equal(t, "channel_id", logger.ChannelID("c1").Key)
	assert.Equal(t, "signal", logger.Signal("cancel_event").Key)
	assert.Equal(t, "task_id", logger.TaskID("t").Key)
	assert.Equal(t, "g", logger.Group("g", logger.EventID("e")).Key)
}
