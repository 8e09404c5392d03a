package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr error
		addr    string
		db      int
	}{
		{name: "empty", url: "", wantErr: ErrEmptyConnectionURL},
		{name: "bad scheme", url: "http://localhost:6379", wantErr: ErrFailedToParseRedisConnString},
		{name: "valid", url: "redis://:secret@cache:6380/3", addr: "cache:6380", db: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts, err := options(Config{ConnectionURL: tt.url})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, opts.Addr)
			assert.Equal(t, tt.db, opts.DB)
			assert.Equal(t, "secret", opts.Password)
		})
	}
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), Config{
		ConnectionURL:  "redis://127.0.0.1:1/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, ErrRedisNotReady)
}
