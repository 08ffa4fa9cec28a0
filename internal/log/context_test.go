package log

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithDataset(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		in   string
		want string
	}{
		{name: "nil context", ctx: nil, in: "dcase", want: "dcase"},
		{name: "background context", ctx: context.Background(), in: "esc50", want: "esc50"},
		{name: "empty name", ctx: context.Background(), in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithDataset(tt.ctx, tt.in)
			assert.Equal(t, tt.want, DatasetFromContext(ctx))
		})
	}
}

func TestDatasetFromContext_Missing(t *testing.T) {
	assert.Equal(t, "", DatasetFromContext(nil))
	assert.Equal(t, "", DatasetFromContext(context.Background()))
}

func TestWithContext_AddsDatasetField(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	ctx := ContextWithDataset(context.Background(), "dcase")

	enriched := WithContext(ctx, l)
	enriched.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dcase", entry[FieldDataset])
}

func TestFromContext_UsesAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	ctx := l.WithContext(context.Background())

	FromContext(ctx).Info().Msg("attached")
	assert.Contains(t, buf.String(), "attached")
}

func TestConfigure_Output(t *testing.T) {
	var buf bytes.Buffer
	Reset()
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})
	defer Reset()

	l := WithComponent("abstract")
	l.Debug().Msg("configured")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test", entry[FieldService])
	assert.Equal(t, "abstract", entry[FieldComponent])
}

func TestReset_Concurrent(t *testing.T) {
	defer Reset()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if i%2 == 0 {
					Reset()
				}
				Configure(Config{Output: io.Discard})
				l := WithComponent("parallel")
				l.Debug().Msg("discarded")
			}
		}()
	}
	wg.Wait()

	var buf bytes.Buffer
	Reset()
	Configure(Config{Output: &buf})
	Configure(Config{Output: io.Discard})
	l := WithComponent("after")
	l.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}
