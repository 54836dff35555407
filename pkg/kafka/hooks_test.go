package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookChainThreadsContextAndStopsOnError(t *testing.T) {
	var afterOrder []string
	var errs int
	first := HookFuncs{
		After: func(context.Context, string, kafka.Message, []byte, error) { afterOrder = append(afterOrder, "first") },
		Err:   func(context.Context, string, kafka.Message, []byte, error) { errs++ },
	}
	second := HookFuncs{
		After: func(context.Context, string, kafka.Message, []byte, error) { afterOrder = append(afterOrder, "second") },
	}
	chain := NewHookChain(Tracing(), first, nil, second)

	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, data, err := chain.BeforeHandle(context.Background(), "signals", km, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceIDFrom(ctx))
	assert.Equal(t, []byte(`{}`), data)

	chain.AfterHandle(ctx, "signals", km, data, nil)
	assert.Equal(t, []string{"second", "first"}, afterOrder)

	rejecting := NewHookChain(first, RejectEmpty())
	_, _, _, err = rejecting.BeforeHandle(context.Background(), "signals", km, nil)
	var he *HookError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "ERR_VALIDATION", he.Code)
	assert.Equal(t, 1, errs)
}

func TestHookChainRecoversPanics(t *testing.T) {
	boom := HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
		After: func(context.Context, string, kafka.Message, []byte, error) { panic("after") },
	}
	chain := NewHookChain(boom)

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)

	assert.NotPanics(t, func() { chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil) })
}
