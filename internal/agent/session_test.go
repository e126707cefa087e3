package agent

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySessionStore(t *testing.T) {
	store := NewInMemorySessionStore()
	ctx := context.Background()

	// 不存在的会话返回空历史
	history, err := store.History(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, store.Append(ctx, "s1",
		schema.UserMessage("hello"),
		schema.AssistantMessage("hi", nil)))

	history, err = store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)

	// 会话之间隔离
	other, err := store.History(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.Clear(ctx, "s1"))
	history, err = store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestInMemorySessionStoreRejectsNilMessage(t *testing.T) {
	store := NewInMemorySessionStore()
	err := store.Append(context.Background(), "s1", nil)
	assert.Error(t, err)
}

func TestInMemorySessionStoreHistoryIsCopied(t *testing.T) {
	store := NewInMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s1", schema.UserMessage("hello")))

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	history[0] = schema.UserMessage("mutated")

	fresh, err := store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "hello", fresh[0].Content)
}
