package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Step
		ok       bool
	}{
		{StepNone, StepAwaitingNumbers, true},
		{StepAwaitingNumbers, StepNone, true},
		{StepAwaitingNumbers, StepAwaitingNumbers, true},
		{StepAwaitingNumbers, StepAwaitingCode, true},
		{StepAwaitingBroadcast, StepAwaitingCode, true},
		{StepAwaitingPrice, StepAwaitingHoldTime, true},
		{StepAwaitingCode, StepAwaitingNumbers, false},
		{StepAwaitingCode, StepAwaitingPrice, false},
		{StepAwaitingNumbers, StepAwaitingBroadcast, false},
		{StepAwaitingCheckLink, StepAwaitingNumbers, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%q -> %q", c.from, c.to)
	}
}

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	state, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StepNone, state.Step)

	require.NoError(t, store.Set(ctx, 1, State{Step: StepAwaitingNumbers}))
	require.NoError(t, store.Set(ctx, 1, State{Step: StepAwaitingCode, Payload: "+79991234567"}))

	state, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, State{Step: StepAwaitingCode, Payload: "+79991234567"}, state)

	err = store.Set(ctx, 1, State{Step: StepAwaitingNumbers})
	assert.ErrorIs(t, err, ErrTransition)

	state, err = store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, StepNone, state.Step, "users are independent")

	require.NoError(t, store.Set(ctx, 1, State{}))
	state, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, State{}, state)

	require.NoError(t, store.Set(ctx, 1, State{Step: StepAwaitingPrice}))
	require.NoError(t, store.Clear(ctx, 1))
	state, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StepNone, state.Step)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	testStore(t, NewRedisStore(client, time.Hour))
}

func TestRedisStore_Expires(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, time.Minute)
	require.NoError(t, store.Set(ctx, 7, State{Step: StepAwaitingBroadcast}))
	assert.True(t, mr.Exists("session:7"))

	mr.FastForward(2 * time.Minute)
	state, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StepNone, state.Step)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
