package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_DeliversToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	}, EventUserRegistered, EventUserLoggedOut)
	d.Subscribe(func(_ context.Context, e Event) error {
		t.Fatalf("unexpected delivery of %s", e.Type)
		return nil
	}, EventUserDeleted)

	ev := NewEvent(EventUserRegistered, 1, "alice@x.com", nil)
	require.NoError(t, d.Publish(context.Background(), ev))
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventUserLoggedOut, 1, "alice@x.com", nil)))
	require.Len(t, got, 2)
	assert.Equal(t, ev.ID, got[0].ID)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestDispatcher_RunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	calls := 0
	d.Subscribe(func(context.Context, Event) error {
		calls++
		return boom
	}, EventUserLoggedIn)
	d.Subscribe(func(context.Context, Event) error {
		calls++
		panic("handler exploded")
	}, EventUserLoggedIn)
	d.Subscribe(func(context.Context, Event) error {
		calls++
		return nil
	}, EventUserLoggedIn)

	err := d.Publish(context.Background(), NewEvent(EventUserLoggedIn, 1, "alice@x.com", LoginPayload{}))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "handler exploded")
	assert.Equal(t, 3, calls)
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	d.Subscribe(nil, EventUserUpdated)
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventUserUpdated, 1, "a@b", nil)))
}
