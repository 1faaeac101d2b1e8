package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"forum_client/internal/domain/notification/model"
	sessionModel "forum_client/internal/domain/session/model"
	"forum_client/internal/pkg/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	st *state.Store[sessionModel.Session]
}

func newFakeSession(loggedIn bool) *fakeSession {
	return &fakeSession{st: state.New(sessionModel.Session{LoggedIn: loggedIn})}
}

func (f *fakeSession) IsLoggedIn() bool { return f.st.Get().LoggedIn }

func (f *fakeSession) Subscribe(fn func(sessionModel.Session)) *state.Subscription {
	return f.st.Subscribe(fn)
}

// countSource 可编程的计数来源
type countSource struct {
	calls atomic.Int32
	value atomic.Int32
	fail  atomic.Bool
}

func (c *countSource) fetch(context.Context) (int, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return 0, errors.New("boom")
	}
	return int(c.value.Load()), nil
}

func TestRefreshIndependence(t *testing.T) {
	ctx := context.Background()
	chat, notif := &countSource{}, &countSource{}
	chat.value.Store(3)
	notif.value.Store(5)
	agg := NewUnreadAggregator(chat.fetch, notif.fetch, newFakeSession(true), time.Hour, nil)

	require.NoError(t, agg.Refresh(ctx))
	assert.Equal(t, model.UnreadCounts{Chat: 3, Notifications: 5}, agg.Counts())

	chat.fail.Store(true)
	chat.value.Store(9)
	notif.value.Store(7)

	err := agg.Refresh(ctx)

	require.Error(t, err)
	assert.Equal(t, 3, agg.Counts().Chat, "failed counter keeps last known value")
	assert.Equal(t, 7, agg.Counts().Notifications, "other counter still updates")
}

func TestRefreshLoggedOut(t *testing.T) {
	chat, notif := &countSource{}, &countSource{}
	chat.value.Store(2)
	sess := newFakeSession(true)
	agg := NewUnreadAggregator(chat.fetch, notif.fetch, sess, time.Hour, nil)
	require.NoError(t, agg.Refresh(context.Background()))
	require.Equal(t, 2, agg.Counts().Chat)

	sess.st.Set(sessionModel.Session{})
	calls := chat.calls.Load()

	require.NoError(t, agg.Refresh(context.Background()))

	assert.Equal(t, model.UnreadCounts{}, agg.Counts())
	assert.Equal(t, calls, chat.calls.Load(), "no fetch while logged out")
}

func TestAggregatorTriggers(t *testing.T) {
	chat, notif := &countSource{}, &countSource{}
	sess := newFakeSession(false)
	agg := NewUnreadAggregator(chat.fetch, notif.fetch, sess, time.Hour, nil)

	var updates atomic.Int32
	sub := agg.Subscribe(func(model.UnreadCounts) { updates.Add(1) })
	defer sub.Close()

	agg.Start(context.Background())
	agg.Start(context.Background())
	defer agg.Stop()

	t.Run("Start refreshes immediately", func(t *testing.T) {
		require.Eventually(t, func() bool { return updates.Load() >= 1 }, time.Second, 5*time.Millisecond)
		assert.Zero(t, chat.calls.Load(), "logged out at start")
	})

	t.Run("Login triggers a refresh", func(t *testing.T) {
		chat.value.Store(4)
		sess.st.Set(sessionModel.Session{Token: "tok", LoggedIn: true})
		require.Eventually(t, func() bool { return agg.Counts().Chat == 4 }, time.Second, 5*time.Millisecond)
	})

	t.Run("Foreground triggers a refresh", func(t *testing.T) {
		agg.SetAppState(Background)
		before := notif.calls.Load()
		notif.value.Store(6)

		agg.SetAppState(Foreground)

		require.Eventually(t, func() bool { return notif.calls.Load() > before }, time.Second, 5*time.Millisecond)
		require.Eventually(t, func() bool { return agg.Counts().Notifications == 6 }, time.Second, 5*time.Millisecond)
	})

	t.Run("Stop is idempotent and ends polling", func(t *testing.T) {
		agg.Stop()
		agg.Stop()

		calls := chat.calls.Load()
		sess.st.Set(sessionModel.Session{})
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, calls, chat.calls.Load())
	})
}

func TestAggregatorPolls(t *testing.T) {
	chat, notif := &countSource{}, &countSource{}
	agg := NewUnreadAggregator(chat.fetch, notif.fetch, newFakeSession(true), 10*time.Millisecond, nil)

	agg.Start(context.Background())
	defer agg.Stop()

	require.Eventually(t, func() bool { return chat.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestAdjustNotifications(t *testing.T) {
	agg := NewUnreadAggregator(nil, nil, newFakeSession(true), time.Hour, nil)
	agg.AdjustNotifications(2)
	agg.AdjustNotifications(-5)
	assert.Equal(t, 0, agg.Counts().Notifications)
}
