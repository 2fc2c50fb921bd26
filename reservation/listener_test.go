package reservation

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// Notification source feeding the notifications from the test.
type testNotificationSource struct {
	channel    string
	listenErr  error
	closed     atomic.Bool
	notifyChan chan *pq.Notification
}

func newTestNotificationSource() *testNotificationSource {
	return &testNotificationSource{notifyChan: make(chan *pq.Notification, 10)}
}

func (s *testNotificationSource) Listen(channel string) error {
	s.channel = channel
	return s.listenErr
}

func (s *testNotificationSource) NotificationChannel() <-chan *pq.Notification {
	return s.notifyChan
}

func (s *testNotificationSource) Ping() error {
	return nil
}

func (s *testNotificationSource) Close() error {
	s.closed.Store(true)
	return nil
}

// Test that each notification triggers the refresh.
func TestNotificationListener(t *testing.T) {
	// Arrange
	source := newTestNotificationSource()
	var triggers atomic.Int64
	listener, err := newNotificationListener(source, DevicesChangedChannel, func() {
		triggers.Add(1)
	})
	require.NoError(t, err)
	require.Equal(t, "devices_changed", source.channel)

	// Act
	source.notifyChan <- &pq.Notification{Channel: DevicesChangedChannel, Extra: "aa:bb:cc:dd:ee:ff"}
	source.notifyChan <- nil

	// Assert
	require.Eventually(t, func() bool {
		return triggers.Load() == 2
	}, 5*time.Second, 10*time.Millisecond)

	listener.Close()
	listener.Close()
	require.True(t, source.closed.Load())
}

// Test that the listener stops when the notification channel is closed.
func TestNotificationListenerChannelClosed(t *testing.T) {
	source := newTestNotificationSource()
	listener, err := newNotificationListener(source, DevicesChangedChannel, func() {})
	require.NoError(t, err)

	close(source.notifyChan)

	require.NotPanics(t, listener.Close)
}

// Test that the listen error is returned and the source is closed.
func TestNotificationListenerListenError(t *testing.T) {
	source := newTestNotificationSource()
	source.listenErr = errors.New("permission denied")

	_, err := newNotificationListener(source, DevicesChangedChannel, func() {})

	require.ErrorContains(t, err, "cannot listen on the devices_changed channel")
	require.True(t, source.closed.Load())
}
