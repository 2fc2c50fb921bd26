package reservation

import (
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// Channel notified by the registration workflow when the devices change.
	DevicesChangedChannel = "devices_changed"
	// Reconnection intervals of the listener.
	listenerMinReconnectInterval = time.Second
	listenerMaxReconnectInterval = time.Minute
	// Interval of the connection health checks.
	listenerPingInterval = 90 * time.Second
)

// Interface of the listener connection. It is implemented by pq.Listener.
type notificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// Listens to the PostgreSQL notifications about the device changes and
// triggers the refresh. The notifications are coalesced by the refresher.
type NotificationListener struct {
	source  notificationSource
	trigger func()
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// Connects to the database and starts listening on the channel. The
// trigger function is called for each notification and after each
// reconnection, because notifications may have been missed while the
// connection was down.
func NewNotificationListener(connectionParams, channel string, trigger func()) (*NotificationListener, error) {
	listener := pq.NewListener(connectionParams, listenerMinReconnectInterval, listenerMaxReconnectInterval,
		func(event pq.ListenerEventType, err error) {
			switch event {
			case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
				log.WithError(err).Warn("Problem with the database notification listener connection")
			case pq.ListenerEventReconnected:
				log.Info("Database notification listener reconnected")
			}
		})
	return newNotificationListener(listener, channel, trigger)
}

// Starts listening using the specified source.
func newNotificationListener(source notificationSource, channel string, trigger func()) (*NotificationListener, error) {
	if err := source.Listen(channel); err != nil {
		_ = source.Close()
		return nil, errors.Wrapf(err, "cannot listen on the %s channel", channel)
	}
	listener := &NotificationListener{
		source:  source,
		trigger: trigger,
		done:    make(chan struct{}),
	}
	listener.wg.Add(1)
	go listener.loop()
	log.WithField("channel", channel).Info("Listening to the database notifications")
	return listener, nil
}

// Receives the notifications until the listener is closed.
func (l *NotificationListener) loop() {
	defer l.wg.Done()
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()
	notifications := l.source.NotificationChannel()
	for {
		select {
		case notification, ok := <-notifications:
			if !ok {
				return
			}
			if notification != nil {
				log.WithFields(log.Fields{
					"channel": notification.Channel,
					"payload": notification.Extra,
				}).Debug("Received database notification")
			}
			// A nil notification is sent after reconnecting.
			l.trigger()
		case <-ticker.C:
			if err := l.source.Ping(); err != nil {
				log.WithError(err).Warn("Database notification listener ping failed")
			}
		case <-l.done:
			return
		}
	}
}

// Stops listening and closes the connection.
func (l *NotificationListener) Close() {
	l.once.Do(func() {
		close(l.done)
		l.wg.Wait()
		if err := l.source.Close(); err != nil {
			log.WithError(err).Warn("Problem closing the database notification listener")
		}
	})
}
