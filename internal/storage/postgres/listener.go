package postgres

import (
	"context"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/logger"
)

// startListener opens the LISTEN connection once. pq.Listener reconnects on
// its own and signals a reconnect with a nil notification.
func (s *Store) startListener() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	l := pq.NewListener(s.connStr, constants.ListenerMinReconnect, constants.ListenerMaxReconnect, s.onListenerEvent)
	if err := l.Listen(constants.NotifyChannel); err != nil {
		l.Close()
		return fmt.Errorf("%w: listening on %s: %w", errors.ErrStoreUnavailable, constants.NotifyChannel, err)
	}

	s.listener = l
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.listen(l, s.stop, s.done)
	return nil
}

func (s *Store) stopListener() {
	s.mu.Lock()
	l, stop, done := s.listener, s.stop, s.done
	s.listener = nil
	s.mu.Unlock()

	if l == nil {
		return
	}
	close(stop)
	<-done
	if err := l.Close(); err != nil {
		logger.Debug("Closing listener", "error", err)
	}
}

func (s *Store) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
		s.mu.Lock()
		first := !s.degraded
		s.degraded = true
		s.mu.Unlock()
		if first {
			logger.Warn("Postgres listener lost its connection", "error", err)
			s.hub.Cancel(fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err))
		}
	case pq.ListenerEventReconnected:
		logger.Info("Postgres listener reconnected")
	}
}

func (s *Store) listen(l *pq.Listener, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case n := <-l.Notify:
			if n == nil {
				// Notifications sent while disconnected are lost.
				s.refreshAll()
				continue
			}
			s.refresh(n.Extra)
		case <-time.After(constants.ListenerPingInterval):
			go func() {
				if err := l.Ping(); err != nil {
					logger.Debug("Listener ping failed", "error", err)
				}
			}()
		}
	}
}

// refresh re-reads field and publishes it if anyone is subscribed.
func (s *Store) refresh(field string) {
	subscribed := false
	for _, f := range s.hub.Fields() {
		if f == field {
			subscribed = true
			break
		}
	}
	if !subscribed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
	defer cancel()

	value, ok, err := s.Read(ctx, field)
	if err != nil {
		logger.Warn("Failed to read changed field", "field", field, "error", err)
		s.hub.Cancel(err)
		return
	}
	s.hub.Publish(field, value, ok)
}

func (s *Store) refreshAll() {
	s.mu.Lock()
	s.degraded = false
	s.mu.Unlock()

	fields := s.hub.Fields()
	logger.Info("Redelivering after reconnect", "store", "postgres", "fields", len(fields))
	for _, field := range fields {
		s.refresh(field)
	}
}
