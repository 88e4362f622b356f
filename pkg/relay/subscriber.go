package relay

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// receiveTimeout bounds each wait for the next broker message. It is
	// also the relay's worst-case shutdown latency while idle.
	receiveTimeout = 100 * time.Millisecond

	// reconnectDelay is the wait before re-dialing a lost broker link.
	reconnectDelay = 5 * time.Second
)

// Subscriber maintains the consumer side of the broker link and relays
// every received payload to the registry. The connection is owned
// exclusively by the run loop; on any I/O error it is torn down and
// re-dialed after a fixed delay.
type Subscriber struct {
	addr     string
	channel  string
	registry *Registry
	log      *logrus.Logger

	done chan struct{}
	wg   sync.WaitGroup

	running atomic.Bool

	// down is loop-owned; it gates the once-per-transition logs.
	down bool

	relayed uint64
}

// NewSubscriber creates a subscriber for the given broker address
// (host:port) and channel.
func NewSubscriber(addr, channel string, registry *Registry, log *logrus.Logger) *Subscriber {
	return &Subscriber{
		addr:     addr,
		channel:  channel,
		registry: registry,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start begins the subscribe/relay loop in a goroutine.
func (s *Subscriber) Start() {
	if s.running.Swap(true) {
		return
	}
	s.wg.Add(1)
	go s.runLoop()
	s.log.Info("relay subscriber started")
}

// Stop shuts the loop down and waits for the broker connection to close.
func (s *Subscriber) Stop() {
	if !s.running.Swap(false) {
		return
	}
	close(s.done)
	s.wg.Wait()
	s.log.Infof("relay subscriber stopped (relayed=%d)", atomic.LoadUint64(&s.relayed))
}

// Stats returns current counters.
func (s *Subscriber) Stats() map[string]interface{} {
	return map[string]interface{}{
		"relayed": atomic.LoadUint64(&s.relayed),
	}
}

func (s *Subscriber) runLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		err := s.consume()
		if err == nil {
			// Clean shutdown.
			return
		}
		if !s.down {
			s.down = true
			s.log.Warnf("connection lost to broker (%v), retrying", err)
		}

		select {
		case <-s.done:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// consume dials the broker, subscribes and relays messages until the
// link breaks or shutdown is requested. Returns nil only on shutdown.
func (s *Subscriber) consume() error {
	client := redis.NewClient(&redis.Options{Addr: s.addr})
	defer client.Close()

	ctx := context.Background()
	pubsub := client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Wait for the subscription confirmation before declaring the link up.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	if s.down {
		s.down = false
		s.log.Info("broker connection re-established")
	}

	for {
		select {
		case <-s.done:
			return nil
		default:
		}

		msg, err := pubsub.ReceiveTimeout(ctx, receiveTimeout)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return err
		}

		switch m := msg.(type) {
		case *redis.Message:
			// Forward the payload verbatim; clients get exactly what the
			// publisher framed.
			s.registry.Broadcast([]byte(m.Payload))
			atomic.AddUint64(&s.relayed, 1)
		default:
			// Subscription acks and pongs carry no payload.
		}
	}
}

// isTimeout reports whether the error is just the receive deadline
// expiring on an idle channel.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
