// Package broker owns the producer side of the pub/sub link: it frames
// Alert and Stats records for the wire and publishes them on the map
// channel.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"attack-map/pkg/models"
)

const publishTimeout = 5 * time.Second

// mirrorWidths are the minimum column widths of the console mirror:
// time, country, src_ip, ip_rep, protocol, honeypot, hostname.
var mirrorWidths = []int{19, 20, 15, 18, 10, 14, 14}

// Publisher publishes framed messages on the configured channel. It is
// best-effort: a ping probe runs before each batch, and if the broker is
// unreachable the messages are dropped rather than queued. go-redis
// re-dials through its connection pool, so a later successful probe is
// the reconnect.
type Publisher struct {
	client  *redis.Client
	channel string
	log     *logrus.Logger

	// mirror enables the console table of each published alert.
	mirror  bool
	localTZ *time.Location

	mu         sync.Mutex
	eventCount uint64
	down       bool

	published uint64
	dropped   uint64
}

// NewPublisher creates a publisher for the given broker address
// (host:port) and channel.
func NewPublisher(addr, channel string, mirror bool, log *logrus.Logger) *Publisher {
	return &Publisher{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
		log:     log,
		mirror:  mirror,
		localTZ: time.Local,
	}
}

// PublishAlerts frames and publishes a batch of alerts as individual
// Traffic messages. Event counts are assigned here, monotonically over
// the process lifetime, whether or not the publish succeeds.
func (p *Publisher) PublishAlerts(alerts []models.Alert) {
	if !p.probe() {
		atomic.AddUint64(&p.dropped, uint64(len(alerts)))
		return
	}
	for i := range alerts {
		if p.mirror {
			p.mirrorAlert(alerts[i])
		}
		p.publish(p.frame(alerts[i]))
	}
}

// PublishStats publishes one Stats message.
func (p *Publisher) PublishStats(stats models.Stats) {
	if !p.probe() {
		atomic.AddUint64(&p.dropped, 1)
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		p.log.Errorf("marshal stats: %v", err)
		return
	}
	p.publish(payload)
}

// Ping checks broker reachability, used by startup gating.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.log.Infof("publisher closed (published=%d, dropped=%d)",
		atomic.LoadUint64(&p.published), atomic.LoadUint64(&p.dropped))
	return p.client.Close()
}

// Stats returns current counters.
func (p *Publisher) Stats() map[string]interface{} {
	return map[string]interface{}{
		"published": atomic.LoadUint64(&p.published),
		"dropped":   atomic.LoadUint64(&p.dropped),
	}
}

// frame finishes an alert for the wire: event count, type discriminator
// and title-cased reputation label.
func (p *Publisher) frame(alert models.Alert) []byte {
	p.mu.Lock()
	p.eventCount++
	alert.EventCount = p.eventCount
	p.mu.Unlock()

	alert.Type = models.TypeTraffic
	alert.IPRep = titleWords(alert.IPRep)

	payload, err := json.Marshal(alert)
	if err != nil {
		// Alert is a flat struct of scalars; this cannot fail.
		p.log.Errorf("marshal alert: %v", err)
		return nil
	}
	return payload
}

func (p *Publisher) publish(payload []byte) {
	if payload == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		atomic.AddUint64(&p.dropped, 1)
		p.noteFailure(err)
		return
	}
	atomic.AddUint64(&p.published, 1)
	p.noteRecovery()
}

// probe checks broker liveness before a batch. A failed probe drops the
// batch; messages are never queued for redelivery.
func (p *Publisher) probe() bool {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Ping(ctx).Err(); err != nil {
		p.noteFailure(err)
		return false
	}
	p.noteRecovery()
	return true
}

func (p *Publisher) noteFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return
	}
	p.down = true
	p.log.Warnf("connection lost to broker (%v), retrying", err)
}

func (p *Publisher) noteRecovery() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.down {
		return
	}
	p.down = false
	p.log.Info("broker connection re-established")
}

// mirrorAlert prints one column-aligned row per alert to the console,
// with the event time shifted to the local timezone.
func (p *Publisher) mirrorAlert(alert models.Alert) {
	eventTime := alert.EventTime
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", alert.EventTime, time.UTC); err == nil {
		eventTime = t.In(p.localTZ).Format("2006-01-02 15:04:05")
	}

	row := []string{
		eventTime, alert.Country, alert.SrcIP, titleWords(alert.IPRep),
		alert.Protocol, alert.Honeypot, alert.HoneypotHostname,
	}
	cells := make([]string, len(row))
	for i, value := range row {
		cells[i] = fmt.Sprintf("%-*s", mirrorWidths[i], value)
	}
	fmt.Println(strings.Join(cells, " | "))
}

// titleWords capitalizes the first letter of each space-separated word,
// e.g. "known attacker" -> "Known Attacker".
func titleWords(s string) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
