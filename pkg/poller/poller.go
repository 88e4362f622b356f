// Package poller drives the dual-cadence polling loop against the search
// backend: honeypot events on a short interval, aggregate stats on a long
// one, both on a single loop.
package poller

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"attack-map/pkg/models"
)

const (
	// eventInterval is the delay between event query cycles.
	eventInterval = 500 * time.Millisecond

	// statsInterval gates the stats queries: they run on the event loop
	// whenever at least this much time has passed since the last run.
	statsInterval = 10 * time.Second

	// errorBackoff is the delay after a failed event query.
	errorBackoff = 5 * time.Second

	// safetyMargin trails the window's upper bound behind real time to
	// tolerate backend indexing latency.
	safetyMargin = 10 * time.Second

	// batchSize caps the documents fetched per event cycle.
	batchSize = 100

	queryTimeout = 30 * time.Second
)

// esTimeLayout formats window bounds as naive UTC, the form the backend
// indexes @timestamp in.
const esTimeLayout = "2006-01-02T15:04:05.000000"

// honeypotTypes is the allow-list of event sources. Both the event query
// and the stats queries are restricted to these.
var honeypotTypes = []string{
	"Adbhoney", "Beelzebub", "Ciscoasa", "CitrixHoneypot", "ConPot",
	"Cowrie", "Ddospot", "Dicompot", "Dionaea", "ElasticPot",
	"Endlessh", "Galah", "Glutton", "Go-pot", "H0neytr4p", "Hellpot", "Heralding",
	"Honeyaml", "Honeytrap", "Honeypots", "Log4pot", "Ipphoney", "Mailoney",
	"Medpot", "Miniprint", "Redishoneypot", "Sentrypeer", "Tanner", "Wordpot",
}

// statsWindows are the trailing windows reported in each Stats record.
var statsWindows = []string{"1m", "1h", "24h"}

// Publisher receives the poller's output. Both calls are best-effort:
// the poller never learns about delivery failures.
type Publisher interface {
	PublishAlerts(alerts []models.Alert)
	PublishStats(stats models.Stats)
}

// Poller owns the polling loop and its window bookkeeping. The window
// cursor lives only in memory: a restart resets it to now minus the
// safety margin, which leaves a bounded backlog gap.
type Poller struct {
	searcher Searcher
	pub      Publisher
	log      *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	running atomic.Bool

	// Loop-owned state, never touched outside runLoop.
	windowStart time.Time
	lastStats   time.Time
	backendDown bool

	// Stats
	alertsPublished uint64
	docsDropped     uint64
	cycles          uint64
}

// New creates a poller. Start must be called to begin polling.
func New(searcher Searcher, pub Publisher, log *logrus.Logger) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		searcher: searcher,
		pub:      pub,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (p *Poller) Start() {
	if p.running.Swap(true) {
		return
	}
	p.wg.Add(1)
	go p.runLoop()
	p.log.Info("poller started")
}

// Stop cancels in-flight queries and waits for the loop to exit.
func (p *Poller) Stop() {
	if !p.running.Swap(false) {
		return
	}
	close(p.done)
	p.cancel()
	p.wg.Wait()
	p.log.Infof("poller stopped (cycles=%d, alerts=%d, dropped=%d)",
		atomic.LoadUint64(&p.cycles), atomic.LoadUint64(&p.alertsPublished), atomic.LoadUint64(&p.docsDropped))
}

// Stats returns current counters.
func (p *Poller) Stats() map[string]interface{} {
	return map[string]interface{}{
		"cycles":           atomic.LoadUint64(&p.cycles),
		"alerts_published": atomic.LoadUint64(&p.alertsPublished),
		"docs_dropped":     atomic.LoadUint64(&p.docsDropped),
	}
}

func (p *Poller) runLoop() {
	defer p.wg.Done()

	p.windowStart = time.Now().UTC().Add(-safetyMargin)
	// Backdated so the first cycle emits stats immediately.
	p.lastStats = time.Now().Add(-statsInterval)

	for {
		delay := p.cycle()
		select {
		case <-p.done:
			return
		case <-time.After(delay):
		}
	}
}

// cycle runs one iteration and returns the delay before the next.
func (p *Poller) cycle() time.Duration {
	atomic.AddUint64(&p.cycles, 1)

	if time.Since(p.lastStats) >= statsInterval {
		p.lastStats = time.Now()
		p.collectStats()
	}

	if err := p.pollEvents(); err != nil {
		p.noteFailure(err)
		return errorBackoff
	}
	p.noteRecovery()
	return eventInterval
}

// pollEvents queries the current window, normalizes the hits and hands
// any non-empty batch to the publisher. The window only advances on a
// successful query, so a failed cycle retries the identical range.
func (p *Poller) pollEvents() error {
	windowEnd := time.Now().UTC().Add(-safetyMargin)
	if !windowEnd.After(p.windowStart) {
		return nil
	}

	ctx, cancel := context.WithTimeout(p.ctx, queryTimeout)
	defer cancel()

	res, err := p.searcher.Search(ctx, eventQuery(p.windowStart, windowEnd))
	if err != nil {
		return err
	}

	batch := make([]models.Alert, 0, len(res.Sources))
	for _, source := range res.Sources {
		alert, err := Normalize(source)
		if err != nil {
			atomic.AddUint64(&p.docsDropped, 1)
			p.log.Debugf("dropping document: %v", err)
			continue
		}
		batch = append(batch, *alert)
	}

	if len(batch) > 0 {
		p.pub.PublishAlerts(batch)
		atomic.AddUint64(&p.alertsPublished, uint64(len(batch)))
	}

	p.windowStart = windowEnd
	return nil
}

// collectStats counts events over each trailing window and publishes one
// Stats record. Window queries are independent: a failure omits that
// window's key and the others still go out.
func (p *Poller) collectStats() {
	stats := models.NewStats()
	for _, window := range statsWindows {
		ctx, cancel := context.WithTimeout(p.ctx, queryTimeout)
		res, err := p.searcher.Search(ctx, statsQuery(window))
		cancel()
		if err != nil {
			p.log.Debugf("stats query for last_%s failed: %v", window, err)
			continue
		}
		stats.Set(window, res.Total)
	}
	p.pub.PublishStats(stats)
}

func (p *Poller) noteFailure(err error) {
	if p.backendDown {
		return
	}
	p.backendDown = true
	p.log.Warnf("connection lost to search backend (%v), retrying", err)
}

func (p *Poller) noteRecovery() {
	if !p.backendDown {
		return
	}
	p.backendDown = false
	p.log.Info("search backend connection re-established")
}

// eventQuery selects allow-listed honeypot documents whose @timestamp
// falls in [start, end).
func eventQuery(start, end time.Time) map[string]interface{} {
	return map[string]interface{}{
		"size": batchSize,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"query_string": map[string]interface{}{
							"query": "type:(" + strings.Join(honeypotTypes, " OR ") + ")",
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"range": map[string]interface{}{
							"@timestamp": map[string]interface{}{
								"gte": start.Format(esTimeLayout),
								"lt":  end.Format(esTimeLayout),
							},
						},
					},
				},
			},
		},
	}
}

// statsQuery counts allow-listed, geolocated documents over one trailing
// window. Size 0: only the total matters.
func statsQuery(window string) map[string]interface{} {
	return map[string]interface{}{
		"size":             0,
		"track_total_hits": true,
		"aggs":             map[string]interface{}{},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"terms": map[string]interface{}{
							"type.keyword": honeypotTypes,
						},
					},
					map[string]interface{}{
						"range": map[string]interface{}{
							"@timestamp": map[string]interface{}{
								"format": "strict_date_optional_time",
								"gte":    "now-" + window,
								"lte":    "now",
							},
						},
					},
					map[string]interface{}{
						"exists": map[string]interface{}{
							"field": "geoip.ip",
						},
					},
				},
			},
		},
	}
}
