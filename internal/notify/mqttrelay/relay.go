package mqttrelay

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/yndnr/meshview-go/internal/core/domain"
	"github.com/yndnr/meshview-go/internal/storage/changefeed"
	"github.com/yndnr/meshview-go/internal/telemetry/metric"
)

// DefaultBuffer is the watcher buffer per collection.
const DefaultBuffer = 256

// Watcher registers persistent observers on a collection.
type Watcher interface {
	Watch(col domain.Collection, buffer int) (*changefeed.Subscription, error)
}

// Config configures the relay.
type Config struct {
	TopicPrefix string
	QoS         byte
	Retained    bool
	Buffer      int
	Collections []domain.Collection
}

// Notification is the message published per insert.
type Notification struct {
	Collection domain.Collection `json:"collection"`
	domain.SnapshotMeta
}

// Relay publishes insert notifications.
type Relay struct {
	cfg     Config
	watcher Watcher
	pub     Publisher
	metrics *metric.Registry
	logger  *slog.Logger

	mu     sync.Mutex
	subs   []*changefeed.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a relay. metrics may be nil.
func New(cfg Config, watcher Watcher, pub Publisher, metrics *metric.Registry, logger *slog.Logger) *Relay {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if len(cfg.Collections) == 0 {
		cfg.Collections = domain.Collections
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		cfg:     cfg,
		watcher: watcher,
		pub:     pub,
		metrics: metrics,
		logger:  logger.With("component", "mqttrelay"),
	}
}

// Topic returns the topic a collection publishes to.
func (r *Relay) Topic(col domain.Collection) string {
	name := strings.ToLower(string(col))
	if r.cfg.TopicPrefix == "" {
		return name
	}
	return r.cfg.TopicPrefix + "/" + name
}

// Start registers the watchers and starts forwarding. It returns once the
// watchers are registered, so inserts after Start are relayed.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	subs := make([]*changefeed.Subscription, 0, len(r.cfg.Collections))
	for _, col := range r.cfg.Collections {
		sub, err := r.watcher.Watch(col, r.cfg.Buffer)
		if err != nil {
			cancel()
			for _, s := range subs {
				s.Cancel()
			}
			return err
		}
		subs = append(subs, sub)
	}

	r.subs = subs
	r.cancel = cancel
	for i, col := range r.cfg.Collections {
		r.wg.Add(1)
		go r.run(ctx, col, subs[i])
	}
	r.logger.Info("relay started", "topic_prefix", r.cfg.TopicPrefix, "collections", len(subs))
	return nil
}

// Stop unregisters the watchers, waits for the forwarders and closes the
// publisher.
func (r *Relay) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	subs := r.subs
	r.cancel = nil
	r.subs = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	for _, s := range subs {
		s.Cancel()
	}
	r.wg.Wait()

	var dropped uint64
	for _, s := range subs {
		dropped += s.Dropped()
	}
	r.pub.Close()
	r.logger.Info("relay stopped", "dropped", dropped)
}

func (r *Relay) run(ctx context.Context, col domain.Collection, sub *changefeed.Subscription) {
	defer r.wg.Done()
	topic := r.Topic(col)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C():
			if !ok {
				return
			}
			r.forward(topic, snap)
		}
	}
}

func (r *Relay) forward(topic string, snap *domain.Snapshot) {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(Notification{
		Collection:   snap.Collection,
		SnapshotMeta: snap.Meta(),
	})
	if err != nil {
		r.metrics.RecordRelayPublish(string(snap.Collection), "error")
		r.logger.Error("encode notification failed", "error", err)
		return
	}

	if err := r.pub.Publish(topic, r.cfg.QoS, r.cfg.Retained, payload); err != nil {
		r.metrics.RecordRelayPublish(string(snap.Collection), "error")
		r.logger.Warn("publish failed",
			"topic", topic,
			"interval_id", snap.IntervalID,
			"error", err)
		return
	}
	r.metrics.RecordRelayPublish(string(snap.Collection), "ok")
	r.logger.Debug("notification published", "topic", topic, "interval_id", snap.IntervalID)
}
