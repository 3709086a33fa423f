package appointment

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sehatsathi/sehatsathi-api/internal/model"
	"github.com/sehatsathi/sehatsathi-api/pkg/logger"
	"github.com/sehatsathi/sehatsathi-api/pkg/metrics"
)

// Refresh triggers, used as the metric label.
const (
	TriggerStart    = "start"
	TriggerEvent    = "event"
	TriggerInterval = "interval"
	TriggerWrite    = "write"
)

const viewBuffer = 4

type Source interface {
	Snapshot(ctx context.Context) ([]model.Appointment, int64, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

type WatcherConfig struct {
	Channel  string
	Interval time.Duration
}

// View is one snapshot of the doctor-side list.
type View struct {
	Appointments []model.Appointment `json:"appointments"`
	Defaults     bool                `json:"defaults"`
	Revision     int64               `json:"revision"`
	RefreshedAt  time.Time           `json:"refreshed_at"`
}

func (v View) clone() View {
	v.Appointments = model.CloneAppointments(v.Appointments)
	return v
}

// Watcher keeps the doctor view in step with the store. Store events
// trigger a reload; the interval tick resyncs when events are missed.
// Every reload replaces the whole list.
type Watcher struct {
	source   Source
	events   Subscriber
	cfg      WatcherConfig
	defaults func(time.Time) []model.Appointment
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *logger.Logger

	started   chan struct{}
	startOnce sync.Once

	mu   sync.RWMutex
	view View
	subs map[chan View]struct{}
}

func NewWatcher(source Source, events Subscriber, cfg WatcherConfig, m *metrics.Metrics, log *logger.Logger) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	now := time.Now
	return &Watcher{
		source:   source,
		events:   events,
		cfg:      cfg,
		defaults: Defaults,
		now:      now,
		metrics:  m,
		logger:   log.WithFields(map[string]interface{}{"component": "watcher"}),
		view:     View{Appointments: Defaults(now()), Defaults: true},
		subs:     make(map[chan View]struct{}),
		started:  make(chan struct{}),
	}
}

// Started is closed once Run has loaded the view and subscribed to store
// events.
func (w *Watcher) Started() <-chan struct{} {
	return w.started
}

// Run loads the view and keeps it fresh until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Refresh(ctx, TriggerStart); err != nil {
		w.logger.Warn("initial load failed, showing last view", "error", err.Error())
	}

	var events <-chan []byte
	if w.events != nil {
		ch, err := w.events.Subscribe(ctx, w.cfg.Channel)
		if err != nil {
			w.logger.Warn("store events unavailable, relying on interval", "channel", w.cfg.Channel, "error", err.Error())
		} else {
			events = ch
		}
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	w.startOnce.Do(func() { close(w.started) })

	for {
		select {
		case <-ctx.Done():
			w.closeSubscribers()
			return ctx.Err()
		case msg, ok := <-events:
			if !ok {
				w.logger.Warn("store event stream closed, relying on interval")
				events = nil
				continue
			}
			w.logEvent(msg)
			w.refreshQuietly(ctx, TriggerEvent)
		case <-ticker.C:
			w.refreshQuietly(ctx, TriggerInterval)
		}
	}
}

// Refresh reloads the view from the store. On a read failure the previous
// view stays in place. A read older than the installed view is dropped, so
// overlapping refreshes never move the view backwards.
func (w *Watcher) Refresh(ctx context.Context, trigger string) error {
	list, rev, err := w.source.Snapshot(ctx)
	if err != nil {
		return err
	}

	next := View{
		Appointments: list,
		Revision:     rev,
		RefreshedAt:  w.now().UTC(),
	}
	if len(list) == 0 {
		next.Appointments = w.defaults(w.now())
		next.Defaults = true
	}

	w.mu.Lock()
	if current := w.view.Revision; next.Revision < current {
		w.mu.Unlock()
		w.logger.Debug("dropping stale refresh", "trigger", trigger, "revision", next.Revision, "current", current)
		return nil
	}
	w.view = next
	for ch := range w.subs {
		select {
		case ch <- next.clone():
		default:
		}
	}
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.WatcherRefreshes.WithLabelValues(trigger).Inc()
		w.metrics.WatcherViewSize.Set(float64(len(next.Appointments)))
	}
	return nil
}

// Current returns a copy of the view.
func (w *Watcher) Current() View {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.view.clone()
}

// Subscribe streams every refreshed view. Slow readers skip snapshots.
// The returned func must be called to release the subscription.
func (w *Watcher) Subscribe() (<-chan View, func()) {
	ch := make(chan View, viewBuffer)

	w.mu.Lock()
	w.subs[ch] = struct{}{}
	ch <- w.view.clone()
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if _, ok := w.subs[ch]; ok {
				delete(w.subs, ch)
				close(ch)
			}
		})
	}
}

func (w *Watcher) refreshQuietly(ctx context.Context, trigger string) {
	if err := w.Refresh(ctx, trigger); err != nil && ctx.Err() == nil {
		w.logger.Warn("refresh failed", "trigger", trigger, "error", err.Error())
	}
}

func (w *Watcher) logEvent(msg []byte) {
	var event model.AppointmentEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		w.logger.Debug("undecodable store event", "error", err.Error())
		return
	}
	w.logger.Debug("store event", "type", string(event.Type), "revision", event.Revision)
}

func (w *Watcher) closeSubscribers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs {
		delete(w.subs, ch)
		close(ch)
	}
}
