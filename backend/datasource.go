// Package backend delivers telemetry batches to the dashboard from a live
// websocket feed or a recorded CSV file, and persists dashboard state.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"git.sr.ht/~whereswaldon/robodash/graph"
)

// ErrNoURL is returned by Run when no telemetry URL is configured.
var ErrNoURL = errors.New("no telemetry URL configured")

const (
	initialBackoff = 500 * time.Millisecond
	defaultBackoff = 30 * time.Second
)

// Options configure a Datasource. Zero fields take defaults.
type Options struct {
	// URL of the websocket telemetry endpoint.
	URL    string
	Dialer *websocket.Dialer
	// MaxBackoff caps the delay between reconnection attempts. Default 30s.
	MaxBackoff time.Duration
	// BufferSize of the batch channel. Default 64.
	BufferSize int
	// Invalidate is called after each delivered batch, typically to request a
	// new frame.
	Invalidate func()
	Logger     *zap.Logger
	Metrics    *Metrics
}

// Update is one item on the delivery channel. Reset marks the start of a
// recording whose timestamps are unrelated to anything delivered before it;
// Batch is empty in that case.
type Update struct {
	Reset bool
	Batch graph.Batch
}

// Datasource produces telemetry batches on a channel. Consumers drain Updates
// from a single goroutine.
type Datasource struct {
	opts    Options
	l       *zap.Logger
	metrics *Metrics
	updates chan Update
	status  broadcaster[Status]
}

func NewDatasource(opts Options) *Datasource {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultBackoff
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	return &Datasource{
		opts:    opts,
		l:       opts.Logger,
		metrics: opts.Metrics,
		updates: make(chan Update, opts.BufferSize),
	}
}

// Updates returns the channel decoded batches are delivered on.
func (d *Datasource) Updates() <-chan Update {
	return d.updates
}

// Status streams the state of the data source until ctx is done.
func (d *Datasource) Status(ctx context.Context) <-chan Status {
	return d.status.Stream(ctx)
}

func (d *Datasource) setStatus(s Status) {
	d.status.Set(s)
}

func (d *Datasource) send(ctx context.Context, u Update) bool {
	select {
	case d.updates <- u:
	case <-ctx.Done():
		return false
	}
	if d.opts.Invalidate != nil {
		d.opts.Invalidate()
	}
	return true
}

func (d *Datasource) deliver(ctx context.Context, batch graph.Batch) bool {
	if !d.send(ctx, Update{Batch: batch}) {
		return false
	}
	d.metrics.batches.Inc()
	return true
}

// Run connects to the telemetry URL and delivers batches until ctx is done,
// reconnecting with exponential backoff whenever the connection fails.
func (d *Datasource) Run(ctx context.Context) error {
	if d.opts.URL == "" {
		return ErrNoURL
	}
	backoff := min(initialBackoff, d.opts.MaxBackoff)
	for {
		d.setStatus(Status{Mode: ModeLive, Source: d.opts.URL})
		connected, err := d.session(ctx)
		if ctx.Err() != nil {
			d.setStatus(Status{Mode: ModeLive, Source: d.opts.URL})
			return nil
		}
		if connected {
			backoff = min(initialBackoff, d.opts.MaxBackoff)
		}
		d.setStatus(Status{Mode: ModeLive, Source: d.opts.URL, Err: err})
		d.l.Warn("Telemetry connection failed, retrying",
			zap.String("url", d.opts.URL), zap.Duration("backoff", backoff), zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff = min(backoff*2, d.opts.MaxBackoff)
	}
}

// session runs one connection until it fails.
func (d *Datasource) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := d.opts.Dialer.DialContext(ctx, d.opts.URL, nil)
	if err != nil {
		d.metrics.dials.WithLabelValues("error").Inc()
		return false, fmt.Errorf("dialing %s: %w", d.opts.URL, err)
	}
	defer conn.Close()
	d.metrics.dials.WithLabelValues("ok").Inc()
	d.l.Info("Connected to telemetry", zap.String("url", d.opts.URL))
	d.setStatus(Status{Mode: ModeLive, Source: d.opts.URL, Connected: true})

	// Unblock ReadMessage on shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteMessage(websocket.TextMessage, subscribeMessage); err != nil {
		return true, fmt.Errorf("subscribing: %w", err)
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("reading: %w", err)
		}
		batch, dropped, err := DecodeMessage(data)
		if err != nil {
			d.metrics.messages.WithLabelValues("malformed").Inc()
			d.l.Debug("Dropping telemetry message", zap.Error(err))
			continue
		}
		d.metrics.messages.WithLabelValues("ok").Inc()
		if dropped > 0 {
			d.metrics.dropped.Add(float64(dropped))
			d.l.Debug("Dropped non-numeric values", zap.Int("count", dropped))
		}
		if !d.deliver(ctx, batch) {
			return true, ctx.Err()
		}
	}
}
