// Package dispatcher routes pipe-separated console commands, such as
// ":SET:EPICENTER:" or ":METRIC:", to their registered handlers.
// Handlers run synchronously by default; latency-tolerant commands can
// opt into a buffered queue so the frame loop never waits on them.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is a single parsed command line.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc executes a command and returns its result.
type HandlerFunc func(Event) (any, error)

// Logger is the minimal logging surface the dispatcher needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures how a handler is registered.
type Option func(*regConfig)

type regConfig struct {
	queueSize int
	blocking  bool
	logged    bool
}

// Buffered runs the handler on its own goroutine behind a queue of the
// given capacity. Dispatch returns "queued" immediately.
func Buffered(size int) Option {
	return func(c *regConfig) { c.queueSize = size }
}

// Blocking makes a Buffered handler wait for queue space instead of
// dropping the event.
func Blocking() Option {
	return func(c *regConfig) { c.blocking = true }
}

// Logged wraps the handler with debug/error logging and timing.
func Logged() Option {
	return func(c *regConfig) { c.logged = true }
}

// Dispatcher maps command names to handlers and reports queue health
// through OTel metrics.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueDepth metric.Int64ObservableGauge
	processed  metric.Int64Counter
	dropped    metric.Int64Counter

	mu     sync.RWMutex
	queues map[string]chan Event
}

// New builds a Dispatcher. Metrics come from the global OTel meter,
// which is a no-op unless a provider has been installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.initMetrics(meter()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) initMetrics(m metric.Meter) error {
	var err error
	if d.queueDepth, err = m.Int64ObservableGauge(
		"quakesim.command.queue.depth",
		metric.WithDescription("Events waiting in each buffered command queue"),
	); err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}
	if _, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, q := range d.queues {
			o.ObserveInt64(d.queueDepth, int64(len(q)),
				metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, d.queueDepth); err != nil {
		return fmt.Errorf("registering queue depth callback: %w", err)
	}
	if d.processed, err = m.Int64Counter(
		"quakesim.commands.processed",
		metric.WithDescription("Commands handled to completion"),
	); err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}
	if d.dropped, err = m.Int64Counter(
		"quakesim.commands.dropped",
		metric.WithDescription("Commands rejected because their queue was full"),
	); err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}
	return nil
}

// Register installs a handler for command. Options are applied
// innermost-first: a Buffered Logged handler logs the enqueue, not the
// eventual execution.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &regConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.queueSize > 0 {
		h = d.enqueueing(command, cfg.queueSize, cfg.blocking, h)
	}
	if cfg.logged {
		h = d.logging(command, h)
	}
	d.handlers[command] = h
}

// Dispatch runs the handler registered for the event's command.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(e)
}

// HasHandler reports whether command has been registered.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

func (d *Dispatcher) enqueueing(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := make(chan Event, size)

	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("command", command))
	go func() {
		for e := range q {
			h(e)
			d.processed.Add(context.Background(), 1, attrs)
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			q <- e
			return "queued", nil
		}
	}
	return func(e Event) (any, error) {
		select {
		case q <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) logging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args))
		result, err := h(e)
		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		}
		return result, err
	}
}
