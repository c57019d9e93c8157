package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/docsearch-labs/document-search-platform/pkg/kafka"
	"github.com/docsearch-labs/document-search-platform/pkg/resilience"
)

// publishRetry bounds how long a transient broker error can stall the
// publishing goroutine. Events keep buffering in the channel meanwhile.
var publishRetry = resilience.RetryConfig{
	MaxAttempts:  2,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     500 * time.Millisecond,
}

// Collector buffers events in a channel and publishes them to Kafka from a
// single background goroutine. Track never blocks the request path: when
// the buffer is full the event is dropped with a warning. In-flight
// handlers may still call Track while the server drains during shutdown;
// the mutex keeps those calls from racing the channel close.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan any
	logger   *slog.Logger
	done     chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCollector creates a Collector with the given buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan any, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the publishing goroutine. It drains remaining buffered
// events when ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				if err := c.publish(ctx, event); err != nil {
					c.logger.Error("failed to publish analytics event", "error", err)
				}
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event without blocking. Events arriving after Close
// are dropped.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the publishing goroutine to
// exit. Safe to call once; further Track calls become no-ops.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event any) error {
	return resilience.Retry(ctx, "analytics-publish", publishRetry, func() error {
		return c.producer.Publish(ctx, kafka.Event{
			Key:   "analytics",
			Value: event,
		})
	})
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			if err := c.publish(context.Background(), event); err != nil {
				c.logger.Error("failed to publish remaining event", "error", err)
			}
		default:
			return
		}
	}
}
