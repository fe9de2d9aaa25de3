package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{Workers: 4, QueueSize: 256, SendTimeout: 10 * time.Second}
}

// Dispatcher queues messages for a fixed pool of workers. Notify never
// blocks: when the queue is full or the dispatcher is closed the message is
// dropped, logged and counted.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	metrics *Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	group  errgroup.Group
}

func NewDispatcher(sender Sender, logger *slog.Logger, metrics *Metrics, cfg DispatcherConfig) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}

	d := &Dispatcher{
		sender:  sender,
		logger:  logger,
		metrics: metrics,
		timeout: cfg.SendTimeout,
		queue:   make(chan Message, cfg.QueueSize),
	}

	for range cfg.Workers {
		d.group.Go(d.work)
	}

	return d
}

func (d *Dispatcher) Notify(ctx context.Context, to, subject, body string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, to, "dispatcher closed")
		return
	}

	select {
	case d.queue <- Message{To: to, Subject: subject, Body: body}:
	default:
		d.drop(ctx, to, "queue full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, to, reason string) {
	d.logger.WarnContext(ctx, "notification dropped", "to", to, "reason", reason)
	d.metrics.RecordNotification(ctx, StatusDropped)
}

func (d *Dispatcher) work() error {
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sender.Send(ctx, msg)
		cancel()

		if err != nil {
			d.logger.Error("notification failed", "to", msg.To, "subject", msg.Subject, "error", err)
			d.metrics.RecordNotification(context.Background(), StatusFailed)
			continue
		}
		d.metrics.RecordNotification(context.Background(), StatusSent)
	}
	return nil
}

// Close stops accepting messages and waits until the queued ones are sent.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	return d.group.Wait()
}
