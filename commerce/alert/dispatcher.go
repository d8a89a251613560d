package alert

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	TaskTimeout time.Duration
}

// Dispatcher runs alert tasks on background workers. Enqueue never blocks:
// a sale reply must not wait on notification delivery.
type Dispatcher struct {
	queue   chan Task
	handler Handler
	workers int
	timeout time.Duration
}

func NewDispatcher(handler Handler, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 15 * time.Second
	}
	return &Dispatcher{
		queue:   make(chan Task, cfg.QueueSize),
		handler: handler,
		workers: cfg.Workers,
		timeout: cfg.TaskTimeout,
	}
}

// Enqueue hands task to the workers. It reports false when the queue is
// full and the task was dropped.
func (d *Dispatcher) Enqueue(task Task) bool {
	select {
	case d.queue <- task:
		return true
	default:
		log.Warn().
			Str("shop_id", task.ShopID.String()).
			Int("items", len(task.Products)).
			Msg("alert queue full, task dropped")
		return false
	}
}

// Run processes tasks until ctx is cancelled, then drains what is already
// queued and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case task := <-d.queue:
					d.process(task)
				}
			}
		})
	}
	err := g.Wait()

	for {
		select {
		case task := <-d.queue:
			d.process(task)
		default:
			return err
		}
	}
}

func (d *Dispatcher) process(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	logger := log.With().Str("shop_id", task.ShopID.String()).Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("alert task panicked")
		}
	}()

	if err := d.handler(ctx, task); err != nil {
		logger.Error().Err(err).Int("items", len(task.Products)).Msg("alert task failed")
	}
}
