package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull очередь уведомлений переполнена, сообщение отброшено
var ErrQueueFull = errors.New("notification queue is full")

// ErrStopped диспетчер уже остановлен
var ErrStopped = errors.New("notification dispatcher is stopped")

// Dispatcher доставляет уведомления в фоне, не задерживая вызывающего
type Dispatcher struct {
	next    Notifier
	queue   chan Message
	workers int
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher создаёт диспетчер с очередью size и workers обработчиками
func NewDispatcher(next Notifier, size, workers int, logger *zap.Logger) *Dispatcher {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}

	return &Dispatcher{
		next:    next,
		queue:   make(chan Message, size),
		workers: workers,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

// Start запускает обработчики очереди
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting notification dispatcher", zap.Int("workers", d.workers))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Stop закрывает очередь и ждёт доставки уже принятых сообщений
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.logger.Info("Stopping notification dispatcher")
	d.wg.Wait()
}

// Notify ставит сообщение в очередь и сразу возвращается
func (d *Dispatcher) Notify(_ context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.Warn("Notification queue is full, dropping message",
			zap.String("notification_id", msg.ID.String()),
			zap.String("recipient", msg.Recipient))
		return ErrQueueFull
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for msg := range d.queue {
		d.deliver(ctx, msg)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	// Доставка не зависит от отмены контекста запроса или остановки сервера
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.next.Notify(ctx, msg); err != nil {
		d.logger.Error("Failed to deliver notification",
			zap.String("notification_id", msg.ID.String()),
			zap.String("recipient", msg.Recipient),
			zap.Error(err))
	}
}
