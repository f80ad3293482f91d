package outbox

import (
	"context"
	"encoding/json"
	"fmt"
)

const dispatchBatchSize = 100

// Publisher доставляет события наружу (брокер, webhook и т.п.)
type Publisher interface {
	Publish(ctx context.Context, eventName, aggregateID string, payload json.RawMessage) error
}

// TransactionManager управляет транзакциями диспетчера
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// MetricsCollector интерфейс для метрик доставки
type MetricsCollector interface {
	ObserveOutboxDispatch(event, status string)
}

// Dispatcher периодически вычитывает недоставленные события outbox
// и передает их Publisher. Запускается по cron-расписанию из main
type Dispatcher struct {
	repo      *Repository
	txManager TransactionManager
	publisher Publisher
	logger    Logger
	metrics   MetricsCollector
}

// NewDispatcher создает новый диспетчер outbox
func NewDispatcher(repo *Repository, txManager TransactionManager, publisher Publisher, logger Logger, metrics MetricsCollector) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		txManager: txManager,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Dispatch обрабатывает одну пачку недоставленных событий.
// Сообщение помечается доставленным только после успешной публикации;
// упавшая публикация прерывает пачку и будет повторена следующим запуском
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	var dispatched int

	err := d.txManager.Do(ctx, func(ctx context.Context) error {
		messages, err := d.repo.FetchUndispatched(ctx, dispatchBatchSize)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			if err := d.publisher.Publish(ctx, msg.EventName, msg.AggregateID, msg.Payload); err != nil {
				d.observe(msg.EventName, "error")
				return fmt.Errorf("publish %s (outbox id=%d): %w", msg.EventName, msg.ID, err)
			}

			if err := d.repo.MarkDispatched(ctx, msg.ID); err != nil {
				return err
			}

			d.observe(msg.EventName, "success")
			dispatched++
		}

		return nil
	})

	if err != nil {
		return dispatched, err
	}

	return dispatched, nil
}

// Метрики опциональны: диспетчер работает и без коллектора
func (d *Dispatcher) observe(event, status string) {
	if d.metrics != nil {
		d.metrics.ObserveOutboxDispatch(event, status)
	}
}

// Run точка входа для cron: логирует результат вместо возврата ошибки
func (d *Dispatcher) Run(ctx context.Context) {
	n, err := d.Dispatch(ctx)
	if err != nil {
		d.logger.Error("outbox: dispatch failed after %d messages: %v", n, err)
		return
	}
	if n > 0 {
		d.logger.Info("outbox: dispatched %d messages", n)
	}
}
