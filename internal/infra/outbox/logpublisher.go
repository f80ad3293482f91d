package outbox

import (
	"context"
	"encoding/json"
)

// LogPublisher публикует события в лог. Используется, пока не подключен брокер
type LogPublisher struct {
	logger Logger
}

// NewLogPublisher создает publisher, пишущий события в лог
func NewLogPublisher(logger Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, eventName, aggregateID string, payload json.RawMessage) error {
	p.logger.Info("event %s aggregate=%s payload=%s", eventName, aggregateID, payload)
	return nil
}
