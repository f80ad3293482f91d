package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

// Message недоставленная запись outbox
type Message struct {
	ID          int64
	EventName   string
	AggregateID string
	Payload     json.RawMessage
	CreatedAt   sql.NullTime
}

// Repository транзакционный outbox: события пишутся в той же транзакции,
// что и изменение данных, и доставляются отдельным диспетчером
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория outbox
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Append добавляет событие в outbox. Вызывается внутри транзакции бизнес-операции,
// чтобы событие фиксировалось атомарно с изменением данных
func (r *Repository) Append(ctx context.Context, event domain.Event) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: Append - marshal %s: %v", ErrMarshalPayload, event.EventName(), err)
	}

	query, args, err := psqlbuilder.Insert("outbox_messages").
		Columns("event_name", "aggregate_id", "payload", "created_at").
		Values(event.EventName(), event.AggregateID(), payload, event.OccurredAt()).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Append - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Append - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// FetchUndispatched выбирает недоставленные сообщения в порядке записи.
// SKIP LOCKED позволяет нескольким инстансам диспетчера не толкаться
func (r *Repository) FetchUndispatched(ctx context.Context, limit uint64) ([]*Message, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "event_name", "aggregate_id", "payload", "created_at").
		From("outbox_messages").
		Where(squirrel.Eq{"dispatched_at": nil}).
		OrderBy("id ASC").
		Limit(limit).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: FetchUndispatched - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FetchUndispatched - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	messages := make([]*Message, 0)

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.EventName, &m.AggregateID, &m.Payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: FetchUndispatched - scan row: %v", ErrScanRow, err)
		}
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: FetchUndispatched - rows error: %v", ErrScanRow, err)
	}

	return messages, nil
}

// MarkDispatched помечает сообщение доставленным
func (r *Repository) MarkDispatched(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("outbox_messages").
		Set("dispatched_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkDispatched - build update query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: MarkDispatched - execute update: %v", ErrExecQuery, err)
	}

	return nil
}
