package allocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

// Колонки таблицы allocations в порядке сканирования
var allocationColumns = []string{
	"id",
	"resource_id",
	"start_time",
	"end_time",
	"kind",
	"status",
	"priority",
	"requester_id",
	"recurrence_group_id",
	"parent_occurrence_id",
	"idempotency_key",
	"termination_reason",
	"terminated_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с allocation'ами
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория allocation'ов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новый allocation
// Если в контексте передана активная транзакция, использует её
func (r *Repository) Create(ctx context.Context, a *domain.Allocation) (*domain.Allocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("allocations").
		Columns(
			"resource_id",
			"start_time",
			"end_time",
			"kind",
			"status",
			"priority",
			"requester_id",
			"recurrence_group_id",
			"parent_occurrence_id",
			"idempotency_key",
		).
		Values(
			a.ResourceID,
			a.Interval.Start,
			a.Interval.End,
			a.Kind,
			a.Status,
			a.Priority,
			a.RequesterID,
			a.RecurrenceGroupID,
			a.ParentOccurrenceID,
			a.IdempotencyKey,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&a.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, ErrDuplicateIdempotencyKey
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return a, nil
}

// GetByID получает allocation по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Allocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(allocationColumns...).
		From("allocations").
		Where(squirrel.Eq{"id": id})

	// Внутри транзакции блокируем строку на время перехода статуса
	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	return r.scanAllocation(executor.QueryRowContext(ctx, query, args...), "GetByID")
}

// GetByIdempotencyKey получает allocation по ключу идемпотентности
// Используется для повторов requestAllocation на стороне вызывающего
func (r *Repository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Allocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(allocationColumns...).
		From("allocations").
		Where(squirrel.Eq{"idempotency_key": key}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByIdempotencyKey - build select query: %v", ErrBuildQuery, err)
	}

	return r.scanAllocation(executor.QueryRowContext(ctx, query, args...), "GetByIdempotencyKey")
}

// FindBlocking находит allocation'ы, занимающие слоты ресурса в интервале
// Возвращаются только блокирующие статусы (CONFIRMED/IN_PROGRESS/SCHEDULED),
// пересечение считается по полуоткрытым интервалам: start < end' && start' < end.
// Выборка идет по индексу (resource_id, start_time); внутри транзакции строки
// блокируются FOR UPDATE, чтобы проверка конфликтов и вставка были атомарными
func (r *Repository) FindBlocking(ctx context.Context, resourceID string, interval domain.Interval, excludeID *int64) ([]*domain.Allocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(allocationColumns...).
		From("allocations").
		Where(squirrel.Eq{"resource_id": resourceID}).
		Where(squirrel.Eq{"status": statusStrings(domain.BlockingStatuses)}).
		Where(squirrel.Lt{"start_time": interval.End}).
		Where(squirrel.Gt{"end_time": interval.Start}).
		OrderBy("start_time ASC")

	if excludeID != nil {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"id": *excludeID})
	}

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindBlocking - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindBlocking - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanAllocations(rows)
}

// FindPendingOverlapping находит бронирования в PENDING_APPROVAL, пересекающие интервал
// Используется политикой обслуживания: maintenance вытесняет неподтвержденные заявки
func (r *Repository) FindPendingOverlapping(ctx context.Context, resourceID string, interval domain.Interval) ([]*domain.Allocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(allocationColumns...).
		From("allocations").
		Where(squirrel.Eq{"resource_id": resourceID}).
		Where(squirrel.Eq{"kind": domain.KindReservation}).
		Where(squirrel.Eq{"status": domain.StatusPendingApproval}).
		Where(squirrel.Lt{"start_time": interval.End}).
		Where(squirrel.Gt{"end_time": interval.Start}).
		OrderBy("start_time ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindPendingOverlapping - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindPendingOverlapping - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanAllocations(rows)
}

// GetByGroupID получает все occurrence'ы recurrence-группы
func (r *Repository) GetByGroupID(ctx context.Context, groupID string) ([]*domain.Allocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(allocationColumns...).
		From("allocations").
		Where(squirrel.Eq{"recurrence_group_id": groupID}).
		OrderBy("start_time ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByGroupID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByGroupID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanAllocations(rows)
}

// ListByResource получает allocation'ы ресурса с гибкой фильтрацией
// по периоду, типу и статусу; терминальные исключаются по умолчанию
func (r *Repository) ListByResource(ctx context.Context, filter domain.ResourceAllocationsFilter) ([]*domain.Allocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(allocationColumns...).
		From("allocations").
		Where(squirrel.Eq{"resource_id": filter.ResourceID}).
		OrderBy("start_time ASC")

	if filter.From != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"end_time": *filter.From})
	}
	if filter.To != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"start_time": *filter.To})
	}
	if filter.Kind != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"kind": *filter.Kind})
	}

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	} else if !filter.IncludeTerminal {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": statusStrings(domain.TerminalStatuses)})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByResource - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByResource - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanAllocations(rows)
}

// FindConfirmedStartedBefore находит подтвержденные бронирования,
// чье время начала прошло. Используется зачисткой no-check-in
func (r *Repository) FindConfirmedStartedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Allocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(allocationColumns...).
		From("allocations").
		Where(squirrel.Eq{"kind": domain.KindReservation}).
		Where(squirrel.Eq{"status": domain.StatusConfirmed}).
		Where(squirrel.Lt{"start_time": cutoff}).
		OrderBy("start_time ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: FindConfirmedStartedBefore - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindConfirmedStartedBefore - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanAllocations(rows)
}

// UpdateStatus обновляет статус allocation'а
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.AllocationStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("allocations").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffectingOne(ctx, executor, query, args, "UpdateStatus")
}

// Terminate переводит allocation в терминальный статус с причиной
// Физическое удаление не используется - история нужна внешнему аудиту
func (r *Repository) Terminate(ctx context.Context, id int64, status domain.AllocationStatus, reason string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("allocations").
		Set("status", status).
		Set("termination_reason", reason).
		Set("terminated_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Terminate - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffectingOne(ctx, executor, query, args, "Terminate")
}

// UpdateInterval обновляет интервал allocation'а (перенос обслуживания)
func (r *Repository) UpdateInterval(ctx context.Context, id int64, interval domain.Interval) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("allocations").
		Set("start_time", interval.Start).
		Set("end_time", interval.End).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateInterval - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffectingOne(ctx, executor, query, args, "UpdateInterval")
}

func (r *Repository) execAffectingOne(ctx context.Context, executor DBExecutor, query string, args []interface{}, op string) error {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	if rowsAffected == 0 {
		return ErrAllocationNotFound
	}

	return nil
}

func (r *Repository) scanAllocation(row *sql.Row, op string) (*domain.Allocation, error) {
	var a domain.Allocation
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.ResourceID,
		&a.Interval.Start,
		&a.Interval.End,
		&a.Kind,
		&a.Status,
		&a.Priority,
		&a.RequesterID,
		&a.RecurrenceGroupID,
		&a.ParentOccurrenceID,
		&a.IdempotencyKey,
		&a.TerminationReason,
		&a.TerminatedAt,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrAllocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan allocation: %v", ErrScanRow, op, err)
	}

	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}

// scanAllocations сканирует результаты запроса в слайс allocation'ов
func (r *Repository) scanAllocations(rows *sql.Rows) ([]*domain.Allocation, error) {
	allocations := make([]*domain.Allocation, 0)

	for rows.Next() {
		var a domain.Allocation
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(
			&a.ID,
			&a.ResourceID,
			&a.Interval.Start,
			&a.Interval.End,
			&a.Kind,
			&a.Status,
			&a.Priority,
			&a.RequesterID,
			&a.RecurrenceGroupID,
			&a.ParentOccurrenceID,
			&a.IdempotencyKey,
			&a.TerminationReason,
			&a.TerminatedAt,
			&createdAt,
			&updatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("%w: scanAllocations - scan row: %v", ErrScanRow, err)
		}

		a.CreatedAt = createdAt.Time
		a.UpdatedAt = updatedAt.Time

		allocations = append(allocations, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanAllocations - rows error: %v", ErrScanRow, err)
	}

	return allocations, nil
}

func statusStrings(statuses []domain.AllocationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
