package waitlist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

var entryColumns = []string{
	"id",
	"resource_id",
	"start_time",
	"end_time",
	"requester_id",
	"priority",
	"position",
	"status",
	"promoted_allocation_id",
	"enqueued_at",
	"expires_at",
	"updated_at",
}

// Repository репозиторий листа ожидания
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория листа ожидания
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает запись листа ожидания
func (r *Repository) Create(ctx context.Context, e *domain.WaitlistEntry) (*domain.WaitlistEntry, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("waitlist_entries").
		Columns(
			"id",
			"resource_id",
			"start_time",
			"end_time",
			"requester_id",
			"priority",
			"position",
			"status",
			"enqueued_at",
			"expires_at",
		).
		Values(
			e.ID,
			e.ResourceID,
			e.RequestedInterval.Start,
			e.RequestedInterval.End,
			e.RequesterID,
			e.Priority,
			e.Position,
			e.Status,
			e.EnqueuedAt,
			e.ExpiresAt,
		).
		Suffix("RETURNING updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var updatedAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&updatedAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	e.UpdatedAt = updatedAt.Time

	return e, nil
}

// GetByID получает запись по ID
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.WaitlistEntry, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(entryColumns...).
		From("waitlist_entries").
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var e domain.WaitlistEntry
	var updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&e.ID,
		&e.ResourceID,
		&e.RequestedInterval.Start,
		&e.RequestedInterval.End,
		&e.RequesterID,
		&e.Priority,
		&e.Position,
		&e.Status,
		&e.PromotedAllocationID,
		&e.EnqueuedAt,
		&e.ExpiresAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan entry: %v", ErrScanRow, err)
	}

	e.UpdatedAt = updatedAt.Time

	return &e, nil
}

// FindWaitingByResource получает WAITING записи ресурса в порядке промоушена:
// приоритет по убыванию, при равенстве - раньше вставшие в очередь
func (r *Repository) FindWaitingByResource(ctx context.Context, resourceID string) ([]*domain.WaitlistEntry, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(entryColumns...).
		From("waitlist_entries").
		Where(squirrel.Eq{"resource_id": resourceID}).
		Where(squirrel.Eq{"status": domain.WaitlistStatusWaiting}).
		OrderBy("priority DESC", "enqueued_at ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindWaitingByResource - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindWaitingByResource - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanEntries(rows)
}

// HasOverlappingWaiting проверяет, есть ли у заявителя WAITING запись
// с пересекающимся интервалом на этом ресурсе (защита от дублей)
func (r *Repository) HasOverlappingWaiting(ctx context.Context, resourceID, requesterID string, interval domain.Interval) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("waitlist_entries").
		Where(squirrel.Eq{"resource_id": resourceID}).
		Where(squirrel.Eq{"requester_id": requesterID}).
		Where(squirrel.Eq{"status": domain.WaitlistStatusWaiting}).
		Where(squirrel.Lt{"start_time": interval.End}).
		Where(squirrel.Gt{"end_time": interval.Start}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: HasOverlappingWaiting - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: HasOverlappingWaiting - scan count: %v", ErrScanRow, err)
	}

	return count > 0, nil
}

// CountWaiting возвращает число WAITING записей на ресурс (для проверки лимита)
func (r *Repository) CountWaiting(ctx context.Context, resourceID string) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("waitlist_entries").
		Where(squirrel.Eq{"resource_id": resourceID}).
		Where(squirrel.Eq{"status": domain.WaitlistStatusWaiting}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: CountWaiting - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountWaiting - scan count: %v", ErrScanRow, err)
	}

	return count, nil
}

// FindExpired находит WAITING записи с истекшим expires_at для зачистки
func (r *Repository) FindExpired(ctx context.Context, now time.Time, limit uint64) ([]*domain.WaitlistEntry, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(entryColumns...).
		From("waitlist_entries").
		Where(squirrel.Eq{"status": domain.WaitlistStatusWaiting}).
		Where(squirrel.Lt{"expires_at": now}).
		OrderBy("expires_at ASC").
		Limit(limit).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: FindExpired - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FindExpired - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanEntries(rows)
}

// UpdateStatus обновляет статус записи
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.WaitlistStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("waitlist_entries").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffectingOne(ctx, executor, query, args, "UpdateStatus")
}

// MarkPromoted переводит запись в PROMOTED со ссылкой на созданный allocation
func (r *Repository) MarkPromoted(ctx context.Context, id string, allocationID int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("waitlist_entries").
		Set("status", domain.WaitlistStatusPromoted).
		Set("promoted_allocation_id", allocationID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": domain.WaitlistStatusWaiting}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkPromoted - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffectingOne(ctx, executor, query, args, "MarkPromoted")
}

func (r *Repository) execAffectingOne(ctx context.Context, executor dbmetrics.DBExecutor, query string, args []interface{}, op string) error {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	if rowsAffected == 0 {
		return ErrEntryNotFound
	}

	return nil
}

func (r *Repository) scanEntries(rows *sql.Rows) ([]*domain.WaitlistEntry, error) {
	entries := make([]*domain.WaitlistEntry, 0)

	for rows.Next() {
		var e domain.WaitlistEntry
		var updatedAt sql.NullTime

		err := rows.Scan(
			&e.ID,
			&e.ResourceID,
			&e.RequestedInterval.Start,
			&e.RequestedInterval.End,
			&e.RequesterID,
			&e.Priority,
			&e.Position,
			&e.Status,
			&e.PromotedAllocationID,
			&e.EnqueuedAt,
			&e.ExpiresAt,
			&updatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("%w: scanEntries - scan row: %v", ErrScanRow, err)
		}

		e.UpdatedAt = updatedAt.Time

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanEntries - rows error: %v", ErrScanRow, err)
	}

	return entries, nil
}
