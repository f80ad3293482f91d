package proposal

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

var proposalColumns = []string{
	"id",
	"original_allocation_id",
	"proposed_resource_id",
	"start_time",
	"end_time",
	"status",
	"reason",
	"deadline",
	"replacement_allocation_id",
	"created_at",
	"updated_at",
}

// Repository репозиторий предложений переназначения
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория предложений
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает предложение переназначения
func (r *Repository) Create(ctx context.Context, p *domain.ReassignmentProposal) (*domain.ReassignmentProposal, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("reassignment_proposals").
		Columns(
			"id",
			"original_allocation_id",
			"proposed_resource_id",
			"start_time",
			"end_time",
			"status",
			"reason",
			"deadline",
		).
		Values(
			p.ID,
			p.OriginalAllocationID,
			p.ProposedResourceID,
			p.ProposedInterval.Start,
			p.ProposedInterval.End,
			p.Status,
			p.Reason,
			p.Deadline,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time

	return p, nil
}

// GetByID получает предложение по ID
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.ReassignmentProposal, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(proposalColumns...).
		From("reassignment_proposals").
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	row := executor.QueryRowContext(ctx, query, args...)

	p, err := r.scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan proposal: %v", ErrScanRow, err)
	}

	return p, nil
}

// FindOpenByAllocation находит открытое (PROPOSED) предложение для allocation
func (r *Repository) FindOpenByAllocation(ctx context.Context, allocationID int64) (*domain.ReassignmentProposal, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(proposalColumns...).
		From("reassignment_proposals").
		Where(squirrel.Eq{"original_allocation_id": allocationID}).
		Where(squirrel.Eq{"status": domain.ProposalStatusProposed})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindOpenByAllocation - build select query: %v", ErrBuildQuery, err)
	}

	row := executor.QueryRowContext(ctx, query, args...)

	p, err := r.scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: FindOpenByAllocation - scan proposal: %v", ErrScanRow, err)
	}

	return p, nil
}

// FindExpired находит PROPOSED предложения с истекшим deadline для зачистки
func (r *Repository) FindExpired(ctx context.Context, now time.Time, limit uint64) ([]*domain.ReassignmentProposal, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(proposalColumns...).
		From("reassignment_proposals").
		Where(squirrel.Eq{"status": domain.ProposalStatusProposed}).
		Where(squirrel.Lt{"deadline": now}).
		OrderBy("deadline ASC").
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

	proposals := make([]*domain.ReassignmentProposal, 0)

	for rows.Next() {
		p, err := r.scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: FindExpired - scan row: %v", ErrScanRow, err)
		}
		proposals = append(proposals, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: FindExpired - rows error: %v", ErrScanRow, err)
	}

	return proposals, nil
}

// UpdateStatus обновляет статус предложения
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.ProposalStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("reassignment_proposals").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffectingOne(ctx, executor, query, args, "UpdateStatus")
}

// MarkAccepted переводит предложение в ACCEPTED со ссылкой на замещающий allocation.
// Срабатывает только на открытом предложении
func (r *Repository) MarkAccepted(ctx context.Context, id string, replacementAllocationID int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("reassignment_proposals").
		Set("status", domain.ProposalStatusAccepted).
		Set("replacement_allocation_id", replacementAllocationID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": domain.ProposalStatusProposed}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: MarkAccepted - build update query: %v", ErrBuildQuery, err)
	}

	return r.execAffectingOne(ctx, executor, query, args, "MarkAccepted")
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
		return ErrProposalNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanProposal(row rowScanner) (*domain.ReassignmentProposal, error) {
	var p domain.ReassignmentProposal
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.OriginalAllocationID,
		&p.ProposedResourceID,
		&p.ProposedInterval.Start,
		&p.ProposedInterval.End,
		&p.Status,
		&p.Reason,
		&p.Deadline,
		&p.ReplacementAllocationID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		return nil, err
	}

	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time

	return &p, nil
}
