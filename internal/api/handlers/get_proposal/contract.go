package get_proposal

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

type ReassignmentService interface {
	GetByID(ctx context.Context, id string) (*domain.ReassignmentProposal, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
