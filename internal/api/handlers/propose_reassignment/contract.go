package propose_reassignment

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

type ReassignmentService interface {
	Propose(ctx context.Context, originalID int64, candidateResourceIDs []string) (*domain.ReassignmentProposal, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
