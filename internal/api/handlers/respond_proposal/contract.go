package respond_proposal

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

type ReassignmentService interface {
	Respond(ctx context.Context, proposalID string, accept bool, actorID string) (*domain.ReassignmentProposal, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
