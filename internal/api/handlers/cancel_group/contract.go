package cancel_group

import (
	"context"

	allocationsSvc "github.com/m04kA/SMC-SchedulingService/internal/service/allocations"
)

type AllocationsService interface {
	CancelGroup(ctx context.Context, groupID, actorID, reason string) ([]allocationsSvc.GroupItemResult, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
