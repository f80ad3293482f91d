package check_availability

import (
	"context"

	checkAvailabilityUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/check_availability"
)

type AvailabilityUseCase interface {
	Execute(ctx context.Context, req *checkAvailabilityUC.Request) (*checkAvailabilityUC.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
