package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
)

// toStatus maps lending error kinds onto gRPC codes. Consistency failures
// and anything unclassified are Internal.
func toStatus(err error) error {
	switch lenderr.KindOf(err) {
	case lenderr.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case lenderr.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case lenderr.KindStateConflict:
		return status.Error(codes.FailedPrecondition, err.Error())
	case lenderr.KindConsistency:
		return status.Error(codes.Internal, err.Error())
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
