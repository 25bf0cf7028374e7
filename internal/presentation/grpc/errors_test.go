package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"validation", lenderr.Validation("amount", "must be positive"), codes.InvalidArgument},
		{"not found", lenderr.NotFound("loan", "L-1"), codes.NotFound},
		{"wrapped state conflict", fmt.Errorf("waive: %w", lenderr.StateConflict("loan is PAID")), codes.FailedPrecondition},
		{"consistency", lenderr.Consistency("totals drifted"), codes.Internal},
		{"canceled", fmt.Errorf("load: %w", context.Canceled), codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"unclassified", errors.New("pool exhausted"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toStatus(tt.err)
			assert.Equal(t, tt.want, status.Code(got))
			assert.Contains(t, status.Convert(got).Message(), tt.err.Error())
		})
	}
}
