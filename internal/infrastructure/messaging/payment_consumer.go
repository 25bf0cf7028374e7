package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	pkgkafka "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/kafka"
)

// PaymentPoster applies one incoming payment.
type PaymentPoster interface {
	Execute(ctx context.Context, req dto.PostPaymentRequest) (dto.PaymentResponse, error)
}

// PaymentHandler turns payment notifications into PostPayment calls.
type PaymentHandler struct {
	poster PaymentPoster
	logger *slog.Logger
}

func NewPaymentHandler(poster PaymentPoster, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{poster: poster, logger: logger}
}

// Handle is a pkgkafka.Handler. Malformed or rejected payments are logged
// and acknowledged; only transient failures are returned so the offset is
// not committed.
func (h *PaymentHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	var req dto.PostPaymentRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.logger.ErrorContext(ctx, "dropping malformed payment message", "key", string(msg.Key), "error", err)
		return nil
	}

	resp, err := h.poster.Execute(ctx, req)
	if err != nil {
		if permanent(err) {
			h.logger.ErrorContext(ctx, "payment rejected",
				"reference", req.Reference,
				"loan_id", req.LoanID,
				"holder_ref", req.HolderRef,
				"amount", req.Amount.String(),
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("post payment %s: %w", req.Reference, err)
	}

	h.logger.InfoContext(ctx, "payment consumed",
		"reference", resp.Reference,
		"loan_id", resp.LoanID,
		"applied", resp.Applied.String(),
		"suspended", resp.Suspended.String(),
	)
	return nil
}

func permanent(err error) bool {
	switch lenderr.KindOf(err) {
	case lenderr.KindValidation, lenderr.KindNotFound, lenderr.KindStateConflict:
		return true
	}
	return false
}
