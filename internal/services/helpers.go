package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"
)

// translateStoreError переводит ошибки хранилища в доменные.
func translateStoreError(err error, notFoundMessage string) error {
	var errorResponse *models.ErrorResponse
	switch {
	case err == nil:
		return nil
	case errors.As(err, &errorResponse):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return models.NotFoundError(notFoundMessage)
	case errors.Is(err, repository.ErrOptimisticLock):
		return models.ConflictError("order was modified concurrently, retry the request")
	case errors.Is(err, repository.ErrDuplicateBid):
		return models.DuplicateBidError("you have already placed a bid on this order")
	case errors.Is(err, repository.ErrDuplicateUser):
		return models.ConflictError("email or token is already in use")
	}
	return err
}

// recordEvent пишет событие в outbox той же транзакции.
func recordEvent(ctx context.Context, outbox repository.OutboxRepository, event models.Event) error {
	event.OccurredAt = time.Now().UTC()
	if err := outbox.CreateOutbox(ctx, event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.Type, err)
	}
	return nil
}
