package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
)

// Store applies each ledger mutation as a single atomic conditional update.
// Implementations return domain.ErrWriteConflict when a concurrent writer
// won the race, *domain.ShortfallError when stock cannot cover a request,
// and the other domain sentinels for missing rows or wrong reservation state.
type Store interface {
	Hold(ctx context.Context, r domain.Reservation) error
	Release(ctx context.Context, token string) (released bool, err error)
	Commit(ctx context.Context, token string) (*domain.Reservation, error)
	Restore(ctx context.Context, token string) (*domain.Reservation, error)
	SetQuantity(ctx context.Context, productID int, quantity int) error
	FindReservation(ctx context.Context, token string) (*domain.Reservation, error)
	ListHeldBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error)
}

// LedgerService is the only writer of product quantity and hold quantity.
type LedgerService struct {
	store            Store
	logger           *zap.Logger
	maxRetryAttempts int
	backoff          time.Duration
	now              func() time.Time
}

func NewLedgerService(store Store, logger *zap.Logger, maxRetryAttempts int, backoff time.Duration) *LedgerService {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &LedgerService{
		store:            store,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		backoff:          backoff,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Reserve places a hold of quantity units on productID and returns its token.
func (s *LedgerService) Reserve(ctx context.Context, productID int, quantity int) (*domain.Reservation, error) {
	if quantity <= 0 {
		return nil, apperrors.NewInvalidQuantityError(fmt.Sprintf("reservation quantity must be positive, got %d", quantity))
	}

	now := s.now()
	r := domain.Reservation{
		Token:     uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
		Status:    domain.ReservationHeld,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.withRetry(ctx, "reserve", func() error {
		return s.store.Hold(ctx, r)
	})
	if err != nil {
		return nil, s.translate(err, productID)
	}

	s.logger.Info("stock reserved",
		zap.String("token", r.Token), zap.Int("productId", productID), zap.Int("quantity", quantity))
	return &r, nil
}

// Release drops a hold. Tokens that are unknown or no longer held are ignored,
// so callers may release the same token any number of times.
func (s *LedgerService) Release(ctx context.Context, token string) error {
	var released bool
	err := s.withRetry(ctx, "release", func() error {
		var err error
		released, err = s.store.Release(ctx, token)
		return err
	})
	if errors.Is(err, domain.ErrReservationNotFound) {
		s.logger.Debug("release of unknown reservation ignored", zap.String("token", token))
		return nil
	}
	if err != nil {
		return s.translate(err, 0)
	}

	if released {
		s.logger.Info("stock hold released", zap.String("token", token))
	} else {
		s.logger.Debug("release of settled reservation ignored", zap.String("token", token))
	}
	return nil
}

// Commit turns a hold into a sale: quantity and hold quantity both drop by
// the reserved amount.
func (s *LedgerService) Commit(ctx context.Context, token string) (*domain.Reservation, error) {
	var r *domain.Reservation
	err := s.withRetry(ctx, "commit", func() error {
		var err error
		r, err = s.store.Commit(ctx, token)
		return err
	})
	if errors.Is(err, domain.ErrReservationNotFound) || errors.Is(err, domain.ErrReservationNotHeld) {
		return nil, apperrors.NewReservationExpiredError(token)
	}
	if err != nil {
		return nil, s.translate(err, 0)
	}

	s.logger.Info("stock committed",
		zap.String("token", token), zap.Int("productId", r.ProductID), zap.Int("quantity", r.Quantity))
	return r, nil
}

// Restore puts the quantity of a committed reservation back on the shelf.
// Restoring an already restored reservation is a no-op.
func (s *LedgerService) Restore(ctx context.Context, token string) error {
	var r *domain.Reservation
	err := s.withRetry(ctx, "restore", func() error {
		var err error
		r, err = s.store.Restore(ctx, token)
		return err
	})
	if errors.Is(err, domain.ErrReservationNotFound) {
		return apperrors.NewNotFoundError(fmt.Sprintf("reservation %s not found", token))
	}
	if errors.Is(err, domain.ErrReservationNotHeld) {
		return apperrors.NewConflictError(fmt.Sprintf("reservation %s was never committed", token))
	}
	if err != nil {
		return s.translate(err, 0)
	}

	s.logger.Warn("committed stock restored",
		zap.String("token", token), zap.Int("productId", r.ProductID), zap.Int("quantity", r.Quantity))
	return nil
}

// AdminSetQuantity overwrites the physical stock count. Holds are untouched.
func (s *LedgerService) AdminSetQuantity(ctx context.Context, productID int, quantity int) error {
	if quantity < 0 {
		return apperrors.NewInvalidQuantityError(fmt.Sprintf("quantity must be non-negative, got %d", quantity))
	}

	err := s.withRetry(ctx, "set-quantity", func() error {
		return s.store.SetQuantity(ctx, productID, quantity)
	})
	if err != nil {
		return s.translate(err, productID)
	}

	s.logger.Info("stock quantity set", zap.Int("productId", productID), zap.Int("quantity", quantity))
	return nil
}

func (s *LedgerService) Lookup(ctx context.Context, token string) (*domain.Reservation, error) {
	r, err := s.store.FindReservation(ctx, token)
	if errors.Is(err, domain.ErrReservationNotFound) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("reservation %s not found", token))
	}
	if err != nil {
		return nil, fmt.Errorf("looking up reservation: %w", err)
	}
	return r, nil
}

// ListStaleHolds returns up to limit reservations still held since before cutoff.
func (s *LedgerService) ListStaleHolds(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
	holds, err := s.store.ListHeldBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("listing stale holds: %w", err)
	}
	return holds, nil
}

func (s *LedgerService) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; attempt <= s.maxRetryAttempts; attempt++ {
		err := fn()
		if !errors.Is(err, domain.ErrWriteConflict) {
			return err
		}

		if attempt == s.maxRetryAttempts {
			break
		}

		s.logger.Warn("write conflict, retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Int("maxAttempts", s.maxRetryAttempts))

		if wait := s.backoffFor(attempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return apperrors.NewConflictError(fmt.Sprintf("%s: concurrent update retries exhausted after %d attempts", op, s.maxRetryAttempts))
}

// backoffFor grows linearly with the attempt number plus up to 20% jitter.
func (s *LedgerService) backoffFor(attempt int) time.Duration {
	if s.backoff <= 0 {
		return 0
	}
	base := s.backoff * time.Duration(attempt)
	return base + time.Duration(rand.Int63n(int64(base)/5+1))
}

func (s *LedgerService) translate(err error, productID int) error {
	var shortfall *domain.ShortfallError
	switch {
	case errors.As(err, &shortfall):
		return apperrors.NewInsufficientStockError(shortfall.ProductID, shortfall.Requested, shortfall.Available)
	case errors.Is(err, domain.ErrProductMissing):
		return apperrors.NewNotFoundError(fmt.Sprintf("product with id %d not found", productID))
	case apperrors.KindOf(err) != "":
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("stock ledger: %w", err)
}
