// Package memory is an in-process ledger store. It applies the same
// optimistic compare-and-swap discipline as the MySQL store: every mutation
// reads a versioned snapshot, computes the new state and swaps it in only if
// the version is unchanged.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"tradeflow/internal/domain"
)

var errAlreadySettled = errors.New("reservation already settled")

type productState struct {
	quantity int
	hold     int
	deleted  bool
	version  uint64
}

type Store struct {
	mu           sync.Mutex
	products     map[int]productState
	reservations map[string]domain.Reservation
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		products:     make(map[int]productState),
		reservations: make(map[string]domain.Reservation),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Seed registers a product's stock counters.
func (s *Store) Seed(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = productState{quantity: p.Quantity, hold: p.HoldQuantity, deleted: p.IsDeleted}
}

// Stock returns the current quantity and hold quantity of a product.
func (s *Store) Stock(productID int) (quantity, hold int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.products[productID]
	return st.quantity, st.hold, ok
}

func (s *Store) snapshot(productID int) (productState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.products[productID]
	if !ok || st.deleted {
		return productState{}, false
	}
	return st, true
}

// state returns the counters of a product whether or not it is deleted;
// settling existing reservations must keep working after a soft delete.
func (s *Store) state(productID int) productState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID]
}

func (s *Store) reservation(token string) (domain.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[token]
	return r, ok
}

// swap installs next for productID when its version still equals seen, and
// runs apply under the same critical section.
func (s *Store) swap(productID int, seen uint64, next productState, apply func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.products[productID]
	if current.version != seen {
		return domain.ErrWriteConflict
	}
	if apply != nil {
		if err := apply(); err != nil {
			return err
		}
	}
	next.version = seen + 1
	s.products[productID] = next
	return nil
}

func (s *Store) Hold(_ context.Context, r domain.Reservation) error {
	st, ok := s.snapshot(r.ProductID)
	if !ok {
		return domain.ErrProductMissing
	}

	available := st.quantity - st.hold
	if r.Quantity > available {
		return &domain.ShortfallError{ProductID: r.ProductID, Requested: r.Quantity, Available: max(available, 0)}
	}

	next := st
	next.hold += r.Quantity
	return s.swap(r.ProductID, st.version, next, func() error {
		s.reservations[r.Token] = r
		return nil
	})
}

func (s *Store) Release(_ context.Context, token string) (bool, error) {
	r, ok := s.reservation(token)
	if !ok {
		return false, domain.ErrReservationNotFound
	}
	if r.Status != domain.ReservationHeld {
		return false, nil
	}

	st := s.state(r.ProductID)
	next := st
	next.hold -= r.Quantity
	if next.hold < 0 {
		next.hold = 0
	}

	released := false
	err := s.swap(r.ProductID, st.version, next, func() error {
		current := s.reservations[token]
		if current.Status != domain.ReservationHeld {
			return errAlreadySettled
		}
		current.Status = domain.ReservationReleased
		current.UpdatedAt = s.now()
		s.reservations[token] = current
		released = true
		return nil
	})
	if err == errAlreadySettled {
		return false, nil
	}
	return released, err
}

func (s *Store) Commit(_ context.Context, token string) (*domain.Reservation, error) {
	r, ok := s.reservation(token)
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	if r.Status != domain.ReservationHeld {
		return nil, domain.ErrReservationNotHeld
	}

	st := s.state(r.ProductID)

	if st.quantity < r.Quantity || st.hold < r.Quantity {
		return nil, &domain.ShortfallError{ProductID: r.ProductID, Requested: r.Quantity, Available: st.quantity}
	}

	next := st
	next.quantity -= r.Quantity
	next.hold -= r.Quantity

	var committed domain.Reservation
	err := s.swap(r.ProductID, st.version, next, func() error {
		current := s.reservations[token]
		if current.Status != domain.ReservationHeld {
			return domain.ErrReservationNotHeld
		}
		current.Status = domain.ReservationCommitted
		current.UpdatedAt = s.now()
		s.reservations[token] = current
		committed = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &committed, nil
}

func (s *Store) Restore(_ context.Context, token string) (*domain.Reservation, error) {
	r, ok := s.reservation(token)
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	switch r.Status {
	case domain.ReservationRestored:
		return &r, nil
	case domain.ReservationCommitted:
	default:
		return nil, domain.ErrReservationNotHeld
	}

	st := s.state(r.ProductID)

	next := st
	next.quantity += r.Quantity

	var restored domain.Reservation
	err := s.swap(r.ProductID, st.version, next, func() error {
		current := s.reservations[token]
		if current.Status != domain.ReservationCommitted {
			return domain.ErrWriteConflict
		}
		current.Status = domain.ReservationRestored
		current.UpdatedAt = s.now()
		s.reservations[token] = current
		restored = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &restored, nil
}

func (s *Store) SetQuantity(_ context.Context, productID int, quantity int) error {
	st, ok := s.snapshot(productID)
	if !ok {
		return domain.ErrProductMissing
	}
	next := st
	next.quantity = quantity
	return s.swap(productID, st.version, next, nil)
}

func (s *Store) FindReservation(_ context.Context, token string) (*domain.Reservation, error) {
	r, ok := s.reservation(token)
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	return &r, nil
}

func (s *Store) ListHeldBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var held []domain.Reservation
	for _, r := range s.reservations {
		if r.Status == domain.ReservationHeld && r.CreatedAt.Before(cutoff) {
			held = append(held, r)
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].CreatedAt.Before(held[j].CreatedAt) })
	if limit > 0 && len(held) > limit {
		held = held[:limit]
	}
	return held, nil
}
