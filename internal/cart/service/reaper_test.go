package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
)

type mockHoldSource struct {
	ListStaleHoldsFunc func(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error)
	ReleaseFunc        func(ctx context.Context, token string) error
}

func (m *mockHoldSource) ListStaleHolds(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
	return m.ListStaleHoldsFunc(ctx, cutoff, limit)
}

func (m *mockHoldSource) Release(ctx context.Context, token string) error {
	return m.ReleaseFunc(ctx, token)
}

func TestReapOnce_ReleasesStaleHolds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var released []string
	holds := &mockHoldSource{
		ListStaleHoldsFunc: func(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
			assert.Equal(t, now.Add(-30*time.Minute), cutoff)
			assert.Equal(t, 100, limit)
			return []domain.Reservation{{Token: "a"}, {Token: "b"}, {Token: "c"}}, nil
		},
		ReleaseFunc: func(ctx context.Context, token string) error {
			if token == "b" {
				return errors.New("lock wait timeout")
			}
			released = append(released, token)
			return nil
		},
	}
	r := NewReaper(holds, 30*time.Minute, time.Minute, 100, zap.NewNop())
	r.now = func() time.Time { return now }

	n, err := r.ReapOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "c"}, released)
}

func TestReapOnce_ListError(t *testing.T) {
	holds := &mockHoldSource{
		ListStaleHoldsFunc: func(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
			return nil, errors.New("connection refused")
		},
	}
	r := NewReaper(holds, time.Minute, time.Minute, 10, zap.NewNop())

	_, err := r.ReapOnce(context.Background())
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ticks := make(chan struct{}, 8)
	holds := &mockHoldSource{
		ListStaleHoldsFunc: func(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
			select {
			case ticks <- struct{}{}:
			default:
			}
			return nil, nil
		},
	}
	r := NewReaper(holds, time.Minute, 5*time.Millisecond, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper never ticked")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
}
