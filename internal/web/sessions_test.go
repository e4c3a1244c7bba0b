package web

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/estetica-booking/internal/booking"
	"github.com/wolfman30/estetica-booking/internal/bookingapi"
	"github.com/wolfman30/estetica-booking/internal/catalog"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, rec bookingapi.Record) error { return nil }

func testFormFactory(store booking.Store) FormFactory {
	cat := catalog.Default(catalog.DefaultCoupons())
	return func() *booking.Form {
		return booking.NewForm(booking.FormConfig{
			Catalog: cat,
			Store:   store,
			Logger:  logging.New("error"),
		})
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	reg := NewRegistry(testFormFactory(nopStore{}), time.Minute, nil)
	defer reg.Close()

	id, form, err := reg.Create()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, ok := reg.Get(id)
	require.True(t, ok)
	assert.Same(t, form, got)

	_, ok = reg.Get("unknown")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistrySweepClosesIdleForms(t *testing.T) {
	reg := NewRegistry(testFormFactory(nopStore{}), time.Minute, nil)
	defer reg.Close()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	staleID, stale, err := reg.Create()
	require.NoError(t, err)
	now = now.Add(45 * time.Second)
	freshID, fresh, err := reg.Create()
	require.NoError(t, err)
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, reg.Sweep())
	assert.True(t, stale.Closed())
	assert.False(t, fresh.Closed())

	_, ok := reg.Get(staleID)
	assert.False(t, ok)
	_, ok = reg.Get(freshID)
	assert.True(t, ok)
}

func TestRegistryGetRefreshesIdleClock(t *testing.T) {
	reg := NewRegistry(testFormFactory(nopStore{}), time.Minute, nil)
	defer reg.Close()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	id, _, err := reg.Create()
	require.NoError(t, err)
	now = now.Add(50 * time.Second)
	_, ok := reg.Get(id)
	require.True(t, ok)
	now = now.Add(50 * time.Second)

	assert.Zero(t, reg.Sweep())
}

func TestRegistryCloseClosesForms(t *testing.T) {
	reg := NewRegistry(testFormFactory(nopStore{}), time.Minute, nil)
	_, form, err := reg.Create()
	require.NoError(t, err)

	reg.Close()
	reg.Close()

	assert.True(t, form.Closed())
	assert.Zero(t, reg.Len())
	_, _, err = reg.Create()
	assert.ErrorIs(t, err, ErrRegistryClosed)
}

func TestRegistryRunStopsOnCancel(t *testing.T) {
	reg := NewRegistry(testFormFactory(nopStore{}), time.Minute, nil)
	defer reg.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
