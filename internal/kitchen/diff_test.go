package kitchen_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"foh-coordinator/internal/kitchen"
	"foh-coordinator/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) OpenOrders(ctx context.Context) ([]models.OrderWithLines, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderWithLines), args.Error(1)
}

func snapshot(ids ...string) []models.OrderWithLines {
	orders := make([]models.OrderWithLines, len(ids))
	for i, id := range ids {
		orders[i] = models.OrderWithLines{Order: models.Order{ID: id, Status: models.OrderPending}}
	}
	return orders
}

func TestDiffDetectsArrival(t *testing.T) {
	events := kitchen.Diff(snapshot("a"), snapshot("a", "b"))
	assert.Equal(t, []string{"b"}, events.Arrived)
	assert.Empty(t, events.Departed)
}

func TestDiffDetectsDeparture(t *testing.T) {
	events := kitchen.Diff(snapshot("a", "b"), snapshot("a"))
	assert.Empty(t, events.Arrived)
	assert.Equal(t, []string{"b"}, events.Departed)
}

func TestDiffSameWindowSwap(t *testing.T) {
	// One order completes while another arrives between polls: the list
	// length is unchanged, but the arrival edge must still fire.
	events := kitchen.Diff(snapshot("a", "b"), snapshot("b", "c"))
	assert.Equal(t, []string{"c"}, events.Arrived)
	assert.Equal(t, []string{"a"}, events.Departed)
}

func TestDiffNoChange(t *testing.T) {
	events := kitchen.Diff(snapshot("a", "b"), snapshot("a", "b"))
	assert.True(t, events.Empty())
}

func TestDiffEmptySnapshots(t *testing.T) {
	assert.True(t, kitchen.Diff(nil, nil).Empty())
	assert.Equal(t, []string{"a"}, kitchen.Diff(nil, snapshot("a")).Arrived)
}

func TestPollerFirstPollIsQuiet(t *testing.T) {
	store := new(MockStore)
	svc := kitchen.NewService(store, nil)
	poller := kitchen.NewPoller(svc)

	store.On("OpenOrders").Return(snapshot("a", "b"), nil).Once()

	// A display coming online must not ring for orders already open.
	orders, events, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.True(t, events.Empty())
}

func TestPollerDetectsNewOrderAcrossPolls(t *testing.T) {
	store := new(MockStore)
	svc := kitchen.NewService(store, nil)
	poller := kitchen.NewPoller(svc)

	store.On("OpenOrders").Return(snapshot("a"), nil).Once()
	store.On("OpenOrders").Return(snapshot("b", "c"), nil).Once()

	_, _, err := poller.Poll(context.Background())
	require.NoError(t, err)

	_, events, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, events.Arrived)
	assert.Equal(t, []string{"a"}, events.Departed)
}

func TestPollerKeepsBaselineOnError(t *testing.T) {
	store := new(MockStore)
	svc := kitchen.NewService(store, nil)
	poller := kitchen.NewPoller(svc)

	store.On("OpenOrders").Return(snapshot("a"), nil).Once()
	store.On("OpenOrders").Return(nil, assert.AnError).Once()
	store.On("OpenOrders").Return(snapshot("a", "b"), nil).Once()

	_, _, err := poller.Poll(context.Background())
	require.NoError(t, err)

	_, _, err = poller.Poll(context.Background())
	require.Error(t, err)

	// The failed poll must not wipe the baseline: the next success still
	// reports the arrival.
	_, events, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, events.Arrived)
}
