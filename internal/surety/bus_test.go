package surety

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusFansOutInOrder(t *testing.T) {
	bus := NewBus()
	a, b := bus.Subscribe(), bus.Subscribe()
	defer a.Close()
	defer b.Close()

	bus.Publish(FlightRegistered{FlightCode: "ND1309"}, FlightRegistered{FlightCode: "ND1310"})
	bus.Publish()

	ctx := context.Background()
	for _, sub := range []*Subscription{a, b} {
		first, err := sub.Next(ctx)
		require.NoError(t, err)
		second, err := sub.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ND1309", first.(FlightRegistered).FlightCode)
		assert.Equal(t, "ND1310", second.(FlightRegistered).FlightCode)
	}
}

func TestSubscriptionNextHonorsContext(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscriptionWakesOnPublish(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	got := make(chan Event, 1)
	go func() {
		ev, err := sub.Next(context.Background())
		if err == nil {
			got <- ev
		}
	}()

	bus.Publish(AirlineFunded{Airline: firstAirline})
	select {
	case ev := <-got:
		assert.Equal(t, KindAirlineFunded, ev.Kind())
	case <-time.After(time.Second):
		t.Fatal("subscriber was not woken")
	}
}

func TestClosedSubscriptionDrainsThenStops(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.Publish(OracleRegistered{Oracle: oracle(1)})
	sub.Close()
	bus.Publish(OracleRegistered{Oracle: oracle(2)})

	ev, err := sub.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, oracle(1), ev.(OracleRegistered).Oracle)

	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrSubscriptionClosed)
}

func TestSubject(t *testing.T) {
	code, airline := Subject(FlightStatusRequested{FlightCode: "ND1309", Airline: firstAirline})
	assert.Equal(t, "ND1309", code)
	assert.Equal(t, firstAirline, airline)

	code, _ = Subject(InsurancePurchased{FlightCode: "ND1310", Passenger: passenger})
	assert.Equal(t, "ND1310", code)

	code, airline = Subject(OperatingStatusChanged{})
	assert.Empty(t, code)
	assert.Zero(t, airline)
}
