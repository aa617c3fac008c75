package sqlite

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

var (
	airline   = common.HexToAddress("0xf17f52151EbEF6C7334FAD080c5704D77216b732")
	passenger = common.HexToAddress("0x0000000000000000000000000000000000000F01")
)

func newTestStorage(t *testing.T) *EventStorage {
	t.Helper()

	db, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage, err := NewEventStorage(db, logger.NewNop())
	require.NoError(t, err)
	return storage
}

func TestNewEventStorageIsIdempotent(t *testing.T) {
	db, err := Open(MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = NewEventStorage(db, logger.NewNop())
	require.NoError(t, err)
	_, err = NewEventStorage(db, logger.NewNop())
	require.NoError(t, err)
}

func TestStoreEvent(t *testing.T) {
	storage := newTestStorage(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	storage.now = func() time.Time { return fixed }
	ctx := context.Background()

	record, err := storage.StoreEvent(ctx, surety.InsurancePurchased{
		Passenger:  passenger,
		FlightCode: "ND1309",
		Amount:     surety.Ether(1),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.EqualValues(t, 1, record.Seq)

	records, err := storage.GetEventsByFlight(ctx, "ND1309", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, string(surety.KindInsurancePurchased), got.Kind)
	assert.Empty(t, got.Airline)
	assert.True(t, fixed.Equal(got.CreatedAt))

	var payload struct {
		Passenger common.Address `json:"passenger"`
		Amount    *big.Int       `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, passenger, payload.Passenger)
	assert.Zero(t, surety.Ether(1).Cmp(payload.Amount))
}

func TestEventQueries(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	events := []surety.Event{
		surety.AirlineFunded{Airline: airline, Amount: surety.Ether(10)},
		surety.FlightRegistered{Airline: airline, FlightCode: "ND1309"},
		surety.FlightRegistered{Airline: airline, FlightCode: "ND1310"},
		surety.FlightStatusRequested{OracleIndex: 4, Airline: airline, FlightCode: "ND1309", Timestamp: 1700000000},
		surety.FlightStatusReceived{Airline: airline, FlightCode: "ND1309", StatusCode: surety.StatusOnTime},
	}
	for _, ev := range events {
		_, err := storage.StoreEvent(ctx, ev)
		require.NoError(t, err)
	}

	history, err := storage.GetEventsByFlight(ctx, "ND1309", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, string(surety.KindFlightRegistered), history[0].Kind)
	assert.Equal(t, string(surety.KindFlightStatusReceived), history[2].Kind)
	assert.Equal(t, airline.Hex(), history[0].Airline)

	recent, err := storage.GetRecentEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, string(surety.KindFlightStatusReceived), recent[0].Kind)
	assert.Greater(t, recent[0].Seq, recent[1].Seq)

	registered, err := storage.GetEventsByKind(ctx, surety.KindFlightRegistered, 10)
	require.NoError(t, err)
	require.Len(t, registered, 2)
	assert.Equal(t, "ND1310", registered[0].FlightCode)

	none, err := storage.GetEventsByFlight(ctx, "XX0000", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestConsumeJournalsPublishedEvents(t *testing.T) {
	storage := newTestStorage(t)
	bus := surety.NewBus()
	sub := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- storage.Consume(ctx, sub) }()

	bus.Publish(
		surety.FlightRegistered{Airline: airline, FlightCode: "ND1309"},
		surety.OperatingStatusChanged{Operational: false},
	)

	require.Eventually(t, func() bool {
		records, err := storage.GetRecentEvents(context.Background(), 10)
		return err == nil && len(records) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	sub.Close()
}
