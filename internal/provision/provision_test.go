package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

var owner = common.HexToAddress("0x627306090abaB3A6e1400e9345bC60c78a8BEf57")

func newApp(t *testing.T, first common.Address) *surety.App {
	t.Helper()

	ledger, err := surety.NewLedger(surety.LedgerConfig{
		Owner:            owner,
		FirstAirline:     first,
		FirstAirlineName: "AIR-First",
	}, nil, logger.NewNop())
	require.NoError(t, err)

	appAddr := common.HexToAddress("0xA9901")
	require.NoError(t, ledger.AuthorizeCaller(surety.Tx{Caller: owner}, appAddr))
	return surety.NewApp(surety.AppConfig{Address: appAddr}, ledger, logger.NewNop())
}

type registrar struct {
	calls int
	err   error
}

func (r *registrar) Register(context.Context) error {
	r.calls++
	return r.err
}

func TestProvisionMirrorsSeedingScript(t *testing.T) {
	airlines, err := surety.NewAccounts(5)
	require.NoError(t, err)
	app := newApp(t, airlines[0])
	oracles := &registrar{}

	p := New(app, Config{Airlines: airlines, FlightsPerAirline: 5}, oracles, logger.NewNop())
	result, err := p.Run(context.Background())
	require.NoError(t, err)

	ledger := app.Ledger()
	assert.Equal(t, 5, ledger.AirlinesCount())
	for _, a := range airlines {
		assert.Equal(t, surety.AirlineAdmitted, ledger.AirlineStatus(a))
	}

	first, _ := ledger.Airline(airlines[0])
	second, _ := ledger.Airline(airlines[1])
	third, _ := ledger.Airline(airlines[2])
	assert.True(t, first.HasFunded)
	assert.True(t, second.HasFunded)
	assert.False(t, third.HasFunded)

	require.Len(t, result.Airlines, 5)
	assert.Equal(t, "AIR-First", result.Airlines[0])
	for _, name := range result.Airlines[1:] {
		assert.True(t, strings.HasPrefix(name, "AIR-"), name)
		assert.Len(t, name, 8)
	}

	require.Len(t, result.Flights, 25)
	assert.Equal(t, result.Flights, ledger.FlightCodes())
	for _, code := range result.Flights {
		assert.Regexp(t, `^F-[0-9A-F]{6}$`, code)
	}
	assert.Equal(t, 1, oracles.calls)
}

func TestProvisionIsRepeatable(t *testing.T) {
	airlines, err := surety.NewAccounts(5)
	require.NoError(t, err)
	app := newApp(t, airlines[0])

	p := New(app, Config{Airlines: airlines, FlightsPerAirline: 2}, nil, logger.NewNop())
	first, err := p.Run(context.Background())
	require.NoError(t, err)

	balance := app.Ledger().Balance()
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Flights, second.Flights)
	assert.Equal(t, first.Airlines, second.Airlines)
	assert.Zero(t, balance.Cmp(app.Ledger().Balance()))
}

func TestProvisionVotesPastFiveAirlines(t *testing.T) {
	airlines, err := surety.NewAccounts(7)
	require.NoError(t, err)
	app := newApp(t, airlines[0])

	_, err = New(app, Config{Airlines: airlines}, nil, logger.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, app.Ledger().AirlinesCount())
	assert.Empty(t, app.Ledger().FlightCodes())
}

func TestProvisionRequiresBootstrappedAirline(t *testing.T) {
	airlines, err := surety.NewAccounts(2)
	require.NoError(t, err)
	app := newApp(t, common.HexToAddress("0xF1"))

	_, err = New(app, Config{Airlines: airlines}, nil, logger.NewNop()).Run(context.Background())
	assert.Error(t, err)

	_, err = New(app, Config{}, nil, logger.NewNop()).Run(context.Background())
	assert.Error(t, err)
}

func TestProvisionSurfacesOracleFailure(t *testing.T) {
	airlines, err := surety.NewAccounts(1)
	require.NoError(t, err)
	app := newApp(t, airlines[0])

	boom := errors.New("boom")
	_, err = New(app, Config{Airlines: airlines}, &registrar{err: boom}, logger.NewNop()).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}
