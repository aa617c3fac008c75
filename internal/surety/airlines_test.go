package surety

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstAirlineIsAdmittedUnfunded(t *testing.T) {
	f := newFixture(t, constantIndex(1))

	a, ok := f.ledger.Airline(firstAirline)
	require.True(t, ok)
	assert.Equal(t, "AIR-First", a.Name)
	assert.False(t, a.HasFunded)
	assert.Equal(t, AirlineAdmitted, f.ledger.AirlineStatus(firstAirline))
	assert.Equal(t, 1, f.ledger.AirlinesCount())
}

func TestFundAirline(t *testing.T) {
	f := newFixture(t, constantIndex(1))

	err := f.app.FundAirline(f.ctx, pay(airline(9), Ether(10)))
	assert.ErrorIs(t, err, ErrCallerNotAirline)

	err = f.app.FundAirline(f.ctx, pay(firstAirline, Ether(9)))
	assert.ErrorIs(t, err, ErrInsufficientFunding)
	assert.Zero(t, f.ledger.Balance().Sign())

	require.NoError(t, f.app.FundAirline(f.ctx, pay(firstAirline, Ether(10))))
	a, _ := f.ledger.Airline(firstAirline)
	assert.True(t, a.HasFunded)
	assertWei(t, Ether(10), f.ledger.Balance())

	funded := eventsOf[AirlineFunded](f.events())
	require.Len(t, funded, 1)
	assert.Equal(t, firstAirline, funded[0].Airline)
	assertWei(t, Ether(10), funded[0].Amount)

	// a second contribution is kept in escrow but changes nothing else
	require.NoError(t, f.app.FundAirline(f.ctx, pay(firstAirline, Ether(12))))
	assertWei(t, Ether(22), f.ledger.Balance())
	assert.Empty(t, f.events())
}

func TestRegisterAirlineRequiresFundedAirline(t *testing.T) {
	f := newFixture(t, constantIndex(1))

	err := f.app.RegisterAirline(f.ctx, from(airline(9)), airline(1), "AIR-1")
	assert.ErrorIs(t, err, ErrCallerNotAirline)

	err = f.app.RegisterAirline(f.ctx, from(firstAirline), airline(1), "AIR-1")
	assert.ErrorIs(t, err, ErrInsufficientFunding)
	assert.Equal(t, AirlineUnregistered, f.ledger.AirlineStatus(airline(1)))

	require.NoError(t, f.app.FundAirline(f.ctx, pay(firstAirline, Ether(10))))
	require.NoError(t, f.app.RegisterAirline(f.ctx, from(firstAirline), airline(1), "AIR-1"))

	// admitted but unfunded airlines cannot register others
	err = f.app.RegisterAirline(f.ctx, from(airline(1)), airline(2), "AIR-2")
	assert.ErrorIs(t, err, ErrInsufficientFunding)
}

func TestRegisterAirlineRejectsDuplicatesAndZeroAddress(t *testing.T) {
	f := newFixture(t, constantIndex(1))
	f.withFundedAirlines(2)

	err := f.app.RegisterAirline(f.ctx, from(firstAirline), airline(1), "AIR-1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	err = f.app.RegisterAirline(f.ctx, from(firstAirline), firstAirline, "AIR-First")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	err = f.app.RegisterAirline(f.ctx, from(firstAirline), common.Address{}, "AIR-0")
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestFirstFourAirlinesNeedNoVotes(t *testing.T) {
	f := newFixture(t, constantIndex(1))
	admitted := f.withFundedAirlines(4)

	assert.Equal(t, 4, f.ledger.AirlinesCount())
	for _, addr := range admitted {
		assert.Equal(t, AirlineAdmitted, f.ledger.AirlineStatus(addr))
	}

	registered := eventsOf[AirlineRegistered](f.events())
	require.Len(t, registered, 3)
	assert.Equal(t, airline(1), registered[0].Airline)
	assert.Equal(t, firstAirline, registered[0].RegisteredBy)
	assert.Len(t, f.ledger.AirlineNames(), 4)
}

func TestFifthAirlineNeedsMultipartyConsensus(t *testing.T) {
	f := newFixture(t, constantIndex(1))
	f.withFundedAirlines(4)
	require.NoError(t, f.app.FundAirline(f.ctx, pay(airline(1), Ether(10))))
	f.events()

	candidate := airline(5)
	require.NoError(t, f.app.RegisterAirline(f.ctx, from(firstAirline), candidate, "AIR-5"))
	assert.Equal(t, AirlinePending, f.ledger.AirlineStatus(candidate))
	assert.Equal(t, 4, f.ledger.AirlinesCount())

	votes := eventsOf[AirlineVoted](f.events())
	require.Len(t, votes, 1)
	assert.Equal(t, 1, votes[0].Votes)
	assert.Equal(t, 2, votes[0].Required)

	err := f.app.RegisterAirline(f.ctx, from(firstAirline), candidate, "AIR-5")
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, AirlinePending, f.ledger.AirlineStatus(candidate))

	c, ok := f.ledger.Candidate(candidate)
	require.True(t, ok)
	assert.Equal(t, "AIR-5", c.Name)
	assert.Len(t, c.Voters, 1)

	// the name given on later votes is ignored
	require.NoError(t, f.app.RegisterAirline(f.ctx, from(airline(1)), candidate, "Renamed"))
	assert.Equal(t, AirlineAdmitted, f.ledger.AirlineStatus(candidate))
	assert.Equal(t, 5, f.ledger.AirlinesCount())

	a, _ := f.ledger.Airline(candidate)
	assert.Equal(t, "AIR-5", a.Name)
	assert.False(t, a.HasFunded)
	_, pending := f.ledger.Candidate(candidate)
	assert.False(t, pending)

	registered := eventsOf[AirlineRegistered](f.events())
	require.Len(t, registered, 1)
	assert.Equal(t, airline(1), registered[0].RegisteredBy)
}

func TestVotesRequiredIsEvaluatedAtEachVote(t *testing.T) {
	f := newFixture(t, constantIndex(1))
	admitted := f.withFundedAirlines(4)
	for _, addr := range admitted[1:] {
		require.NoError(t, f.app.FundAirline(f.ctx, pay(addr, Ether(10))))
	}

	slow, fast := airline(10), airline(11)
	require.NoError(t, f.app.RegisterAirline(f.ctx, from(admitted[0]), slow, "AIR-slow"))

	require.NoError(t, f.app.RegisterAirline(f.ctx, from(admitted[0]), fast, "AIR-fast"))
	require.NoError(t, f.app.RegisterAirline(f.ctx, from(admitted[1]), fast, "AIR-fast"))
	require.Equal(t, 5, f.ledger.AirlinesCount())

	// five admitted airlines now require three votes
	require.NoError(t, f.app.RegisterAirline(f.ctx, from(admitted[1]), slow, "AIR-slow"))
	assert.Equal(t, AirlinePending, f.ledger.AirlineStatus(slow))

	require.NoError(t, f.app.RegisterAirline(f.ctx, from(admitted[2]), slow, "AIR-slow"))
	assert.Equal(t, AirlineAdmitted, f.ledger.AirlineStatus(slow))
}

func TestVotesRequired(t *testing.T) {
	for admitted, want := range map[int]int{4: 2, 5: 3, 6: 3, 7: 4, 10: 5} {
		assert.Equal(t, want, VotesRequired(admitted), "admitted=%d", admitted)
	}
}
