package surety

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yegors/flightsurety/pkg/logger"
)

var (
	ownerAddr    = common.HexToAddress("0x627306090abaB3A6e1400e9345bC60c78a8BEf57")
	appAddr      = common.HexToAddress("0x00000000000000000000000000000000000A9901")
	firstAirline = common.HexToAddress("0xf17f52151EbEF6C7334FAD080c5704D77216b732")
	passenger    = common.HexToAddress("0x0000000000000000000000000000000000000F01")
)

// account returns a deterministic address in a namespace (airlines 0x1..., oracles 0x2..., ...).
func account(namespace, n int64) common.Address {
	return common.BigToAddress(new(big.Int).Add(new(big.Int).Lsh(big.NewInt(namespace), 64), big.NewInt(n)))
}

func airline(n int64) common.Address { return account(1, n) }
func oracle(n int64) common.Address  { return account(2, n) }

type fixture struct {
	t      *testing.T
	ctx    context.Context
	ledger *Ledger
	app    *App
	sub    *Subscription
	wallet *MemoryWallet
}

// constantIndex makes every draw return index.
func constantIndex(index uint8) Entropy {
	return EntropyFunc(func(common.Address, uint64) uint8 { return index })
}

func newFixture(t *testing.T, entropy Entropy) *fixture {
	return newFixtureWithParams(t, entropy, Params{})
}

func newFixtureWithParams(t *testing.T, entropy Entropy, params Params) *fixture {
	t.Helper()

	bus := NewBus()
	sub := bus.Subscribe()
	t.Cleanup(sub.Close)

	log := logger.NewNop()
	ledger, err := NewLedger(LedgerConfig{
		Owner:            ownerAddr,
		FirstAirline:     firstAirline,
		FirstAirlineName: "AIR-First",
	}, bus, log)
	require.NoError(t, err)

	wallet := NewMemoryWallet()
	app := NewApp(AppConfig{
		Address: appAddr,
		Params:  params,
		Entropy: entropy,
		Wallet:  wallet,
	}, ledger, log)
	require.NoError(t, ledger.AuthorizeCaller(Tx{Caller: ownerAddr}, appAddr))

	return &fixture{t: t, ctx: context.Background(), ledger: ledger, app: app, sub: sub, wallet: wallet}
}

func pay(caller common.Address, value *big.Int) Tx { return Tx{Caller: caller, Value: value} }
func from(caller common.Address) Tx               { return Tx{Caller: caller} }

// events drains everything published so far.
func (f *fixture) events() []Event {
	f.sub.mu.Lock()
	defer f.sub.mu.Unlock()
	out := f.sub.queue
	f.sub.queue = nil
	return out
}

func eventsOf[T Event](events []Event) []T {
	var out []T
	for _, ev := range events {
		if e, ok := ev.(T); ok {
			out = append(out, e)
		}
	}
	return out
}

// withFundedAirlines funds the first airline and admits n-1 more without voting (n <= 4).
func (f *fixture) withFundedAirlines(n int) []common.Address {
	f.t.Helper()

	require.NoError(f.t, f.app.FundAirline(f.ctx, pay(firstAirline, Ether(10))))
	admitted := []common.Address{firstAirline}
	for i := 1; i < n; i++ {
		addr := airline(int64(i))
		require.NoError(f.t, f.app.RegisterAirline(f.ctx, from(firstAirline), addr, "AIR-"+addr.Hex()[38:]))
		admitted = append(admitted, addr)
	}
	return admitted
}

func (f *fixture) withFlight(code string) {
	f.t.Helper()
	require.NoError(f.t, f.app.RegisterFlight(f.ctx, from(firstAirline), code))
}

func (f *fixture) withOracles(n int) []common.Address {
	f.t.Helper()

	var out []common.Address
	for i := 0; i < n; i++ {
		addr := oracle(int64(i))
		require.NoError(f.t, f.app.RegisterOracle(f.ctx, pay(addr, Ether(1))))
		out = append(out, addr)
	}
	return out
}

// stateHeight is used to assert that rejected transactions left no trace.
func (f *fixture) stateHeight() uint64 {
	return f.ledger.Height()
}

func assertWei(t *testing.T, want, got *big.Int, msgAndArgs ...any) {
	t.Helper()
	assert.Zero(t, want.Cmp(got), append([]any{"want %s, got %s", want, got}, msgAndArgs...)...)
}
