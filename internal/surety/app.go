package surety

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yegors/flightsurety/pkg/logger"
)

// Params are the economic constants of the platform.
type Params struct {
	AirlineMinFunding     *big.Int
	OracleRegistrationFee *big.Int
	InsuranceCap          *big.Int
}

// DefaultParams: 10 ether to fund an airline, 1 ether per oracle, 1 ether cap per policy.
func DefaultParams() Params {
	return Params{
		AirlineMinFunding:     Ether(10),
		OracleRegistrationFee: Ether(1),
		InsuranceCap:          Ether(1),
	}
}

// AppConfig configures the logic layer.
type AppConfig struct {
	Address common.Address
	Params  Params
	Entropy Entropy
	Wallet  Wallet
}

// App implements every mutating entrypoint against a Ledger. It must be on the
// ledger's allowlist.
type App struct {
	address common.Address
	ledger  *Ledger
	params  Params
	entropy Entropy
	wallet  Wallet
	logger  *logger.Logger
}

// NewApp binds the logic layer to ledger. Zero-valued params fall back to defaults.
func NewApp(cfg AppConfig, ledger *Ledger, log *logger.Logger) *App {
	defaults := DefaultParams()
	if cfg.Params.AirlineMinFunding == nil {
		cfg.Params.AirlineMinFunding = defaults.AirlineMinFunding
	}
	if cfg.Params.OracleRegistrationFee == nil {
		cfg.Params.OracleRegistrationFee = defaults.OracleRegistrationFee
	}
	if cfg.Params.InsuranceCap == nil {
		cfg.Params.InsuranceCap = defaults.InsuranceCap
	}
	if cfg.Entropy == nil {
		cfg.Entropy = NewKeccakEntropy(cfg.Address.Bytes())
	}
	if cfg.Wallet == nil {
		cfg.Wallet = NewMemoryWallet()
	}

	return &App{
		address: cfg.Address,
		ledger:  ledger,
		params:  cfg.Params,
		entropy: cfg.Entropy,
		wallet:  cfg.Wallet,
		logger:  log.Named("app"),
	}
}

// Address is the identity the app presents to the ledger.
func (a *App) Address() common.Address {
	return a.address
}

// Ledger exposes the read side.
func (a *App) Ledger() *Ledger {
	return a.ledger
}

// Params returns the economic constants in effect.
func (a *App) Params() Params {
	return a.params
}

// IsOperational reports whether the ledger accepts transactions.
func (a *App) IsOperational() bool {
	return a.ledger.IsOperational()
}

// apply runs fn as one serialized transaction. fn must finish all validation
// before mutating s; a non-nil error means nothing was changed. Events are
// published only on success, in ledger order.
func (a *App) apply(op string, tx Tx, fn func(s *state) ([]Event, error)) error {
	l := a.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.requireOperational()
	if err == nil {
		err = l.requireAuthorized(a.address)
	}
	var events []Event
	if err == nil {
		events, err = fn(l.state)
	}
	txLogger := a.logger.WithCaller(tx.Caller)
	if err != nil {
		txLogger.Debug("Transaction rejected",
			logger.String("op", op),
			logger.String("code", string(CodeOf(err))),
			logger.Error(err))
		return err
	}

	l.state.height++
	txLogger.Debug("Transaction committed",
		logger.String("op", op),
		logger.Uint64("height", l.state.height),
		logger.Int("events", len(events)))

	l.events.Publish(events...)
	return nil
}
