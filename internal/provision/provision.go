// Package provision seeds a fresh ledger with airlines, flights and oracles
// through the public entrypoints, the same way an operator would.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

// OracleRegistrar registers a set of oracle accounts.
type OracleRegistrar interface {
	Register(ctx context.Context) error
}

// Config controls what gets provisioned.
type Config struct {
	// Airlines lists the airline accounts. The first one must be the ledger's
	// bootstrapped airline.
	Airlines          []common.Address
	FlightsPerAirline int
}

// Result summarizes a provisioning run.
type Result struct {
	Airlines []string `json:"airlines"`
	Flights  []string `json:"flights"`
}

// Provisioner drives the App to a demo-ready state.
type Provisioner struct {
	app     *surety.App
	cfg     Config
	oracles OracleRegistrar
	logger  *logger.Logger
}

// New creates a provisioner. oracles may be nil.
func New(app *surety.App, cfg Config, oracles OracleRegistrar, log *logger.Logger) *Provisioner {
	return &Provisioner{
		app:     app,
		cfg:     cfg,
		oracles: oracles,
		logger:  log.Named("provision"),
	}
}

// Run funds and admits the airlines, registers flights when none exist and
// registers the oracles. Rejected steps are logged and skipped.
func (p *Provisioner) Run(ctx context.Context) (*Result, error) {
	if len(p.cfg.Airlines) == 0 {
		return nil, fmt.Errorf("no airline accounts to provision")
	}

	if err := p.initAirlines(ctx); err != nil {
		return nil, err
	}
	flights, err := p.initFlights(ctx)
	if err != nil {
		return nil, err
	}
	if p.oracles != nil {
		if err := p.oracles.Register(ctx); err != nil {
			return nil, fmt.Errorf("failed to register oracles: %w", err)
		}
	}

	result := &Result{
		Airlines: p.app.Ledger().AirlineNames(),
		Flights:  flights,
	}
	p.logger.Info("Provisioning complete",
		logger.Int("airlines", len(result.Airlines)),
		logger.Int("flights", len(result.Flights)))
	return result, nil
}

func (p *Provisioner) initAirlines(ctx context.Context) error {
	first := p.cfg.Airlines[0]
	if p.app.Ledger().AirlineStatus(first) != surety.AirlineAdmitted {
		return fmt.Errorf("airline %s is not the bootstrapped airline", first.Hex())
	}
	p.fund(ctx, first)

	for _, candidate := range p.cfg.Airlines[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.app.Ledger().AirlineStatus(candidate) == surety.AirlineAdmitted {
			continue
		}
		name := "AIR-" + randomCode(4)

		if p.app.Ledger().AirlinesCount() < surety.ConsensusThreshold {
			p.register(ctx, candidate, name, first)
			continue
		}

		// past the threshold every admitted airline votes in turn, funding first
		for _, voter := range p.app.Ledger().Airlines() {
			p.fund(ctx, voter.Address)
			p.register(ctx, candidate, name, voter.Address)
			if p.app.Ledger().AirlineStatus(candidate) == surety.AirlineAdmitted {
				break
			}
		}
	}

	p.logger.Info("Registered airline names",
		logger.String("names", strings.Join(p.app.Ledger().AirlineNames(), ", ")))
	return nil
}

func (p *Provisioner) fund(ctx context.Context, airline common.Address) {
	a, ok := p.app.Ledger().Airline(airline)
	if !ok || a.HasFunded {
		return
	}

	amount := p.app.Params().AirlineMinFunding
	if err := p.app.FundAirline(ctx, surety.Tx{Caller: airline, Value: amount}); err != nil {
		p.logger.Warn("Airline funding rejected",
			logger.Address("airline", airline),
			logger.Error(err))
		return
	}
	p.logger.Info("Airline funded",
		logger.String("name", a.Name),
		logger.Amount("amount", amount))
}

func (p *Provisioner) register(ctx context.Context, candidate common.Address, name string, from common.Address) {
	err := p.app.RegisterAirline(ctx, surety.Tx{Caller: from}, candidate, name)
	if err != nil {
		p.logger.Warn("Airline registration rejected",
			logger.Address("airline", candidate),
			logger.Address("from", from),
			logger.Error(err))
		return
	}
	p.logger.Debug("Airline registration accepted",
		logger.Address("airline", candidate),
		logger.Address("from", from),
		logger.String("status", p.app.Ledger().AirlineStatus(candidate).String()))
}

func (p *Provisioner) initFlights(ctx context.Context) ([]string, error) {
	if existing := p.app.Ledger().FlightCodes(); len(existing) > 0 {
		p.logger.Info("Flights already registered", logger.Int("count", len(existing)))
		return existing, nil
	}

	var flights []string
	for _, airline := range p.cfg.Airlines {
		for i := 0; i < p.cfg.FlightsPerAirline; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			code := "F-" + randomCode(6)
			if err := p.app.RegisterFlight(ctx, surety.Tx{Caller: airline}, code); err != nil {
				p.logger.Warn("Flight registration rejected",
					logger.String("flight", code),
					logger.Address("airline", airline),
					logger.Error(err))
				continue
			}
			flights = append(flights, code)
		}
	}
	return flights, nil
}

// randomCode returns n upper-case hex characters, n <= 32.
func randomCode(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:n])
}
