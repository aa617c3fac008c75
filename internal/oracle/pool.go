package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

// Pool runs one Worker per oracle account.
type Pool struct {
	app     *surety.App
	workers []*Worker
	logger  *logger.Logger
}

// SourceFactory builds the status source of one oracle account.
type SourceFactory func(account common.Address) StatusSource

// NewPool subscribes a worker per account to bus and gives each worker its own
// source from newSource. Requests published after NewPool returns are queued
// for the workers even before Run starts.
func NewPool(app *surety.App, bus *surety.Bus, accounts []common.Address, newSource SourceFactory, log *logger.Logger) *Pool {
	poolLogger := log.Named("oracles")

	workers := make([]*Worker, 0, len(accounts))
	for _, account := range accounts {
		workers = append(workers, &Worker{
			account: account,
			app:     app,
			source:  newSource(account),
			sub:     bus.Subscribe(),
			logger:  poolLogger.With(logger.Address("oracle", account)),
		})
	}

	return &Pool{app: app, workers: workers, logger: poolLogger}
}

// Workers returns the pool's workers in account order.
func (p *Pool) Workers() []*Worker {
	return p.workers
}

// Register registers every account against the oracle fee and caches its
// indexes. Accounts that are already registered are kept.
func (p *Pool) Register(ctx context.Context) error {
	fee := p.app.Params().OracleRegistrationFee

	for _, w := range p.workers {
		err := p.app.RegisterOracle(ctx, surety.Tx{Caller: w.account, Value: fee})
		if err != nil && !errors.Is(err, surety.ErrAlreadyRegistered) {
			return fmt.Errorf("failed to register oracle %s: %w", w.account.Hex(), err)
		}

		indexes, err := p.app.MyIndexes(surety.Tx{Caller: w.account})
		if err != nil {
			return fmt.Errorf("failed to load indexes of oracle %s: %w", w.account.Hex(), err)
		}
		w.setIndexes(indexes)
	}

	p.logger.Info("Oracles registered", logger.Int("count", len(p.workers)))
	return nil
}

// Run serves status requests until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	defer p.Close()

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	p.logger.Info("Oracle pool started", logger.Int("workers", len(p.workers)))
	err := g.Wait()
	p.logger.Info("Oracle pool stopped")
	return err
}

// Close detaches every worker from the bus.
func (p *Pool) Close() {
	for _, w := range p.workers {
		w.sub.Close()
	}
}
