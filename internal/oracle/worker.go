package oracle

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

// Worker answers status requests on behalf of one oracle account.
type Worker struct {
	account common.Address
	app     *surety.App
	source  StatusSource
	sub     *surety.Subscription
	logger  *logger.Logger

	mu         sync.RWMutex
	indexes    [surety.IndexesPerOracle]uint8
	registered bool
}

// Account is the oracle's address.
func (w *Worker) Account() common.Address {
	return w.account
}

// Indexes returns the cached indexes and whether the oracle is registered.
func (w *Worker) Indexes() ([surety.IndexesPerOracle]uint8, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.indexes, w.registered
}

func (w *Worker) setIndexes(indexes [surety.IndexesPerOracle]uint8) {
	w.mu.Lock()
	w.indexes = indexes
	w.registered = true
	w.mu.Unlock()
}

func (w *Worker) handles(index uint8) bool {
	indexes, ok := w.Indexes()
	return ok && slices.Contains(indexes[:], index)
}

// Run consumes the worker's subscription until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	for {
		ev, err := w.sub.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, surety.ErrSubscriptionClosed) {
				return nil
			}
			return err
		}

		req, ok := ev.(surety.FlightStatusRequested)
		if !ok || !w.handles(req.OracleIndex) {
			continue
		}
		w.respond(ctx, req)
	}
}

func (w *Worker) respond(ctx context.Context, req surety.FlightStatusRequested) {
	status, err := w.source.Status(ctx, req)
	if err != nil {
		w.logger.Warn("Failed to determine flight status",
			logger.String("flight", req.FlightCode),
			logger.Error(err))
		return
	}

	err = w.app.UpdateFlightStatus(ctx, surety.Tx{Caller: w.account},
		req.OracleIndex, req.Airline, req.FlightCode, req.Timestamp, status)
	if err != nil {
		w.logger.Info("Status report rejected",
			logger.String("flight", req.FlightCode),
			logger.String("status", status.String()),
			logger.String("code", string(surety.CodeOf(err))),
			logger.Error(err))
		return
	}

	w.logger.Debug("Status report submitted",
		logger.String("flight", req.FlightCode),
		logger.Int("oracle_index", int(req.OracleIndex)),
		logger.String("status", status.String()))
}
