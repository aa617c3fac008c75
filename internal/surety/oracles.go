package surety

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yegors/flightsurety/pkg/logger"
)

// ConsensusResponses is how many concurring reports finalize a status request.
const ConsensusResponses = 3

// RegisterOracle registers the caller against the registration fee and assigns
// its indexes.
func (a *App) RegisterOracle(ctx context.Context, tx Tx) error {
	return a.apply("registerOracle", tx, func(s *state) ([]Event, error) {
		fee := tx.value()
		if fee.Cmp(a.params.OracleRegistrationFee) < 0 {
			return nil, ErrInsufficientFee
		}
		if _, ok := s.oracles[tx.Caller]; ok {
			return nil, Errorf(CodeAlreadyRegistered, "oracle is already registered")
		}

		oracle := &Oracle{
			Address: tx.Caller,
			Indexes: drawIndexes(a.entropy, tx.Caller, s.height),
		}
		s.oracles[tx.Caller] = oracle
		s.balance.Add(s.balance, fee)

		a.logger.Debug("Oracle registered",
			logger.Address("oracle", tx.Caller),
			logger.Any("indexes", oracle.Indexes))
		return []Event{OracleRegistered{Oracle: tx.Caller, Indexes: oracle.Indexes}}, nil
	})
}

// MyIndexes returns the caller's assigned indexes.
func (a *App) MyIndexes(tx Tx) ([IndexesPerOracle]uint8, error) {
	oracle, ok := a.ledger.Oracle(tx.Caller)
	if !ok {
		return [IndexesPerOracle]uint8{}, ErrOracleNotRegistered
	}
	return oracle.Indexes, nil
}

// FetchFlightStatus opens a status request for the flight and broadcasts it to
// the oracles holding the drawn index. Fetching an existing key keeps its tally
// and broadcasts it again.
func (a *App) FetchFlightStatus(ctx context.Context, tx Tx, code string, timestamp int64) (RequestKey, error) {
	code = normalizeFlightCode(code)

	var key RequestKey
	err := a.apply("fetchFlightStatus", tx, func(s *state) ([]Event, error) {
		flight, ok := s.flights[code]
		if !ok {
			return nil, ErrFlightNotRegistered
		}

		key = RequestKey{
			Index:      drawIndex(a.entropy, tx.Caller, s.height),
			Airline:    flight.Airline,
			FlightCode: code,
			Timestamp:  timestamp,
		}
		if _, exists := s.requests[key]; !exists {
			s.requests[key] = &statusRequest{
				requester:  tx.Caller,
				open:       true,
				responders: make(map[common.Address]StatusCode),
				byCode:     make(map[StatusCode][]common.Address),
			}
		}

		a.logger.Debug("Flight status requested",
			logger.String("flight", code),
			logger.Int("oracle_index", int(key.Index)),
			logger.Int64("timestamp", timestamp))
		return []Event{FlightStatusRequested{
			OracleIndex: key.Index,
			Airline:     key.Airline,
			FlightCode:  key.FlightCode,
			Timestamp:   key.Timestamp,
		}}, nil
	})
	if err != nil {
		return RequestKey{}, err
	}
	return key, nil
}

// UpdateFlightStatus records an oracle report. The first status code to gather
// ConsensusResponses reports closes the request, becomes the flight's verified
// status and, for an airline-caused delay, credits refunds. Reports arriving
// after closure are kept and acknowledged with Verified=false.
func (a *App) UpdateFlightStatus(ctx context.Context, tx Tx, index uint8, airline common.Address, code string, timestamp int64, status StatusCode) error {
	code = normalizeFlightCode(code)

	return a.apply("updateFlightStatus", tx, func(s *state) ([]Event, error) {
		oracle, ok := s.oracles[tx.Caller]
		if !ok {
			return nil, ErrOracleNotRegistered
		}
		if !oracle.HasIndex(index) {
			return nil, ErrIndexMismatch
		}
		if !status.Valid() {
			return nil, Errorf(CodeInvalidParameters, "unknown status code %d", status)
		}
		key := RequestKey{Index: index, Airline: airline, FlightCode: code, Timestamp: timestamp}
		req, ok := s.requests[key]
		if !ok {
			return nil, ErrInvalidParameters
		}
		if _, dup := req.responders[tx.Caller]; dup {
			return nil, ErrDuplicateResponse
		}

		req.responders[tx.Caller] = status
		req.byCode[status] = append(req.byCode[status], tx.Caller)

		received := FlightStatusReceived{
			Oracle:     tx.Caller,
			Airline:    airline,
			FlightCode: code,
			Timestamp:  timestamp,
			StatusCode: status,
		}
		if !req.open || len(req.byCode[status]) < ConsensusResponses {
			return []Event{received}, nil
		}

		req.open = false
		s.applyVerifiedStatus(code, status, timestamp)
		received.Verified = true

		a.logger.Info("Flight status verified",
			logger.String("flight", code),
			logger.String("status", status.String()),
			logger.Int64("timestamp", timestamp))

		events := []Event{received}
		switch status {
		case StatusLateAirline:
			events = append(events, a.creditRefund(s, code)...)
		case StatusUnknown, StatusOnTime, StatusLateWeather, StatusLateTechnical, StatusLateOther:
		}
		return events, nil
	})
}
