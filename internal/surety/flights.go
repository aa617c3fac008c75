package surety

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yegors/flightsurety/pkg/logger"
)

// RegisterFlight creates the status record for code, owned by the calling airline.
func (a *App) RegisterFlight(ctx context.Context, tx Tx, code string) error {
	code = normalizeFlightCode(code)

	return a.apply("registerFlight", tx, func(s *state) ([]Event, error) {
		if _, ok := s.airlines[tx.Caller]; !ok {
			return nil, ErrCallerNotAirline
		}
		if code == "" {
			return nil, Errorf(CodeInvalidParameters, "flight code is required")
		}
		if _, ok := s.flights[code]; ok {
			return nil, Errorf(CodeAlreadyRegistered, "flight %s is already registered", code)
		}

		s.flights[code] = &flightRecord{
			Flight: Flight{
				Code:       code,
				Airline:    tx.Caller,
				StatusCode: StatusUnknown,
			},
			insurances: make(map[common.Address]*Insurance),
		}
		s.flightOrder = append(s.flightOrder, code)

		a.logger.Debug("Flight registered",
			logger.String("flight", code),
			logger.Address("airline", tx.Caller))
		return []Event{FlightRegistered{Airline: tx.Caller, FlightCode: code}}, nil
	})
}
