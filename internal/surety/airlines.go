package surety

import (
	"context"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yegors/flightsurety/pkg/logger"
)

// ConsensusThreshold is the admitted-airline count from which new admissions need votes.
const ConsensusThreshold = 4

// VotesRequired is ceil(admitted/2), evaluated at the time of each vote.
func VotesRequired(admitted int) int {
	return (admitted + 1) / 2
}

// FundAirline records the caller's contribution. The first contribution at or
// above the minimum marks the airline funded; later ones are accepted into
// escrow without further effect.
func (a *App) FundAirline(ctx context.Context, tx Tx) error {
	return a.apply("fund", tx, func(s *state) ([]Event, error) {
		airline, ok := s.airlines[tx.Caller]
		if !ok {
			return nil, ErrCallerNotAirline
		}
		amount := tx.value()
		if amount.Cmp(a.params.AirlineMinFunding) < 0 {
			return nil, Errorf(CodeInsufficientFunding,
				"funding of %s is below the minimum of %s", FormatEther(amount), FormatEther(a.params.AirlineMinFunding))
		}

		s.balance.Add(s.balance, amount)
		if airline.HasFunded {
			return nil, nil
		}
		airline.HasFunded = true

		a.logger.Info("Airline funded",
			logger.Address("airline", tx.Caller),
			logger.Amount("amount", amount))
		return []Event{AirlineFunded{Airline: tx.Caller, Amount: amount}}, nil
	})
}

// RegisterAirline admits newAirline directly while fewer than ConsensusThreshold
// airlines are admitted; afterwards each call is the caller's vote for it.
func (a *App) RegisterAirline(ctx context.Context, tx Tx, newAirline common.Address, name string) error {
	return a.apply("registerAirline", tx, func(s *state) ([]Event, error) {
		caller, ok := s.airlines[tx.Caller]
		if !ok {
			return nil, ErrCallerNotAirline
		}
		if !caller.HasFunded {
			return nil, ErrInsufficientFunding
		}
		if newAirline == (common.Address{}) {
			return nil, Errorf(CodeInvalidParameters, "airline address is required")
		}
		if _, ok := s.airlines[newAirline]; ok {
			return nil, Errorf(CodeAlreadyRegistered, "airline is already registered")
		}
		name = strings.TrimSpace(name)

		admitted := len(s.airlines)
		if admitted < ConsensusThreshold {
			s.admit(newAirline, name)
			a.logger.Info("Airline admitted",
				logger.Address("airline", newAirline),
				logger.String("name", name),
				logger.Address("by", tx.Caller))
			return []Event{AirlineRegistered{Airline: newAirline, Name: name, RegisteredBy: tx.Caller}}, nil
		}

		c, pending := s.candidates[newAirline]
		if pending && slices.Contains(c.voters, tx.Caller) {
			return nil, ErrAlreadyVoted
		}
		if !pending {
			c = &candidate{name: name}
			s.candidates[newAirline] = c
		}
		c.voters = append(c.voters, tx.Caller)

		required := VotesRequired(admitted)
		events := []Event{AirlineVoted{
			Candidate: newAirline,
			Voter:     tx.Caller,
			Votes:     len(c.voters),
			Required:  required,
		}}

		if len(c.voters) < required {
			a.logger.Debug("Airline vote recorded",
				logger.Address("candidate", newAirline),
				logger.Int("votes", len(c.voters)),
				logger.Int("required", required))
			return events, nil
		}

		s.admit(newAirline, c.name)
		a.logger.Info("Airline admitted by vote",
			logger.Address("airline", newAirline),
			logger.String("name", c.name),
			logger.Int("votes", len(c.voters)))
		return append(events, AirlineRegistered{Airline: newAirline, Name: c.name, RegisteredBy: tx.Caller}), nil
	})
}
