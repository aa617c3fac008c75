package surety

import (
	"context"
	"fmt"
	"math/big"

	"github.com/yegors/flightsurety/pkg/logger"
)

// BuyInsurance records the caller's premium (tx.Value) on flight code.
func (a *App) BuyInsurance(ctx context.Context, tx Tx, code string) error {
	code = normalizeFlightCode(code)

	return a.apply("buyInsurance", tx, func(s *state) ([]Event, error) {
		flight, ok := s.flights[code]
		if !ok {
			return nil, ErrFlightNotRegistered
		}
		amount := tx.value()
		if amount.Sign() <= 0 {
			return nil, Errorf(CodeInvalidParameters, "insurance amount must be positive")
		}
		if amount.Cmp(a.params.InsuranceCap) > 0 {
			return nil, Errorf(CodeAmountExceeded, "max insurance amount is %s", FormatEther(a.params.InsuranceCap))
		}
		if existing, ok := flight.insurances[tx.Caller]; ok && existing.AmountPaid.Sign() > 0 {
			return nil, Errorf(CodeAmountExceeded, "passenger is already insured on flight %s", code)
		}

		flight.insurances[tx.Caller] = &Insurance{
			Passenger:    tx.Caller,
			FlightCode:   code,
			AmountPaid:   amount,
			RefundAmount: new(big.Int),
		}
		flight.insured = append(flight.insured, tx.Caller)
		s.balance.Add(s.balance, amount)

		a.logger.Debug("Insurance purchased",
			logger.String("flight", code),
			logger.Address("passenger", tx.Caller),
			logger.Amount("amount", amount))
		return []Event{InsurancePurchased{Passenger: tx.Caller, FlightCode: code, Amount: new(big.Int).Set(amount)}}, nil
	})
}

// creditRefund sets the refund on every policy of code that has neither been
// credited nor withdrawn. Runs inside the finalizing transaction.
func (a *App) creditRefund(s *state, code string) []Event {
	flight := s.flights[code]

	var events []Event
	for _, passenger := range flight.insured {
		ins := flight.insurances[passenger]
		if ins.RefundAmount.Sign() != 0 || ins.RefundWithdrawn {
			continue
		}
		ins.RefundAmount = RefundFor(ins.AmountPaid)

		a.logger.Info("Refund credited",
			logger.String("flight", code),
			logger.Address("passenger", passenger),
			logger.Amount("refund", ins.RefundAmount))
		events = append(events, FlightInsuranceRefundCredited{
			Passenger:    passenger,
			FlightCode:   code,
			RefundAmount: new(big.Int).Set(ins.RefundAmount),
		})
	}
	return events
}

// WithdrawInsuranceRefund pays the caller's credited refund on code. The
// transfer and the bookkeeping happen in the same serialized transaction, so a
// refund can be paid once only.
func (a *App) WithdrawInsuranceRefund(ctx context.Context, tx Tx, code string) error {
	code = normalizeFlightCode(code)

	return a.apply("withdrawInsuranceRefund", tx, func(s *state) ([]Event, error) {
		flight, ok := s.flights[code]
		if !ok {
			return nil, ErrFlightNotRegistered
		}
		ins, ok := flight.insurances[tx.Caller]
		if !ok || ins.RefundAmount.Sign() == 0 {
			return nil, ErrRefundNotIssued
		}
		refund := new(big.Int).Set(ins.RefundAmount)
		if s.balance.Cmp(refund) < 0 {
			return nil, ErrInsufficientBalance
		}

		if err := a.wallet.Transfer(ctx, tx.Caller, refund); err != nil {
			return nil, fmt.Errorf("failed to transfer refund: %w", err)
		}

		s.balance.Sub(s.balance, refund)
		ins.RefundAmount = new(big.Int)
		ins.RefundWithdrawn = true

		a.logger.Info("Refund withdrawn",
			logger.String("flight", code),
			logger.Address("passenger", tx.Caller),
			logger.Amount("amount", refund))
		return []Event{InsuranceRefundWithdrawn{Passenger: tx.Caller, FlightCode: code, Amount: refund}}, nil
	})
}
