package surety

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// StatusCode is the reported state of a flight.
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

// StatusCodes lists every valid status code in ascending order.
var StatusCodes = []StatusCode{
	StatusUnknown,
	StatusOnTime,
	StatusLateAirline,
	StatusLateWeather,
	StatusLateTechnical,
	StatusLateOther,
}

// Valid reports whether c is one of the six defined codes.
func (c StatusCode) Valid() bool {
	switch c {
	case StatusUnknown, StatusOnTime, StatusLateAirline, StatusLateWeather, StatusLateTechnical, StatusLateOther:
		return true
	}
	return false
}

func (c StatusCode) String() string {
	switch c {
	case StatusUnknown:
		return "unknown"
	case StatusOnTime:
		return "on_time"
	case StatusLateAirline:
		return "late_airline"
	case StatusLateWeather:
		return "late_weather"
	case StatusLateTechnical:
		return "late_technical"
	case StatusLateOther:
		return "late_other"
	}
	return fmt.Sprintf("status(%d)", uint8(c))
}

// Tx is the explicit context of a transaction: who submits it and what value it carries.
type Tx struct {
	Caller common.Address
	Value  *big.Int
}

func (tx Tx) value() *big.Int {
	if tx.Value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(tx.Value)
}

// AirlineStatus is the admission state of an address.
type AirlineStatus int

const (
	AirlineUnregistered AirlineStatus = iota
	AirlinePending
	AirlineAdmitted
)

func (s AirlineStatus) String() string {
	switch s {
	case AirlinePending:
		return "pending"
	case AirlineAdmitted:
		return "admitted"
	default:
		return "unregistered"
	}
}

// Airline is an admitted airline.
type Airline struct {
	Address   common.Address `json:"address"`
	Name      string         `json:"name"`
	HasFunded bool           `json:"has_funded"`
}

// Candidate is an airline waiting for enough votes to be admitted.
type Candidate struct {
	Address common.Address   `json:"address"`
	Name    string           `json:"name"`
	Voters  []common.Address `json:"voters"`
}

// Flight is the status record of a registered flight.
type Flight struct {
	Code       string         `json:"code"`
	Airline    common.Address `json:"airline"`
	StatusCode StatusCode     `json:"status_code"`
	Verified   bool           `json:"verified"`
	UpdatedAt  int64          `json:"updated_at"`
}

// Insurance is a passenger's coverage on one flight.
type Insurance struct {
	Passenger       common.Address `json:"passenger"`
	FlightCode      string         `json:"flight_code"`
	AmountPaid      *big.Int       `json:"amount_paid"`
	RefundAmount    *big.Int       `json:"refund_amount"`
	RefundWithdrawn bool           `json:"refund_withdrawn"`
}

func (i *Insurance) clone() Insurance {
	return Insurance{
		Passenger:       i.Passenger,
		FlightCode:      i.FlightCode,
		AmountPaid:      new(big.Int).Set(i.AmountPaid),
		RefundAmount:    new(big.Int).Set(i.RefundAmount),
		RefundWithdrawn: i.RefundWithdrawn,
	}
}

// Oracle is a registered status reporter.
type Oracle struct {
	Address common.Address          `json:"address"`
	Indexes [IndexesPerOracle]uint8 `json:"indexes"`
}

// HasIndex reports whether index is one of the oracle's assigned indexes.
func (o Oracle) HasIndex(index uint8) bool {
	return slices.Contains(o.Indexes[:], index)
}

// RequestKey identifies one status request.
type RequestKey struct {
	Index      uint8          `json:"index"`
	Airline    common.Address `json:"airline"`
	FlightCode string         `json:"flight_code"`
	Timestamp  int64          `json:"timestamp"`
}

// StatusRequest is a snapshot of the tally for one request.
type StatusRequest struct {
	Key       RequestKey                      `json:"key"`
	Requester common.Address                  `json:"requester"`
	Open      bool                            `json:"open"`
	Responses map[StatusCode][]common.Address `json:"responses"`
}

// Support returns how many oracles reported code.
func (r StatusRequest) Support(code StatusCode) int {
	return len(r.Responses[code])
}
