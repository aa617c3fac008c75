package surety

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind names a domain event.
type EventKind string

const (
	KindOperatingStatusChanged   EventKind = "ledger.operating_status_changed"
	KindAirlineFunded            EventKind = "airline.funded"
	KindAirlineVoted             EventKind = "airline.voted"
	KindAirlineRegistered        EventKind = "airline.registered"
	KindFlightRegistered         EventKind = "flight.registered"
	KindOracleRegistered         EventKind = "oracle.registered"
	KindFlightStatusRequested    EventKind = "flight.status_requested"
	KindFlightStatusReceived     EventKind = "flight.status_received"
	KindInsurancePurchased       EventKind = "insurance.purchased"
	KindRefundCredited           EventKind = "insurance.refund_credited"
	KindInsuranceRefundWithdrawn EventKind = "insurance.refund_withdrawn"
)

// Event is emitted after a transaction commits.
type Event interface {
	Kind() EventKind
}

type OperatingStatusChanged struct {
	Operational bool           `json:"operational"`
	ChangedBy   common.Address `json:"changed_by"`
}

type AirlineFunded struct {
	Airline common.Address `json:"airline"`
	Amount  *big.Int       `json:"amount"`
}

// AirlineVoted is a vote toward admitting a candidate.
type AirlineVoted struct {
	Candidate common.Address `json:"candidate"`
	Voter     common.Address `json:"voter"`
	Votes     int            `json:"votes"`
	Required  int            `json:"required"`
}

type AirlineRegistered struct {
	Airline      common.Address `json:"airline"`
	Name         string         `json:"name"`
	RegisteredBy common.Address `json:"registered_by"`
}

type FlightRegistered struct {
	Airline    common.Address `json:"airline"`
	FlightCode string         `json:"flight_code"`
}

type OracleRegistered struct {
	Oracle  common.Address          `json:"oracle"`
	Indexes [IndexesPerOracle]uint8 `json:"indexes"`
}

// FlightStatusRequested asks oracles holding OracleIndex to report.
type FlightStatusRequested struct {
	OracleIndex uint8          `json:"oracle_index"`
	Airline     common.Address `json:"airline"`
	FlightCode  string         `json:"flight_code"`
	Timestamp   int64          `json:"timestamp"`
}

// Key returns the request the event announces.
func (e FlightStatusRequested) Key() RequestKey {
	return RequestKey{Index: e.OracleIndex, Airline: e.Airline, FlightCode: e.FlightCode, Timestamp: e.Timestamp}
}

// FlightStatusReceived acknowledges an oracle report. Verified is true only for
// the report that finalized the request.
type FlightStatusReceived struct {
	Oracle     common.Address `json:"oracle"`
	Airline    common.Address `json:"airline"`
	FlightCode string         `json:"flight_code"`
	Timestamp  int64          `json:"timestamp"`
	StatusCode StatusCode     `json:"status_code"`
	Verified   bool           `json:"verified"`
}

type InsurancePurchased struct {
	Passenger  common.Address `json:"passenger"`
	FlightCode string         `json:"flight_code"`
	Amount     *big.Int       `json:"amount"`
}

type FlightInsuranceRefundCredited struct {
	Passenger    common.Address `json:"passenger"`
	FlightCode   string         `json:"flight_code"`
	RefundAmount *big.Int       `json:"refund_amount"`
}

type InsuranceRefundWithdrawn struct {
	Passenger  common.Address `json:"passenger"`
	FlightCode string         `json:"flight_code"`
	Amount     *big.Int       `json:"amount"`
}

func (OperatingStatusChanged) Kind() EventKind        { return KindOperatingStatusChanged }
func (AirlineFunded) Kind() EventKind                 { return KindAirlineFunded }
func (AirlineVoted) Kind() EventKind                  { return KindAirlineVoted }
func (AirlineRegistered) Kind() EventKind             { return KindAirlineRegistered }
func (FlightRegistered) Kind() EventKind              { return KindFlightRegistered }
func (OracleRegistered) Kind() EventKind              { return KindOracleRegistered }
func (FlightStatusRequested) Kind() EventKind         { return KindFlightStatusRequested }
func (FlightStatusReceived) Kind() EventKind          { return KindFlightStatusReceived }
func (InsurancePurchased) Kind() EventKind            { return KindInsurancePurchased }
func (FlightInsuranceRefundCredited) Kind() EventKind { return KindRefundCredited }
func (InsuranceRefundWithdrawn) Kind() EventKind      { return KindInsuranceRefundWithdrawn }

// Subject returns the flight code and airline an event concerns. Either may be zero.
func Subject(ev Event) (string, common.Address) {
	switch e := ev.(type) {
	case OperatingStatusChanged:
		return "", common.Address{}
	case AirlineFunded:
		return "", e.Airline
	case AirlineVoted:
		return "", e.Candidate
	case AirlineRegistered:
		return "", e.Airline
	case FlightRegistered:
		return e.FlightCode, e.Airline
	case OracleRegistered:
		return "", common.Address{}
	case FlightStatusRequested:
		return e.FlightCode, e.Airline
	case FlightStatusReceived:
		return e.FlightCode, e.Airline
	case InsurancePurchased:
		return e.FlightCode, common.Address{}
	case FlightInsuranceRefundCredited:
		return e.FlightCode, common.Address{}
	case InsuranceRefundWithdrawn:
		return e.FlightCode, common.Address{}
	}
	return "", common.Address{}
}
