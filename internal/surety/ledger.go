package surety

import (
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/yegors/flightsurety/pkg/logger"
)

// LedgerConfig seeds a new ledger.
type LedgerConfig struct {
	Owner            common.Address
	FirstAirline     common.Address
	FirstAirlineName string
}

// Ledger holds all shared state. Mutations happen only through an authorized
// App, one transaction at a time.
type Ledger struct {
	mu          sync.RWMutex
	owner       common.Address
	operational bool
	authorized  map[common.Address]bool
	state       *state
	events      Publisher
	logger      *logger.Logger
}

type state struct {
	height       uint64
	balance      *big.Int
	airlines     map[common.Address]*Airline
	airlineOrder []common.Address
	candidates   map[common.Address]*candidate
	flights      map[string]*flightRecord
	flightOrder  []string
	oracles      map[common.Address]*Oracle
	requests     map[RequestKey]*statusRequest
}

type candidate struct {
	name   string
	voters []common.Address
}

type flightRecord struct {
	Flight
	insured    []common.Address
	insurances map[common.Address]*Insurance
}

type statusRequest struct {
	requester  common.Address
	open       bool
	responders map[common.Address]StatusCode
	byCode     map[StatusCode][]common.Address
}

// NewLedger creates an operational ledger and admits the first airline, unfunded.
func NewLedger(cfg LedgerConfig, events Publisher, log *logger.Logger) (*Ledger, error) {
	if cfg.Owner == (common.Address{}) {
		return nil, fmt.Errorf("ledger owner is required")
	}
	if cfg.FirstAirline == (common.Address{}) {
		return nil, fmt.Errorf("first airline address is required")
	}
	if events == nil {
		events = discard{}
	}

	l := &Ledger{
		owner:       cfg.Owner,
		operational: true,
		authorized:  map[common.Address]bool{cfg.Owner: true},
		state: &state{
			balance:    new(big.Int),
			airlines:   make(map[common.Address]*Airline),
			candidates: make(map[common.Address]*candidate),
			flights:    make(map[string]*flightRecord),
			oracles:    make(map[common.Address]*Oracle),
			requests:   make(map[RequestKey]*statusRequest),
		},
		events: events,
		logger: log.Named("ledger"),
	}
	l.state.admit(cfg.FirstAirline, cfg.FirstAirlineName)

	l.logger.Info("Ledger bootstrapped",
		logger.Address("owner", cfg.Owner),
		logger.Address("first_airline", cfg.FirstAirline),
		logger.String("first_airline_name", cfg.FirstAirlineName))

	return l, nil
}

func (s *state) admit(addr common.Address, name string) {
	s.airlines[addr] = &Airline{Address: addr, Name: name}
	s.airlineOrder = append(s.airlineOrder, addr)
	delete(s.candidates, addr)
}

func (s *state) applyVerifiedStatus(code string, status StatusCode, timestamp int64) {
	f := s.flights[code]
	f.StatusCode = status
	f.Verified = true
	f.UpdatedAt = timestamp
}

func (l *Ledger) read(fn func(s *state)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(l.state)
}

// Height is the number of committed transactions.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.height
}

// Balance is the value held in escrow.
func (l *Ledger) Balance() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.state.balance)
}

// Airline returns an admitted airline.
func (l *Ledger) Airline(addr common.Address) (Airline, bool) {
	var (
		out Airline
		ok  bool
	)
	l.read(func(s *state) {
		var a *Airline
		if a, ok = s.airlines[addr]; ok {
			out = *a
		}
	})
	return out, ok
}

// Candidate returns a pending airline and its voters.
func (l *Ledger) Candidate(addr common.Address) (Candidate, bool) {
	var (
		out Candidate
		ok  bool
	)
	l.read(func(s *state) {
		var c *candidate
		if c, ok = s.candidates[addr]; ok {
			out = Candidate{Address: addr, Name: c.name, Voters: slices.Clone(c.voters)}
		}
	})
	return out, ok
}

// AirlineStatus reports the admission state of addr.
func (l *Ledger) AirlineStatus(addr common.Address) AirlineStatus {
	status := AirlineUnregistered
	l.read(func(s *state) {
		if _, ok := s.airlines[addr]; ok {
			status = AirlineAdmitted
		} else if _, ok := s.candidates[addr]; ok {
			status = AirlinePending
		}
	})
	return status
}

// Airlines returns admitted airlines in admission order.
func (l *Ledger) Airlines() []Airline {
	var out []Airline
	l.read(func(s *state) {
		out = make([]Airline, 0, len(s.airlineOrder))
		for _, addr := range s.airlineOrder {
			out = append(out, *s.airlines[addr])
		}
	})
	return out
}

// AirlineNames returns admitted airline names in admission order.
func (l *Ledger) AirlineNames() []string {
	airlines := l.Airlines()
	names := make([]string, len(airlines))
	for i, a := range airlines {
		names[i] = a.Name
	}
	return names
}

// AirlinesCount is the number of admitted airlines.
func (l *Ledger) AirlinesCount() int {
	var n int
	l.read(func(s *state) { n = len(s.airlines) })
	return n
}

// FlightCodes returns registered flight codes in registration order.
func (l *Ledger) FlightCodes() []string {
	var out []string
	l.read(func(s *state) { out = slices.Clone(s.flightOrder) })
	return out
}

// Flight returns the status record of a flight.
func (l *Ledger) Flight(code string) (Flight, bool) {
	var (
		out Flight
		ok  bool
	)
	l.read(func(s *state) {
		var f *flightRecord
		if f, ok = s.flights[code]; ok {
			out = f.Flight
		}
	})
	return out, ok
}

// Flights returns every flight in registration order.
func (l *Ledger) Flights() []Flight {
	var out []Flight
	l.read(func(s *state) {
		out = make([]Flight, 0, len(s.flightOrder))
		for _, code := range s.flightOrder {
			out = append(out, s.flights[code].Flight)
		}
	})
	return out
}

// Insurance returns a passenger's coverage on a flight.
func (l *Ledger) Insurance(passenger common.Address, code string) (Insurance, bool) {
	var (
		out Insurance
		ok  bool
	)
	l.read(func(s *state) {
		f, exists := s.flights[code]
		if !exists {
			return
		}
		var ins *Insurance
		if ins, ok = f.insurances[passenger]; ok {
			out = ins.clone()
		}
	})
	return out, ok
}

// Insurances returns every policy on a flight in purchase order.
func (l *Ledger) Insurances(code string) []Insurance {
	var out []Insurance
	l.read(func(s *state) {
		f, ok := s.flights[code]
		if !ok {
			return
		}
		out = make([]Insurance, 0, len(f.insured))
		for _, p := range f.insured {
			out = append(out, f.insurances[p].clone())
		}
	})
	return out
}

// Oracle returns a registered oracle.
func (l *Ledger) Oracle(addr common.Address) (Oracle, bool) {
	var (
		out Oracle
		ok  bool
	)
	l.read(func(s *state) {
		var o *Oracle
		if o, ok = s.oracles[addr]; ok {
			out = *o
		}
	})
	return out, ok
}

// StatusRequest returns a snapshot of a request's tally.
func (l *Ledger) StatusRequest(key RequestKey) (StatusRequest, bool) {
	var (
		out StatusRequest
		ok  bool
	)
	l.read(func(s *state) {
		var r *statusRequest
		if r, ok = s.requests[key]; ok {
			out = StatusRequest{
				Key:       key,
				Requester: r.requester,
				Open:      r.open,
				Responses: make(map[StatusCode][]common.Address, len(r.byCode)),
			}
			for code, oracles := range r.byCode {
				out.Responses[code] = slices.Clone(oracles)
			}
		}
	})
	return out, ok
}

func normalizeFlightCode(code string) string {
	return strings.TrimSpace(code)
}
