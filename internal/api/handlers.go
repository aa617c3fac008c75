package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/flightsurety/internal/storage/sqlite"
	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Handler contains the HTTP handlers for the API
type Handler struct {
	app     *surety.App
	journal *sqlite.EventStorage
	relay   common.Address
	now     func() time.Time
	logger  *logger.Logger
}

// NewHandler creates a new API handler. relay submits status requests for /fetch.
func NewHandler(app *surety.App, journal *sqlite.EventStorage, relay common.Address, log *logger.Logger) *Handler {
	return &Handler{
		app:     app,
		journal: journal,
		relay:   relay,
		now:     time.Now,
		logger:  log.Named("api-handler"),
	}
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  surety.Code `json:"code"`
}

type statusResponse struct {
	Operational   bool           `json:"operational"`
	Owner         common.Address `json:"owner"`
	App           common.Address `json:"app"`
	Authorized    bool           `json:"authorized"`
	Height        uint64         `json:"height"`
	Balance       string         `json:"balance"`
	AirlinesCount int            `json:"airlines_count"`
	FlightsCount  int            `json:"flights_count"`
	Params        paramsResponse `json:"params"`
}

type paramsResponse struct {
	AirlineMinFunding     string `json:"airline_min_funding"`
	OracleRegistrationFee string `json:"oracle_registration_fee"`
	InsuranceCap          string `json:"insurance_cap"`
}

type airlineResponse struct {
	Address common.Address   `json:"address"`
	Status  string           `json:"status"`
	Airline *surety.Airline  `json:"airline,omitempty"`
	Votes   []common.Address `json:"votes,omitempty"`
	Name    string           `json:"name,omitempty"`
}

type flightResponse struct {
	surety.Flight
	Status     string `json:"status"`
	Insurances int    `json:"insurances"`
}

type insuranceResponse struct {
	Passenger       common.Address `json:"passenger"`
	FlightCode      string         `json:"flight_code"`
	AmountPaid      string         `json:"amount_paid"`
	RefundAmount    string         `json:"refund_amount"`
	RefundWithdrawn bool           `json:"refund_withdrawn"`
}

type fetchResponse struct {
	Message string            `json:"message"`
	Request surety.RequestKey `json:"request"`
}

type oracleResponse struct {
	Address common.Address                 `json:"address"`
	Indexes [surety.IndexesPerOracle]uint8 `json:"indexes"`
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}

// GetStatus returns the ledger's operating state and totals
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ledger := h.app.Ledger()
	params := h.app.Params()

	writeJSON(w, http.StatusOK, statusResponse{
		Operational:   ledger.IsOperational(),
		Owner:         ledger.Owner(),
		App:           h.app.Address(),
		Authorized:    ledger.IsAuthorized(h.app.Address()),
		Height:        ledger.Height(),
		Balance:       wei(ledger.Balance()),
		AirlinesCount: ledger.AirlinesCount(),
		FlightsCount:  len(ledger.FlightCodes()),
		Params: paramsResponse{
			AirlineMinFunding:     wei(params.AirlineMinFunding),
			OracleRegistrationFee: wei(params.OracleRegistrationFee),
			InsuranceCap:          wei(params.InsuranceCap),
		},
	})
}

// FetchFlightStatus opens a status request for ?flightCode= from the relay
// account at the current time
func (h *Handler) FetchFlightStatus(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("flightCode"))
	if code == "" {
		writeError(w, surety.Errorf(surety.CodeInvalidParameters, "flightCode is required"))
		return
	}

	key, err := h.app.FetchFlightStatus(r.Context(), surety.Tx{Caller: h.relay}, code, h.now().Unix())
	if err != nil {
		h.requestLogger(r).Info("Status request rejected",
			logger.String("flight", code),
			logger.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fetchResponse{Message: "Request submitted", Request: key})
}

// GetAirlines returns every admitted airline
func (h *Handler) GetAirlines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Ledger().Airlines())
}

// GetAirline returns the admission state of an address
func (h *Handler) GetAirline(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, chi.URLParam(r, "address"))
	if !ok {
		return
	}

	ledger := h.app.Ledger()
	resp := airlineResponse{Address: addr, Status: ledger.AirlineStatus(addr).String()}
	if a, ok := ledger.Airline(addr); ok {
		resp.Airline = &a
	} else if c, ok := ledger.Candidate(addr); ok {
		resp.Name = c.Name
		resp.Votes = c.Voters
	} else {
		writeError(w, surety.Errorf(surety.CodeNotFound, "airline %s is not registered", addr.Hex()))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFlights returns every registered flight
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	ledger := h.app.Ledger()
	flights := ledger.Flights()

	resp := make([]flightResponse, 0, len(flights))
	for _, f := range flights {
		resp = append(resp, flightResponse{Flight: f, Status: f.StatusCode.String(), Insurances: len(ledger.Insurances(f.Code))})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFlight returns one flight's status record
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	ledger := h.app.Ledger()
	code := flightCode(r)

	f, ok := ledger.Flight(code)
	if !ok {
		writeError(w, surety.ErrFlightNotRegistered)
		return
	}
	writeJSON(w, http.StatusOK, flightResponse{Flight: f, Status: f.StatusCode.String(), Insurances: len(ledger.Insurances(code))})
}

// GetInsurance returns a passenger's coverage on a flight
func (h *Handler) GetInsurance(w http.ResponseWriter, r *http.Request) {
	passenger, ok := parseAddress(w, chi.URLParam(r, "passenger"))
	if !ok {
		return
	}
	code := flightCode(r)

	ledger := h.app.Ledger()
	if _, ok := ledger.Flight(code); !ok {
		writeError(w, surety.ErrFlightNotRegistered)
		return
	}
	ins, ok := ledger.Insurance(passenger, code)
	if !ok {
		writeError(w, surety.Errorf(surety.CodeNotFound, "passenger is not insured on flight %s", code))
		return
	}

	writeJSON(w, http.StatusOK, insuranceResponse{
		Passenger:       ins.Passenger,
		FlightCode:      ins.FlightCode,
		AmountPaid:      wei(ins.AmountPaid),
		RefundAmount:    wei(ins.RefundAmount),
		RefundWithdrawn: ins.RefundWithdrawn,
	})
}

// GetOracle returns a registered oracle's indexes
func (h *Handler) GetOracle(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, chi.URLParam(r, "address"))
	if !ok {
		return
	}

	indexes, err := h.app.MyIndexes(surety.Tx{Caller: addr})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, oracleResponse{Address: addr, Indexes: indexes})
}

// GetFlightEvents returns the journaled history of a flight
func (h *Handler) GetFlightEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	code := flightCode(r)
	if _, ok := h.app.Ledger().Flight(code); !ok {
		writeError(w, surety.ErrFlightNotRegistered)
		return
	}

	records, err := h.journal.GetEventsByFlight(r.Context(), code, limit)
	if err != nil {
		h.requestLogger(r).Error("Failed to load flight events", logger.String("flight", code), logger.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetEvents returns the most recent journaled events, optionally of one ?kind=
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	var (
		records []*sqlite.EventRecord
		err     error
	)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		records, err = h.journal.GetEventsByKind(r.Context(), surety.EventKind(kind), limit)
	} else {
		records, err = h.journal.GetRecentEvents(r.Context(), limit)
	}
	if err != nil {
		h.requestLogger(r).Error("Failed to load events", logger.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) requestLogger(r *http.Request) *logger.Logger {
	return h.logger.WithRequestID(middleware.GetReqID(r.Context()))
}

// flightCode reads the {code} path parameter, trimmed like the ledger trims it
func flightCode(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "code"))
}

func parseAddress(w http.ResponseWriter, raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		writeError(w, surety.Errorf(surety.CodeInvalidParameters, "%q is not a valid address", raw))
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultEventLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, surety.Errorf(surety.CodeInvalidParameters, "limit must be a positive integer"))
		return 0, false
	}
	return min(limit, maxEventLimit), true
}

func wei(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func writeError(w http.ResponseWriter, err error) {
	var domainErr *surety.Error
	if errors.As(err, &domainErr) {
		writeJSON(w, domainErr.Code.HTTPStatus(), errorResponse{Error: domainErr.Message, Code: domainErr.Code})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: surety.CodeUnknown})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
