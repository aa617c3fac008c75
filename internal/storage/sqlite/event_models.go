package sqlite

import (
	"encoding/json"
	"time"
)

// EventRecord is one journaled domain event
type EventRecord struct {
	Seq        int64           `json:"seq"`
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	FlightCode string          `json:"flight_code,omitempty"`
	Airline    string          `json:"airline,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}
