package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

// EventStorage journals domain events
type EventStorage struct {
	db     *sql.DB
	now    func() time.Time
	logger *logger.Logger
}

// NewEventStorage creates the journal and its tables
func NewEventStorage(db *sql.DB, log *logger.Logger) (*EventStorage, error) {
	storage := &EventStorage{
		db:     db,
		now:    time.Now,
		logger: log.Named("sqlite-events"),
	}

	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

// initDB initializes the database tables
func (s *EventStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			flight_code TEXT,
			airline TEXT,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_events_flight_code ON events(flight_code)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create event index: %w", err)
		}
	}

	return nil
}

// StoreEvent appends ev to the journal
func (s *EventStorage) StoreEvent(ctx context.Context, ev surety.Event) (*EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Kind(), err)
	}

	flightCode, airline := surety.Subject(ev)
	record := &EventRecord{
		ID:         uuid.NewString(),
		Kind:       string(ev.Kind()),
		FlightCode: flightCode,
		Payload:    payload,
		CreatedAt:  s.now().UTC(),
	}
	if airline != (common.Address{}) {
		record.Airline = airline.Hex()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, kind, flight_code, airline, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Kind,
		nullable(record.FlightCode),
		nullable(record.Airline),
		string(record.Payload),
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	record.Seq, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return record, nil
}

// Consume journals everything delivered to sub until ctx ends or sub is closed.
// Write failures are logged and the event is skipped.
func (s *EventStorage) Consume(ctx context.Context, sub *surety.Subscription) error {
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, surety.ErrSubscriptionClosed) {
				return nil
			}
			return err
		}

		record, err := s.StoreEvent(ctx, ev)
		if err != nil {
			s.logger.Error("Failed to journal event",
				logger.String("kind", string(ev.Kind())),
				logger.Error(err))
			continue
		}
		s.logger.Debug("Event journaled",
			logger.String("kind", record.Kind),
			logger.Int64("seq", record.Seq))
	}
}

// GetEventsByFlight returns the history of a flight, oldest first
func (s *EventStorage) GetEventsByFlight(ctx context.Context, flightCode string, limit int) ([]*EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, kind, flight_code, airline, payload, created_at
		FROM events
		WHERE flight_code = ?
		ORDER BY seq ASC
		LIMIT ?`,
		flightCode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by flight: %w", err)
	}
	defer rows.Close()

	return s.scanEventRows(rows)
}

// GetEventsByKind returns the latest events of one kind, newest first
func (s *EventStorage) GetEventsByKind(ctx context.Context, kind surety.EventKind, limit int) ([]*EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, kind, flight_code, airline, payload, created_at
		FROM events
		WHERE kind = ?
		ORDER BY seq DESC
		LIMIT ?`,
		string(kind), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by kind: %w", err)
	}
	defer rows.Close()

	return s.scanEventRows(rows)
}

// GetRecentEvents returns the latest events, newest first
func (s *EventStorage) GetRecentEvents(ctx context.Context, limit int) ([]*EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, kind, flight_code, airline, payload, created_at
		FROM events
		ORDER BY seq DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	return s.scanEventRows(rows)
}

// scanEventRows scans database rows into EventRecord structs
func (s *EventStorage) scanEventRows(rows *sql.Rows) ([]*EventRecord, error) {
	records := []*EventRecord{}
	for rows.Next() {
		var (
			record              EventRecord
			flightCode, airline sql.NullString
			payload, createdAt  string
		)
		if err := rows.Scan(
			&record.Seq,
			&record.ID,
			&record.Kind,
			&flightCode,
			&airline,
			&payload,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		var err error
		record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		record.FlightCode = flightCode.String
		record.Airline = airline.String
		record.Payload = json.RawMessage(payload)

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return records, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
