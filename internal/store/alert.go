package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AlertEvent is one stretch of consecutive frames in the alert state.
type AlertEvent struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	PeakSpan        float64    `json:"peak_span"`
	SafeDistance    float64    `json:"safe_distance"`
	Unit            string     `json:"unit"`
	ThresholdMeters float64    `json:"threshold_meters"`
}

// Active reports whether the event has not ended.
func (e *AlertEvent) Active() bool {
	return e.EndedAt == nil
}

// AlertRepository provides access to alert events.
type AlertRepository struct {
	db *sql.DB
}

// Alerts returns the alert repository for this store.
func (s *Store) Alerts() *AlertRepository {
	return &AlertRepository{db: s.db}
}

// Create inserts a new event. An empty ID is replaced with a new UUID and a
// zero StartedAt with the current time.
func (r *AlertRepository) Create(e *AlertEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO alert_events (id, started_at, ended_at, peak_span, safe_distance, unit, threshold_meters)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StartedAt, e.EndedAt, e.PeakSpan, e.SafeDistance, e.Unit, e.ThresholdMeters,
	)
	return err
}

// End closes an active event, recording the end time and the peak span.
func (r *AlertRepository) End(id string, endedAt time.Time, peakSpan float64) error {
	result, err := r.db.Exec(
		`UPDATE alert_events SET ended_at = ?, peak_span = MAX(peak_span, ?)
		 WHERE id = ? AND ended_at IS NULL`,
		endedAt, peakSpan, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves an event by its ID.
func (r *AlertRepository) GetByID(id string) (*AlertEvent, error) {
	row := r.db.QueryRow(
		`SELECT id, started_at, ended_at, peak_span, safe_distance, unit, threshold_meters
		 FROM alert_events WHERE id = ?`,
		id,
	)

	e, err := scanAlertEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List retrieves the most recent events, newest first. A limit of zero or
// less returns all events.
func (r *AlertRepository) List(limit int) ([]*AlertEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, peak_span, safe_distance, unit, threshold_meters
		 FROM alert_events ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*AlertEvent
	for rows.Next() {
		e, err := scanAlertEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CloseActive ends every event left open, as after an unclean shutdown.
func (r *AlertRepository) CloseActive(endedAt time.Time) (int64, error) {
	result, err := r.db.Exec(`UPDATE alert_events SET ended_at = ? WHERE ended_at IS NULL`, endedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlertEvent(row scanner) (*AlertEvent, error) {
	e := &AlertEvent{}
	var ended sql.NullTime

	err := row.Scan(&e.ID, &e.StartedAt, &ended, &e.PeakSpan, &e.SafeDistance, &e.Unit, &e.ThresholdMeters)
	if err != nil {
		return nil, err
	}

	if ended.Valid {
		t := ended.Time
		e.EndedAt = &t
	}
	return e, nil
}
