package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tapsense-data/tapsense/internal/trigger"
)

// ErrNotFound is returned when a measurement ID does not exist.
var ErrNotFound = errors.New("measurement not found")

// Measurement is one persisted measurement attempt.
type Measurement struct {
	ID                  string    `json:"id"`
	CreatedAt           time.Time `json:"created_at"`
	Status              string    `json:"status"`
	Confidence          float64   `json:"confidence"`
	PowerDb             float64   `json:"power_db"`
	DominantFrequencyHz float64   `json:"dominant_frequency_hz"`
	SpectralFlatness    float64   `json:"spectral_flatness"`
	TriggerMode         string    `json:"trigger_mode"`
	HandshakeCompleted  bool      `json:"handshake_completed"`
	HandshakeLatencyMs  *int64    `json:"handshake_latency_ms,omitempty"`
	SampleCount         int64     `json:"sample_count"`
	Complete            bool      `json:"complete"`
	Notes               *string   `json:"notes,omitempty"`
}

// NewMeasurement converts a coordinator result into a persistable row with a
// fresh ID. The effective (post-downgrade) trigger mode is what gets stored.
func NewMeasurement(m *trigger.Measurement) *Measurement {
	return &Measurement{
		ID:                  uuid.NewString(),
		CreatedAt:           time.Now().UTC(),
		Status:              string(m.Result.Classification.Status),
		Confidence:          m.Result.Classification.Confidence,
		PowerDb:             m.Result.Features.PowerDb,
		DominantFrequencyHz: m.Result.Features.DominantFrequencyHz,
		SpectralFlatness:    m.Result.Features.SpectralFlatness,
		TriggerMode:         string(m.EffectiveMode),
		HandshakeCompleted:  m.Handshake.Completed,
		HandshakeLatencyMs:  m.Handshake.LatencyMs,
		SampleCount:         int64(m.Result.SampleCount),
		Complete:            m.Result.Complete,
	}
}

// RecordMeasurement inserts a measurement row.
func (db *DB) RecordMeasurement(m *Measurement) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(`
		INSERT INTO measurements (
			id, created_at, status, confidence, power_db,
			dominant_frequency_hz, spectral_flatness, trigger_mode,
			handshake_completed, handshake_latency_ms, sample_count,
			complete, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.CreatedAt,
		m.Status,
		m.Confidence,
		m.PowerDb,
		m.DominantFrequencyHz,
		m.SpectralFlatness,
		m.TriggerMode,
		boolToInt(m.HandshakeCompleted),
		m.HandshakeLatencyMs,
		m.SampleCount,
		boolToInt(m.Complete),
		m.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to record measurement: %w", err)
	}
	return nil
}

// GetMeasurement fetches one measurement by ID.
func (db *DB) GetMeasurement(id string) (*Measurement, error) {
	row := db.QueryRow(`
		SELECT id, created_at, status, confidence, power_db,
		       dominant_frequency_hz, spectral_flatness, trigger_mode,
		       handshake_completed, handshake_latency_ms, sample_count,
		       complete, notes
		FROM measurements WHERE id = ?`, id)

	m, err := scanMeasurement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get measurement %s: %w", id, err)
	}
	return m, nil
}

// ListMeasurements returns the newest measurements first, capped at limit.
// A non-positive limit defaults to 100.
func (db *DB) ListMeasurements(limit int) ([]*Measurement, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Query(`
		SELECT id, created_at, status, confidence, power_db,
		       dominant_frequency_hz, spectral_flatness, trigger_mode,
		       handshake_completed, handshake_latency_ms, sample_count,
		       complete, notes
		FROM measurements
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}
	defer rows.Close()

	var out []*Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMeasurement removes one measurement by ID.
func (db *DB) DeleteMeasurement(id string) error {
	result, err := db.Exec(`DELETE FROM measurements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete measurement %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row rowScanner) (*Measurement, error) {
	var (
		m                  Measurement
		handshakeCompleted int
		complete           int
	)
	err := row.Scan(
		&m.ID,
		&m.CreatedAt,
		&m.Status,
		&m.Confidence,
		&m.PowerDb,
		&m.DominantFrequencyHz,
		&m.SpectralFlatness,
		&m.TriggerMode,
		&handshakeCompleted,
		&m.HandshakeLatencyMs,
		&m.SampleCount,
		&complete,
		&m.Notes,
	)
	if err != nil {
		return nil, err
	}
	m.HandshakeCompleted = handshakeCompleted != 0
	m.Complete = complete != 0
	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
