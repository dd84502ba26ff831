package store

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ayusman/safedistance/internal/settings"
)

// Setting keys.
const (
	KeySafeDistance     = "safe_distance"
	KeySafeDistanceUnit = "safe_distance_unit"
	KeyShowDistance     = "show_distance"
	KeyVisualizeZ       = "visualize_z"
	KeyRescaleZ         = "rescale_z"
)

// SettingsRepository persists the live settings as key-value pairs.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the raw value for key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// Set stores the raw value for key.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Load reads the stored settings. Keys that were never saved keep the value
// from defaults. The result is not validated.
func (r *SettingsRepository) Load(defaults settings.Settings) (settings.Settings, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return defaults, err
	}
	defer rows.Close()

	s := defaults
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return defaults, err
		}

		switch key {
		case KeySafeDistance:
			s.SafeDistance.Value, err = strconv.ParseFloat(value, 64)
		case KeySafeDistanceUnit:
			s.SafeDistance.Unit = value
		case KeyShowDistance:
			s.ShowDistance, err = strconv.ParseBool(value)
		case KeyVisualizeZ:
			s.VisualizeZ, err = strconv.ParseBool(value)
		case KeyRescaleZ:
			s.RescaleZ, err = strconv.ParseBool(value)
		}
		if err != nil {
			return defaults, fmt.Errorf("setting %s: %w", key, err)
		}
	}

	if err := rows.Err(); err != nil {
		return defaults, err
	}
	return s, nil
}

// Save writes all settings in one transaction.
func (r *SettingsRepository) Save(s settings.Settings) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	values := map[string]string{
		KeySafeDistance:     strconv.FormatFloat(s.SafeDistance.Value, 'g', -1, 64),
		KeySafeDistanceUnit: s.SafeDistance.Unit,
		KeyShowDistance:     strconv.FormatBool(s.ShowDistance),
		KeyVisualizeZ:       strconv.FormatBool(s.VisualizeZ),
		KeyRescaleZ:         strconv.FormatBool(s.RescaleZ),
	}
	for key, value := range values {
		if _, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}
