package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - live settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Alert events table - one row per stretch of frames in the alert state
		`CREATE TABLE IF NOT EXISTS alert_events (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			peak_span REAL NOT NULL,
			safe_distance REAL NOT NULL,
			unit TEXT NOT NULL,
			threshold_meters REAL NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_alert_events_started_at ON alert_events(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
