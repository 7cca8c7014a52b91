package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS alerts (
		id              BIGSERIAL PRIMARY KEY,
		vehicle_id      TEXT NOT NULL,
		location        TEXT NOT NULL,
		duration        DOUBLE PRECISION NOT NULL,
		violation_type  TEXT NOT NULL DEFAULT 'no_parking_zone',
		emitted_at      TIMESTAMPTZ NOT NULL,
		details         JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_emitted_at ON alerts(emitted_at);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_vehicle_location ON alerts(vehicle_id, location);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
