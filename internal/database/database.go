// Package database persists scan results to MySQL for the downstream
// analysis tools that read them from there.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"artiscan/internal/artifact"
)

// Manager wraps the MySQL connection used for result export.
type Manager struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewManager(db *sql.DB, logger *slog.Logger) *Manager {
	return &Manager{db: db, logger: logger}
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS artifacts (
	id INT AUTO_INCREMENT PRIMARY KEY,
	scan_position INT NOT NULL,
	title VARCHAR(128) NOT NULL,
	set_name VARCHAR(128) NOT NULL,
	slot VARCHAR(16) NOT NULL,
	rarity INT NOT NULL,
	level INT NOT NULL,
	main_stat VARCHAR(64) NOT NULL,
	sub_stats VARCHAR(255) NOT NULL,
	locked BOOLEAN NOT NULL,
	equipped_by VARCHAR(64),
	fingerprint VARCHAR(512) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const createSummarySQL = `
CREATE TABLE IF NOT EXISTS scan_runs (
	id INT AUTO_INCREMENT PRIMARY KEY,
	recorded INT NOT NULL,
	skipped INT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Export writes the snapshot and a run summary row. Implements
// store.Exporter.
func (m *Manager) Export(records []artifact.Record, skipped int) error {
	if _, err := m.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("database: create artifacts table: %w", err)
	}
	if _, err := m.db.Exec(createSummarySQL); err != nil {
		return fmt.Errorf("database: create scan_runs table: %w", err)
	}

	insertSQL := `INSERT INTO artifacts
		(scan_position, title, set_name, slot, rarity, level, main_stat, sub_stats, locked, equipped_by, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, r := range records {
		subs := make([]string, len(r.SubStats))
		for j, s := range r.SubStats {
			subs[j] = s.String()
		}
		_, err := m.db.Exec(insertSQL,
			i, r.Title, r.SetName, string(r.Slot), r.Rarity, r.Level,
			r.MainStat.String(), strings.Join(subs, ","),
			r.Locked, nullable(r.EquippedBy), r.Fingerprint())
		if err != nil {
			return fmt.Errorf("database: insert record %d: %w", i, err)
		}
	}

	if _, err := m.db.Exec(`INSERT INTO scan_runs (recorded, skipped) VALUES (?, ?)`, len(records), skipped); err != nil {
		return fmt.Errorf("database: insert run summary: %w", err)
	}
	m.logger.Info("💾 results exported", "recorded", len(records), "skipped", skipped)
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
