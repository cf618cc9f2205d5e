// Package runstore persists finished calculation runs in a DuckDB file so
// identical inputs can be re-exported without recalculating.
package runstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/pointtable/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// Store is a DuckDB-backed archive of calculation runs. Safe for concurrent
// use through database/sql.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the run archive in the given data directory.
func Open(dataDir string) (*Store, error) {
	return OpenAtPath(filepath.Join(dataDir, "runs.duckdb"))
}

// OpenAtPath creates or opens the run archive at a specific path.
func OpenAtPath(dbPath string) (*Store, error) {
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id               VARCHAR PRIMARY KEY,
			input_hash       VARCHAR NOT NULL,
			catalog_version  VARCHAR NOT NULL,
			item_count       INTEGER NOT NULL,
			assignment_count INTEGER NOT NULL,
			created_at       BIGINT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS assignments (
			run_id         VARCHAR NOT NULL,
			seq            INTEGER NOT NULL,
			module_type    VARCHAR NOT NULL,
			instance       INTEGER NOT NULL,
			channel        INTEGER NOT NULL,
			address        INTEGER NOT NULL,
			tag            VARCHAR NOT NULL,
			class          VARCHAR NOT NULL,
			data_type      VARCHAR NOT NULL,
			target         VARCHAR NOT NULL,
			plc_address    VARCHAR NOT NULL,
			comm_address   INTEGER NOT NULL,
			equipment_id   VARCHAR NOT NULL,
			equipment_name VARCHAR NOT NULL,
			station        VARCHAR,
			range_low      DOUBLE,
			range_high     DOUBLE,
			has_range      BOOLEAN NOT NULL,
			extensions     BLOB
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create assignments table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunRecord is the persisted metadata of one run.
type RunRecord struct {
	ID              string
	InputHash       string
	CatalogVersion  string
	ItemCount       int
	AssignmentCount int
	CreatedAt       time.Time
}

// InsertRun stores a run and its full assignment sequence atomically.
func (s *Store) InsertRun(rec RunRecord, assignments []models.ChannelAssignment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, input_hash, catalog_version, item_count, assignment_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.InputHash, rec.CatalogVersion, rec.ItemCount, len(assignments), rec.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO assignments (
			run_id, seq, module_type, instance, channel, address, tag, class,
			data_type, target, plc_address, comm_address,
			equipment_id, equipment_name, station, range_low, range_high, has_range,
			extensions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for seq, a := range assignments {
		var low, high sql.NullFloat64
		if a.Range != nil {
			low = sql.NullFloat64{Float64: a.Range.Low, Valid: true}
			high = sql.NullFloat64{Float64: a.Range.High, Valid: true}
		}
		var extBlob []byte
		if len(a.Extensions) > 0 {
			extBlob, err = msgpack.Marshal(a.Extensions)
			if err != nil {
				return fmt.Errorf("failed to encode extensions for assignment %d: %w", seq, err)
			}
		}
		if _, err := stmt.Exec(
			rec.ID, seq, a.ModuleType, a.Instance, a.Channel, a.Address, a.Tag,
			string(a.Class), string(a.DataType), a.Target, a.PLCAddress, a.CommAddress,
			a.EquipmentID, a.EquipmentName, a.Station, low, high, a.Range != nil,
			extBlob,
		); err != nil {
			return fmt.Errorf("failed to insert assignment %d: %w", seq, err)
		}
	}

	return tx.Commit()
}

// FindRun returns the most recent run matching the memoization key, or nil
// when no run matches.
func (s *Store) FindRun(inputHash, catalogVersion string) (*RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, input_hash, catalog_version, item_count, assignment_count, created_at
		 FROM runs WHERE input_hash = ? AND catalog_version = ?
		 ORDER BY created_at DESC LIMIT 1`,
		inputHash, catalogVersion,
	)
	return scanRun(row)
}

// GetRun returns a run by id, or nil when absent.
func (s *Store) GetRun(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, input_hash, catalog_version, item_count, assignment_count, created_at
		 FROM runs WHERE id = ?`, runID,
	)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*RunRecord, error) {
	var rec RunRecord
	var createdAt int64
	err := row.Scan(&rec.ID, &rec.InputHash, &rec.CatalogVersion, &rec.ItemCount, &rec.AssignmentCount, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	return &rec, nil
}

// Assignments returns the full assignment sequence of a run in allocation
// order.
func (s *Store) Assignments(runID string) ([]models.ChannelAssignment, error) {
	return s.queryAssignments(
		`SELECT module_type, instance, channel, address, tag, class, data_type, target,
		        plc_address, comm_address, equipment_id, equipment_name, station,
		        range_low, range_high, has_range, extensions
		 FROM assignments WHERE run_id = ? ORDER BY seq`, runID)
}

// AssignmentsByClass returns a run's assignments filtered to one signal
// class, preserving allocation order.
func (s *Store) AssignmentsByClass(runID string, class models.SignalClass) ([]models.ChannelAssignment, error) {
	return s.queryAssignments(
		`SELECT module_type, instance, channel, address, tag, class, data_type, target,
		        plc_address, comm_address, equipment_id, equipment_name, station,
		        range_low, range_high, has_range, extensions
		 FROM assignments WHERE run_id = ? AND class = ? ORDER BY seq`, runID, string(class))
}

func (s *Store) queryAssignments(query string, args ...any) ([]models.ChannelAssignment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	out := make([]models.ChannelAssignment, 0, 64)
	for rows.Next() {
		var a models.ChannelAssignment
		var class, dataType string
		var station sql.NullString
		var low, high sql.NullFloat64
		var hasRange bool
		var extBlob []byte
		if err := rows.Scan(
			&a.ModuleType, &a.Instance, &a.Channel, &a.Address, &a.Tag,
			&class, &dataType, &a.Target, &a.PLCAddress, &a.CommAddress,
			&a.EquipmentID, &a.EquipmentName, &station, &low, &high, &hasRange,
			&extBlob,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Class = models.SignalClass(class)
		a.DataType = models.DataType(dataType)
		a.Station = station.String
		if hasRange {
			a.Range = &models.EngineeringRange{Low: low.Float64, High: high.Float64}
		}
		if len(extBlob) > 0 {
			if err := msgpack.Unmarshal(extBlob, &a.Extensions); err != nil {
				return nil, fmt.Errorf("failed to decode extensions: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its assignments.
func (s *Store) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM assignments WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return tx.Commit()
}
