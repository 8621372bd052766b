package records

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/maintrack/maintrack/pkg/types"
	"github.com/maintrack/maintrack/server/internal/config"
)

var (
	// ErrUnknownDriver is returned by Open for a driver other than
	// sqlite, mysql or postgres.
	ErrUnknownDriver = errors.New("records: unknown driver")

	// ErrInvalidLimit is returned by Rows when limit is not positive.
	ErrInvalidLimit = errors.New("records: limit must be positive")

	// ErrUnknownTable is returned by Rows for a table outside types.AllTables.
	ErrUnknownTable = errors.New("records: unknown table")
)

//go:embed schema.sql
var schemaSQL string

// SQLSource reads maintrack tables through database/sql.
// It is safe for concurrent use.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// Open connects to the database described by cfg. The connection is verified
// lazily; call Ping to check it eagerly.
func Open(cfg config.DatabaseConfig) (*SQLSource, error) {
	var driverName string
	switch cfg.Driver {
	case "sqlite":
		driverName = "sqlite3"
	case "mysql", "postgres":
		driverName = cfg.Driver
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.EffectiveDSN())
	if err != nil {
		return nil, fmt.Errorf("records: open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == "mysql" {
		// Settings recommended by the mysql driver README.
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}

	return NewSQLSource(db, cfg.Driver), nil
}

// NewSQLSource wraps an already open handle. driver selects the placeholder
// syntax and must be one of sqlite, mysql or postgres.
func NewSQLSource(db *sql.DB, driver string) *SQLSource {
	return &SQLSource{db: db, driver: driver}
}

// DB returns the underlying handle.
func (s *SQLSource) DB() *sql.DB { return s.db }

// Close closes the underlying handle.
func (s *SQLSource) Close() error { return s.db.Close() }

// Ping verifies the database is reachable.
func (s *SQLSource) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("records: ping: %w", err)
	}
	return nil
}

// EnsureSchema creates the maintrack tables if they do not exist yet.
func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	if s.driver != "sqlite" {
		return fmt.Errorf("records: auto migration is only supported for sqlite, not %s", s.driver)
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("records: create schema: %w", err)
	}
	slog.Info("records: schema ensured", "driver", s.driver)
	return nil
}

// Rows returns up to limit records of table in primary key order.
func (s *SQLSource) Rows(ctx context.Context, table types.Table, limit int) (types.Rows, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	switch table {
	case types.Equipments:
		out, err := queryAll(ctx, s, table,
			"SELECT equipment_id, name, inventory_number, location, commission_date FROM equipment ORDER BY equipment_id",
			limit, func(r *sql.Rows, e *types.Equipment) error {
				return r.Scan(&e.EquipmentID, &e.Name, &e.InventoryNumber, &e.Location, &e.CommissionDate)
			})
		if err != nil {
			return nil, err
		}
		return types.EquipmentRows(out), nil

	case types.Employees:
		out, err := queryAll(ctx, s, table,
			"SELECT employee_id, full_name, position FROM employees ORDER BY employee_id",
			limit, func(r *sql.Rows, e *types.Employee) error {
				return r.Scan(&e.EmployeeID, &e.FullName, &e.Position)
			})
		if err != nil {
			return nil, err
		}
		return types.EmployeeRows(out), nil

	case types.MaintenanceTypes:
		out, err := queryAll(ctx, s, table,
			"SELECT maintenance_type_id, description FROM maintenance_types ORDER BY maintenance_type_id",
			limit, func(r *sql.Rows, m *types.MaintenanceType) error {
				return r.Scan(&m.MaintenanceTypeID, &m.Description)
			})
		if err != nil {
			return nil, err
		}
		return types.MaintenanceTypeRows(out), nil

	case types.CompletedWorks:
		out, err := queryAll(ctx, s, table,
			`SELECT completed_maintenance_id, maintenance_type_id, equipment_id, completion_date,
			        responsible_employee_id, actual_cost
			 FROM completed_works ORDER BY completed_maintenance_id`,
			limit, func(r *sql.Rows, c *types.CompletedWork) error {
				return r.Scan(&c.CompletedMaintenanceID, &c.MaintenanceTypeID, &c.EquipmentID,
					&c.CompletionDate, &c.ResponsibleEmployeeID, &c.ActualCost)
			})
		if err != nil {
			return nil, err
		}
		return types.CompletedWorkRows(out), nil

	case types.MaintenanceSchedules:
		out, err := queryAll(ctx, s, table,
			`SELECT schedule_id, equipment_id, maintenance_type_id, scheduled_date,
			        responsible_employee_id, estimated_cost
			 FROM maintenance_schedules ORDER BY schedule_id`,
			limit, func(r *sql.Rows, m *types.MaintenanceSchedule) error {
				return r.Scan(&m.ScheduleID, &m.EquipmentID, &m.MaintenanceTypeID,
					&m.ScheduledDate, &m.ResponsibleEmployeeID, &m.EstimatedCost)
			})
		if err != nil {
			return nil, err
		}
		return types.MaintenanceScheduleRows(out), nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, table)
	}
}

// limitClause returns the LIMIT clause with the driver's first placeholder.
func (s *SQLSource) limitClause() string {
	if s.driver == "postgres" {
		return " LIMIT $1"
	}
	return " LIMIT ?"
}

// queryAll runs query with a LIMIT and scans every row with scan.
func queryAll[T any](
	ctx context.Context,
	s *SQLSource,
	table types.Table,
	query string,
	limit int,
	scan func(*sql.Rows, *T) error,
) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, query+s.limitClause(), limit)
	if err != nil {
		return nil, fmt.Errorf("records: query %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]T, 0, min(limit, 64))
	for rows.Next() {
		var rec T
		if err := scan(rows, &rec); err != nil {
			return nil, fmt.Errorf("records: scan %s: %w", table, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: read %s: %w", table, err)
	}
	return out, nil
}
