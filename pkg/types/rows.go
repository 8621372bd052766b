package types

// Rows is an ordered record sequence for exactly one table. The concrete type
// identifies the table: EquipmentRows, EmployeeRows, MaintenanceTypeRows,
// CompletedWorkRows or MaintenanceScheduleRows.
type Rows interface {
	Table() Table
	Len() int

	// Head returns at most the first n records, preserving order.
	Head(n int) Rows
}

type (
	EquipmentRows           []Equipment
	EmployeeRows            []Employee
	MaintenanceTypeRows     []MaintenanceType
	CompletedWorkRows       []CompletedWork
	MaintenanceScheduleRows []MaintenanceSchedule
)

func (r EquipmentRows) Table() Table           { return Equipments }
func (r EmployeeRows) Table() Table            { return Employees }
func (r MaintenanceTypeRows) Table() Table     { return MaintenanceTypes }
func (r CompletedWorkRows) Table() Table       { return CompletedWorks }
func (r MaintenanceScheduleRows) Table() Table { return MaintenanceSchedules }

func (r EquipmentRows) Len() int           { return len(r) }
func (r EmployeeRows) Len() int            { return len(r) }
func (r MaintenanceTypeRows) Len() int     { return len(r) }
func (r CompletedWorkRows) Len() int       { return len(r) }
func (r MaintenanceScheduleRows) Len() int { return len(r) }

func (r EquipmentRows) Head(n int) Rows           { return r[:clamp(n, len(r))] }
func (r EmployeeRows) Head(n int) Rows            { return r[:clamp(n, len(r))] }
func (r MaintenanceTypeRows) Head(n int) Rows     { return r[:clamp(n, len(r))] }
func (r CompletedWorkRows) Head(n int) Rows       { return r[:clamp(n, len(r))] }
func (r MaintenanceScheduleRows) Head(n int) Rows { return r[:clamp(n, len(r))] }

func clamp(n, length int) int {
	switch {
	case n < 0:
		return 0
	case n > length:
		return length
	default:
		return n
	}
}
