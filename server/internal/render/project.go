package render

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maintrack/maintrack/pkg/types"
)

// Placeholder is rendered for a field with no value.
const Placeholder = "N/A"

// dateLayout is used for every date column.
const dateLayout = time.DateOnly

// Column is one rendered field of a record type T. Cell returns the text
// for a record and false when the field has no value.
type Column[T any] struct {
	Name string
	Cell func(T) (string, bool)
}

// Project renders records into a View with one cell per column per record.
func Project[T any](table types.Table, cols []Column[T], records []T) types.View {
	v := types.View{
		Table:   string(table),
		Columns: make([]string, len(cols)),
		Rows:    make([][]string, 0, len(records)),
	}
	for i, c := range cols {
		v.Columns[i] = c.Name
	}
	for _, rec := range records {
		row := make([]string, len(cols))
		for i, c := range cols {
			text, ok := c.Cell(rec)
			if !ok {
				text = Placeholder
			}
			row[i] = text
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

// Of renders rows with the columns of its table.
func Of(rows types.Rows) (types.View, error) {
	switch r := rows.(type) {
	case types.EquipmentRows:
		return Project(types.Equipments, equipmentColumns, r), nil
	case types.EmployeeRows:
		return Project(types.Employees, employeeColumns, r), nil
	case types.MaintenanceTypeRows:
		return Project(types.MaintenanceTypes, maintenanceTypeColumns, r), nil
	case types.CompletedWorkRows:
		return Project(types.CompletedWorks, completedWorkColumns, r), nil
	case types.MaintenanceScheduleRows:
		return Project(types.MaintenanceSchedules, maintenanceScheduleColumns, r), nil
	case nil:
		return types.View{}, fmt.Errorf("render: no rows")
	default:
		return types.View{}, fmt.Errorf("render: unsupported rows type %T", rows)
	}
}

// --- cell formatters ---

func intCell(v int) (string, bool) { return strconv.Itoa(v), true }

func optInt(v *int) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.Itoa(*v), true
}

func optString(v *string) (string, bool) {
	if v == nil {
		return "", false
	}
	return *v, true
}

func optDate(v *time.Time) (string, bool) {
	if v == nil {
		return "", false
	}
	return v.Format(dateLayout), true
}

func optMoney(v decimal.NullDecimal) (string, bool) {
	if !v.Valid {
		return "", false
	}
	return v.Decimal.StringFixed(2), true
}

// --- per-table projections ---

var equipmentColumns = []Column[types.Equipment]{
	{"EquipmentId", func(e types.Equipment) (string, bool) { return intCell(e.EquipmentID) }},
	{"Name", func(e types.Equipment) (string, bool) { return optString(e.Name) }},
	{"InventoryNumber", func(e types.Equipment) (string, bool) { return optString(e.InventoryNumber) }},
	{"Location", func(e types.Equipment) (string, bool) { return optString(e.Location) }},
	{"CommissionDate", func(e types.Equipment) (string, bool) { return optDate(e.CommissionDate) }},
}

var employeeColumns = []Column[types.Employee]{
	{"EmployeeId", func(e types.Employee) (string, bool) { return intCell(e.EmployeeID) }},
	{"FullName", func(e types.Employee) (string, bool) { return optString(e.FullName) }},
	{"Position", func(e types.Employee) (string, bool) { return optString(e.Position) }},
}

var maintenanceTypeColumns = []Column[types.MaintenanceType]{
	{"MaintenanceTypeId", func(m types.MaintenanceType) (string, bool) { return intCell(m.MaintenanceTypeID) }},
	{"Description", func(m types.MaintenanceType) (string, bool) { return optString(m.Description) }},
}

var completedWorkColumns = []Column[types.CompletedWork]{
	{"CompletedMaintenanceId", func(c types.CompletedWork) (string, bool) { return intCell(c.CompletedMaintenanceID) }},
	{"MaintenanceTypeId", func(c types.CompletedWork) (string, bool) { return optInt(c.MaintenanceTypeID) }},
	{"EquipmentId", func(c types.CompletedWork) (string, bool) { return optInt(c.EquipmentID) }},
	{"CompletionDate", func(c types.CompletedWork) (string, bool) { return optDate(c.CompletionDate) }},
	{"ResponsibleEmployeeId", func(c types.CompletedWork) (string, bool) { return optInt(c.ResponsibleEmployeeID) }},
	{"ActualCost", func(c types.CompletedWork) (string, bool) { return optMoney(c.ActualCost) }},
}

var maintenanceScheduleColumns = []Column[types.MaintenanceSchedule]{
	{"ScheduleId", func(m types.MaintenanceSchedule) (string, bool) { return intCell(m.ScheduleID) }},
	{"EquipmentId", func(m types.MaintenanceSchedule) (string, bool) { return optInt(m.EquipmentID) }},
	{"MaintenanceTypeId", func(m types.MaintenanceSchedule) (string, bool) { return optInt(m.MaintenanceTypeID) }},
	{"ScheduledDate", func(m types.MaintenanceSchedule) (string, bool) { return optDate(m.ScheduledDate) }},
	{"ResponsibleEmployeeId", func(m types.MaintenanceSchedule) (string, bool) { return optInt(m.ResponsibleEmployeeID) }},
	{"EstimatedCost", func(m types.MaintenanceSchedule) (string, bool) { return optMoney(m.EstimatedCost) }},
}
