package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Equipment is one row of the equipment roster.
type Equipment struct {
	EquipmentID     int
	Name            *string
	InventoryNumber *string
	Location        *string
	CommissionDate  *time.Time
}

// Employee is one row of the employee roster.
type Employee struct {
	EmployeeID int
	FullName   *string
	Position   *string
}

// MaintenanceType is one row of the maintenance type roster.
type MaintenanceType struct {
	MaintenanceTypeID int
	Description       *string
}

// CompletedWork is one entry of the completed maintenance log.
type CompletedWork struct {
	CompletedMaintenanceID int
	MaintenanceTypeID      *int
	EquipmentID            *int
	CompletionDate         *time.Time
	ResponsibleEmployeeID  *int
	ActualCost             decimal.NullDecimal
}

// MaintenanceSchedule is one entry of the planned maintenance log.
type MaintenanceSchedule struct {
	ScheduleID            int
	EquipmentID           *int
	MaintenanceTypeID     *int
	ScheduledDate         *time.Time
	ResponsibleEmployeeID *int
	EstimatedCost         decimal.NullDecimal
}
