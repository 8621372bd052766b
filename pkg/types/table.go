package types

// Table names one of the cached record collections. The name is used both as
// the snapshot key and as the {tableName} URL segment, and is case-sensitive.
type Table string

const (
	Equipments           Table = "Equipments"
	Employees            Table = "Employees"
	MaintenanceTypes     Table = "MaintenanceTypes"
	CompletedWorks       Table = "CompletedWorks"
	MaintenanceSchedules Table = "MaintenanceSchedules"
)

// AllTables lists every known table in the default snapshot order.
var AllTables = []Table{
	Equipments,
	Employees,
	CompletedWorks,
	MaintenanceTypes,
	MaintenanceSchedules,
}

// ParseTable returns the Table named s and whether s is a known table name.
func ParseTable(s string) (Table, bool) {
	for _, t := range AllTables {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func (t Table) String() string { return string(t) }
