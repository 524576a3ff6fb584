package domain

import "time"

// Enumerations
const (
	RoleSuperAdmin   UserRole = "superAdmin"
	RoleStationAdmin UserRole = "stationAdmin"
	RoleRegistrar    UserRole = "stationRegistrar"
	RolePrinter      UserRole = "stationPrinter"
	RoleDeveloper    UserRole = "developer"

	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"

	OrderTypeNew         = "new"
	OrderTypeReplacement = "replacement"
	OrderTypeRenewal     = "renewal"

	AuditInfo    AuditType = "info"
	AuditWarning AuditType = "warning"
	AuditError   AuditType = "error"
)

type UserRole string
type Status string
type AuditType string

// NormalizeRole maps a raw role string, including the legacy
// "stationRegistral"/"stationPrintral" spellings still present on old
// accounts, to its canonical value. Returns false for unknown roles.
func NormalizeRole(raw string) (UserRole, bool) {
	switch raw {
	case "superAdmin":
		return RoleSuperAdmin, true
	case "stationAdmin":
		return RoleStationAdmin, true
	case "stationRegistrar", "stationRegistral":
		return RoleRegistrar, true
	case "stationPrinter", "stationPrintral":
		return RolePrinter, true
	case "developer":
		return RoleDeveloper, true
	}
	return "", false
}

// ValidStatus reports whether s is one of the three workflow states.
func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

type Money struct {
	Amount   int64
	Currency string
}

type Station struct {
	ID           int64
	Code         string
	NameEn       string
	NameAm       string
	AdminName    string
	StampRef     string
	SignatureRef string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

type User struct {
	ID           int64
	StationID    *int64
	Username     string
	Phone        string
	Role         UserRole
	Active       bool
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

type Citizen struct {
	ID                int64
	StationID         int64
	RegNumber         string
	FirstName         string
	MiddleName        string
	LastName          string
	Gender            string
	BirthDate         time.Time
	BirthPlace        string
	Occupation        string
	Phone             string
	EmergencyName     string
	EmergencyPhone    string
	EmergencyRelation string
	PhotoRef          string
	Barcode           string
	IsVerified        Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FullName joins the non-empty name parts with single spaces.
func (c Citizen) FullName() string {
	name := c.FirstName
	if c.MiddleName != "" {
		name += " " + c.MiddleName
	}
	if c.LastName != "" {
		name += " " + c.LastName
	}
	return name
}

type Order struct {
	ID               int64
	StationID        int64
	CitizenID        int64
	RegistrarID      int64
	PrinterID        *int64
	OrderNumber      string
	OrderType        string
	OrderStatus      Status
	IsPrinted        Status
	IsAccepted       Status
	PaymentMethod    string
	PaymentReference string
	Amount           Money
	Citizen          *OrderCitizenSummary
	Printer          *OrderPrinterSummary
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OrderCitizenSummary is the joined citizen snapshot returned with orders.
type OrderCitizenSummary struct {
	ID        int64
	RegNumber string
	FullName  string
	Phone     string
}

// OrderPrinterSummary identifies the printer account an order is assigned to.
type OrderPrinterSummary struct {
	ID       int64
	Username string
}

type AuditEntry struct {
	ID        int64
	StationID *int64
	Actor     string
	Action    string
	Entity    string
	EntityID  int64
	Detail    string
	Type      AuditType
	LoggedAt  time.Time
}
