package storage

import (
	"time"

	"github.com/bher20/ebillmanager/internal/tariff"
	"github.com/shopspring/decimal"
)

// BillStatus is the payment state of a bill.
type BillStatus string

const (
	StatusUnpaid BillStatus = "Unpaid"
	StatusPaid   BillStatus = "Paid"
)

// Household is a registered billed party.
type Household struct {
	ID             string `json:"id" gorm:"primaryKey;column:id"`
	Name           string `json:"household_name" gorm:"column:household_name"`
	ServiceNumber  string `json:"service_number" gorm:"uniqueIndex;column:service_number"`
	Phone          string `json:"phone" gorm:"column:phone"`
	Email          string `json:"email,omitempty" gorm:"column:email"`
	Address        string `json:"address" gorm:"column:address"`
	ConnectionType string `json:"connection_type" gorm:"column:connection_type"`
	HouseNumber    string `json:"house_number" gorm:"index;column:house_number"`
	// OutstandingBalance is informational only; dues are always recomputed
	// from the unpaid bill set.
	OutstandingBalance decimal.Decimal `json:"outstanding_balance" gorm:"column:outstanding_balance;type:decimal(14,2)"`
	CreatedAt          time.Time       `json:"created_at" gorm:"column:created_at"`
}

// Bill is a point-in-time charge record. Household fields are copied in at
// creation so the bill reads the same after the household changes.
type Bill struct {
	ID             string `json:"id" gorm:"primaryKey;column:id"`
	HouseholdID    string `json:"household_id" gorm:"index:idx_bills_household_status;column:household_id"`
	HouseholdName  string `json:"household_name" gorm:"column:household_name"`
	ServiceNumber  string `json:"service_number" gorm:"index;column:service_number"`
	HouseNumber    string `json:"house_number" gorm:"index;column:house_number"`
	Address        string `json:"address" gorm:"column:address"`
	Phone          string `json:"phone" gorm:"column:phone"`
	ConnectionType string `json:"connection_type" gorm:"column:connection_type"`

	Units                decimal.Decimal     `json:"units" gorm:"column:units;type:decimal(14,4)"`
	CurrentCharge        decimal.Decimal     `json:"current_charge" gorm:"column:current_charge;type:decimal(14,2)"`
	FineAmount           decimal.Decimal     `json:"fine_amount" gorm:"column:fine_amount;type:decimal(14,2)"`
	PreviousDues         decimal.Decimal     `json:"previous_dues" gorm:"column:previous_dues;type:decimal(14,2)"`
	TotalAmount          decimal.Decimal     `json:"total_amount" gorm:"column:total_amount;type:decimal(14,2)"`
	Breakdown            []tariff.SlabCharge `json:"slab_breakdown" gorm:"column:slab_breakdown;serializer:json"`
	MinimumChargeApplied bool                `json:"minimum_charge_applied" gorm:"column:minimum_charge_applied"`

	CreatedAt time.Time  `json:"date" gorm:"index;column:created_at"`
	DueDate   time.Time  `json:"due_date" gorm:"column:due_date"`
	Status    BillStatus `json:"status" gorm:"index:idx_bills_household_status;column:status"`
	PaidAt    *time.Time `json:"paid_date,omitempty" gorm:"column:paid_at"`
	Note      string     `json:"notes,omitempty" gorm:"column:notes"`
}

// BillFilter narrows ListBills. Zero fields match everything.
type BillFilter struct {
	HouseholdID   string
	ServiceNumber string
	HouseNumber   string
	Status        BillStatus
	Limit         int
}

// JobRun records the outcome of the last execution of a scheduled job.
type JobRun struct {
	Name           string    `json:"name" gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `json:"last_run_at" gorm:"column:last_run_at"`
	LastDurationMs int64     `json:"last_duration_ms" gorm:"column:last_duration_ms"`
	LastSuccess    bool      `json:"last_success" gorm:"column:last_success"`
	LastError      string    `json:"last_error" gorm:"column:last_error"`
}
