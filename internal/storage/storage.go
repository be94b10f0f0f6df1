package storage

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateServiceNumber is returned when a household is created with a
// service number that is already registered.
var ErrDuplicateServiceNumber = errors.New("storage: service number already exists")

// Storage abstracts persistence for households, bills and job bookkeeping.
// Lookups return (nil, nil) when no record matches.
type Storage interface {
	// Households
	CreateHousehold(ctx context.Context, h *Household) error
	FindHouseholdByID(ctx context.Context, id string) (*Household, error)
	FindHouseholdByServiceNumber(ctx context.Context, serviceNumber string) (*Household, error)
	ListHouseholds(ctx context.Context) ([]Household, error)

	// Bills
	InsertBill(ctx context.Context, b *Bill) (string, error)
	GetBill(ctx context.Context, id string) (*Bill, error)
	FindUnpaidBills(ctx context.Context, householdID string) ([]Bill, error)
	// UpdateBillStatus moves a bill from one status to another and reports
	// how many rows changed; a bill not currently in `from` is left alone.
	UpdateBillStatus(ctx context.Context, id string, from, to BillStatus, paidAt *time.Time) (int64, error)
	ListBills(ctx context.Context, f BillFilter) ([]Bill, error)
	ListOverdueBills(ctx context.Context, now time.Time) ([]Bill, error)
	DeleteBill(ctx context.Context, id string) (bool, error)

	// Scheduled jobs
	RecordJobRun(ctx context.Context, run JobRun) error

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}
