package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bher20/ebillmanager/internal/tariff"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openGormSQLite(t *testing.T) *GormStorage {
	t.Helper()
	st, err := NewGormStorage("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func backends(t *testing.T) map[string]func(t *testing.T) Storage {
	return map[string]func(t *testing.T) Storage{
		"memory": func(t *testing.T) Storage { return NewMemory() },
		"sqlite": func(t *testing.T) Storage { return openGormSQLite(t) },
	}
}

func sampleBill(householdID string, total string, status BillStatus, created time.Time) *Bill {
	return &Bill{
		HouseholdID:   householdID,
		HouseholdName: "Asha Rao",
		ServiceNumber: "00000001",
		HouseNumber:   "12B",
		Units:         decimal.NewFromInt(50),
		CurrentCharge: decimal.RequireFromString("75.00"),
		FineAmount:    decimal.Zero,
		PreviousDues:  decimal.Zero,
		TotalAmount:   decimal.RequireFromString(total),
		Breakdown: []tariff.SlabCharge{{
			Label: "1-50", Units: decimal.NewFromInt(50),
			Rate: decimal.RequireFromString("1.5"), Amount: decimal.NewFromInt(75),
		}},
		CreatedAt: created,
		DueDate:   created.Add(15 * 24 * time.Hour),
		Status:    status,
	}
}

func TestStorage_HouseholdLookups(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)

			h := &Household{Name: "Asha Rao", ServiceNumber: "00000001", Phone: "9876543210", ConnectionType: "Household"}
			require.NoError(t, st.CreateHousehold(ctx, h))
			require.NotEmpty(t, h.ID)

			byID, err := st.FindHouseholdByID(ctx, h.ID)
			require.NoError(t, err)
			require.NotNil(t, byID)
			assert.Equal(t, "Asha Rao", byID.Name)

			bySN, err := st.FindHouseholdByServiceNumber(ctx, "00000001")
			require.NoError(t, err)
			require.NotNil(t, bySN)
			assert.Equal(t, h.ID, bySN.ID)

			missing, err := st.FindHouseholdByServiceNumber(ctx, "99999999")
			require.NoError(t, err)
			assert.Nil(t, missing)

			dup := &Household{Name: "Other", ServiceNumber: "00000001"}
			assert.ErrorIs(t, st.CreateHousehold(ctx, dup), ErrDuplicateServiceNumber)

			list, err := st.ListHouseholds(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestStorage_BillLifecycle(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)
			now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

			id, err := st.InsertBill(ctx, sampleBill("h1", "100.00", StatusUnpaid, now))
			require.NoError(t, err)
			_, err = st.InsertBill(ctx, sampleBill("h1", "200.00", StatusUnpaid, now.Add(time.Hour)))
			require.NoError(t, err)
			_, err = st.InsertBill(ctx, sampleBill("h1", "50.00", StatusPaid, now.Add(2*time.Hour)))
			require.NoError(t, err)
			_, err = st.InsertBill(ctx, sampleBill("h2", "999.00", StatusUnpaid, now))
			require.NoError(t, err)

			unpaid, err := st.FindUnpaidBills(ctx, "h1")
			require.NoError(t, err)
			require.Len(t, unpaid, 2)
			sum := decimal.Zero
			for _, b := range unpaid {
				sum = sum.Add(b.TotalAmount)
			}
			assert.True(t, sum.Equal(decimal.NewFromInt(300)), "sum=%s", sum)

			got, err := st.GetBill(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Len(t, got.Breakdown, 1)
			assert.Equal(t, "1-50", got.Breakdown[0].Label)
			assert.True(t, got.Breakdown[0].Amount.Equal(decimal.NewFromInt(75)))

			paidAt := now.Add(24 * time.Hour)
			n, err := st.UpdateBillStatus(ctx, id, StatusUnpaid, StatusPaid, &paidAt)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			n, err = st.UpdateBillStatus(ctx, id, StatusUnpaid, StatusPaid, &paidAt)
			require.NoError(t, err)
			assert.EqualValues(t, 0, n)

			got, err = st.GetBill(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, StatusPaid, got.Status)
			require.NotNil(t, got.PaidAt)
			assert.True(t, got.PaidAt.Equal(paidAt))

			history, err := st.ListBills(ctx, BillFilter{HouseholdID: "h1"})
			require.NoError(t, err)
			require.Len(t, history, 3)
			assert.True(t, history[0].CreatedAt.After(history[2].CreatedAt), "newest first")

			overdue, err := st.ListOverdueBills(ctx, now.Add(30*24*time.Hour))
			require.NoError(t, err)
			assert.Len(t, overdue, 2)

			ok, err := st.DeleteBill(ctx, id)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = st.DeleteBill(ctx, id)
			require.NoError(t, err)
			assert.False(t, ok)

			missing, err := st.GetBill(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestStorage_RecordJobRun(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := open(t)
			run := JobRun{Name: "overdue_reminders", LastRunAt: time.Now(), LastDurationMs: 12, LastSuccess: true}
			require.NoError(t, st.RecordJobRun(ctx, run))
			run.LastSuccess = false
			run.LastError = "boom"
			require.NoError(t, st.RecordJobRun(ctx, run))
		})
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, err := m.InsertBill(ctx, sampleBill("h1", "10", StatusUnpaid, time.Now()))
	require.NoError(t, err)

	b, err := m.GetBill(ctx, id)
	require.NoError(t, err)
	b.Breakdown[0].Label = "tampered"
	b.Status = StatusPaid

	again, err := m.GetBill(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "1-50", again.Breakdown[0].Label)
	assert.Equal(t, StatusUnpaid, again.Status)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mongo"}, nil)
	assert.Error(t, err)
}

func TestOpen_MemoryPreloadsHouseholds(t *testing.T) {
	st, err := Open(context.Background(), Config{Households: []Household{{ID: "h1", ServiceNumber: "00000001"}}}, nil)
	require.NoError(t, err)
	defer st.Close()

	h, err := st.FindHouseholdByID(context.Background(), "h1")
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestGormStorage_PoolStats(t *testing.T) {
	st := openGormSQLite(t)
	require.NoError(t, st.Ping(context.Background()))

	var ps PoolStatser = st
	stats := ps.PoolStats()
	assert.Equal(t, "sqlite", stats.Driver)
	assert.GreaterOrEqual(t, stats.Total, 1)
}
