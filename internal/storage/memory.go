package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bher20/ebillmanager/internal/tariff"
	"github.com/google/uuid"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu         sync.RWMutex
	households map[string]Household
	bills      map[string]Bill
	jobs       map[string]JobRun
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		households: make(map[string]Household),
		bills:      make(map[string]Bill),
		jobs:       make(map[string]JobRun),
	}
}

// NewMemoryWithHouseholds returns a MemoryStorage preloaded with the given
// households.
func NewMemoryWithHouseholds(list []Household) *MemoryStorage {
	m := NewMemory()
	for _, h := range list {
		m.households[h.ID] = h
	}
	return m
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) CreateHousehold(ctx context.Context, h *Household) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.households {
		if existing.ServiceNumber == h.ServiceNumber {
			return ErrDuplicateServiceNumber
		}
	}
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	m.households[h.ID] = *h
	return nil
}

func (m *MemoryStorage) FindHouseholdByID(ctx context.Context, id string) (*Household, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.households[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *MemoryStorage) FindHouseholdByServiceNumber(ctx context.Context, serviceNumber string) (*Household, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.households {
		if h.ServiceNumber == serviceNumber {
			cp := h
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) ListHouseholds(ctx context.Context) ([]Household, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Household, 0, len(m.households))
	for _, h := range m.households {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceNumber < out[j].ServiceNumber })
	return out, nil
}

func (m *MemoryStorage) InsertBill(ctx context.Context, b *Bill) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	m.bills[b.ID] = cloneBill(*b)
	return b.ID, nil
}

func (m *MemoryStorage) GetBill(ctx context.Context, id string) (*Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bills[id]
	if !ok {
		return nil, nil
	}
	cp := cloneBill(b)
	return &cp, nil
}

func (m *MemoryStorage) FindUnpaidBills(ctx context.Context, householdID string) ([]Bill, error) {
	return m.ListBills(ctx, BillFilter{HouseholdID: householdID, Status: StatusUnpaid})
}

func (m *MemoryStorage) UpdateBillStatus(ctx context.Context, id string, from, to BillStatus, paidAt *time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[id]
	if !ok || b.Status != from {
		return 0, nil
	}
	b.Status = to
	if paidAt != nil {
		t := *paidAt
		b.PaidAt = &t
	}
	m.bills[id] = b
	return 1, nil
}

func (m *MemoryStorage) ListBills(ctx context.Context, f BillFilter) ([]Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Bill
	for _, b := range m.bills {
		if f.HouseholdID != "" && b.HouseholdID != f.HouseholdID {
			continue
		}
		if f.ServiceNumber != "" && b.ServiceNumber != f.ServiceNumber {
			continue
		}
		if f.HouseNumber != "" && b.HouseNumber != f.HouseNumber {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, cloneBill(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStorage) ListOverdueBills(ctx context.Context, now time.Time) ([]Bill, error) {
	unpaid, err := m.ListBills(ctx, BillFilter{Status: StatusUnpaid})
	if err != nil {
		return nil, err
	}
	out := unpaid[:0]
	for _, b := range unpaid {
		if b.DueDate.Before(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MemoryStorage) DeleteBill(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bills[id]; !ok {
		return false, nil
	}
	delete(m.bills, id)
	return true, nil
}

func (m *MemoryStorage) RecordJobRun(ctx context.Context, run JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[run.Name] = run
	return nil
}

// JobRun returns the last recorded run for a job, if any.
func (m *MemoryStorage) JobRun(name string) (JobRun, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.jobs[name]
	return r, ok
}

func cloneBill(b Bill) Bill {
	if b.Breakdown != nil {
		bd := make([]tariff.SlabCharge, len(b.Breakdown))
		copy(bd, b.Breakdown)
		b.Breakdown = bd
	}
	if b.PaidAt != nil {
		t := *b.PaidAt
		b.PaidAt = &t
	}
	return b
}
