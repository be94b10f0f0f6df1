package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresPoolStorage implements Storage on a pgx connection pool with
// hand-written SQL. The schema comes from the goose migrations.
type PostgresPoolStorage struct {
	pool *pgxpool.Pool
}

func OpenPostgresPool(ctx context.Context, dsn string) (*PostgresPoolStorage, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/ebillmanager?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &PostgresPoolStorage{pool: pool}, nil
}

func (s *PostgresPoolStorage) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresPoolStorage) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

const householdColumns = `id, household_name, service_number, phone, email, address, connection_type, house_number, outstanding_balance::text, created_at`

func scanHousehold(row pgx.Row) (*Household, error) {
	var h Household
	var balance string
	if err := row.Scan(&h.ID, &h.Name, &h.ServiceNumber, &h.Phone, &h.Email, &h.Address,
		&h.ConnectionType, &h.HouseNumber, &balance, &h.CreatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("outstanding_balance: %w", err)
	}
	h.OutstandingBalance = d
	return &h, nil
}

func (s *PostgresPoolStorage) CreateHousehold(ctx context.Context, h *Household) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO households (id, household_name, service_number, phone, email, address,
            connection_type, house_number, outstanding_balance, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, h.ID, h.Name, h.ServiceNumber, h.Phone, h.Email, h.Address,
		h.ConnectionType, h.HouseNumber, h.OutstandingBalance.String(), h.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateServiceNumber
	}
	return err
}

func (s *PostgresPoolStorage) FindHouseholdByID(ctx context.Context, id string) (*Household, error) {
	return s.findHousehold(ctx, `SELECT `+householdColumns+` FROM households WHERE id=$1`, id)
}

func (s *PostgresPoolStorage) FindHouseholdByServiceNumber(ctx context.Context, serviceNumber string) (*Household, error) {
	return s.findHousehold(ctx, `SELECT `+householdColumns+` FROM households WHERE service_number=$1`, serviceNumber)
}

func (s *PostgresPoolStorage) findHousehold(ctx context.Context, query, arg string) (*Household, error) {
	h, err := scanHousehold(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return h, err
}

func (s *PostgresPoolStorage) ListHouseholds(ctx context.Context) ([]Household, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+householdColumns+` FROM households ORDER BY service_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

const billColumns = `id, household_id, household_name, service_number, house_number, address, phone,
    connection_type, units::text, current_charge::text, fine_amount::text, previous_dues::text,
    total_amount::text, slab_breakdown, minimum_charge_applied, created_at, due_date, status, paid_at, notes`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	var units, current, fine, dues, total string
	var breakdown []byte
	var status string
	if err := row.Scan(&b.ID, &b.HouseholdID, &b.HouseholdName, &b.ServiceNumber, &b.HouseNumber,
		&b.Address, &b.Phone, &b.ConnectionType, &units, &current, &fine, &dues, &total,
		&breakdown, &b.MinimumChargeApplied, &b.CreatedAt, &b.DueDate, &status, &b.PaidAt, &b.Note); err != nil {
		return nil, err
	}
	b.Status = BillStatus(status)

	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{units, &b.Units}, {current, &b.CurrentCharge}, {fine, &b.FineAmount},
		{dues, &b.PreviousDues}, {total, &b.TotalAmount},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("bill %s: %w", b.ID, err)
		}
		*f.dst = d
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &b.Breakdown); err != nil {
			return nil, fmt.Errorf("bill %s breakdown: %w", b.ID, err)
		}
	}
	return &b, nil
}

func (s *PostgresPoolStorage) queryBills(ctx context.Context, query string, args ...any) ([]Bill, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PostgresPoolStorage) InsertBill(ctx context.Context, b *Bill) (string, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	breakdown, err := json.Marshal(b.Breakdown)
	if err != nil {
		return "", err
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO bills (id, household_id, household_name, service_number, house_number, address, phone,
            connection_type, units, current_charge, fine_amount, previous_dues, total_amount,
            slab_breakdown, minimum_charge_applied, created_at, due_date, status, paid_at, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    `, b.ID, b.HouseholdID, b.HouseholdName, b.ServiceNumber, b.HouseNumber, b.Address, b.Phone,
		b.ConnectionType, b.Units.String(), b.CurrentCharge.String(), b.FineAmount.String(),
		b.PreviousDues.String(), b.TotalAmount.String(), breakdown, b.MinimumChargeApplied,
		b.CreatedAt, b.DueDate, string(b.Status), b.PaidAt, b.Note)
	if err != nil {
		return "", err
	}
	return b.ID, nil
}

func (s *PostgresPoolStorage) GetBill(ctx context.Context, id string) (*Bill, error) {
	b, err := scanBill(s.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *PostgresPoolStorage) FindUnpaidBills(ctx context.Context, householdID string) ([]Bill, error) {
	return s.queryBills(ctx, `SELECT `+billColumns+` FROM bills WHERE household_id=$1 AND status=$2`,
		householdID, string(StatusUnpaid))
}

func (s *PostgresPoolStorage) UpdateBillStatus(ctx context.Context, id string, from, to BillStatus, paidAt *time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
        UPDATE bills SET status=$3, paid_at=COALESCE($4, paid_at)
        WHERE id=$1 AND status=$2
    `, id, string(from), string(to), paidAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresPoolStorage) ListBills(ctx context.Context, f BillFilter) ([]Bill, error) {
	var where []string
	var args []any
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	add("household_id", f.HouseholdID)
	add("service_number", f.ServiceNumber)
	add("house_number", f.HouseNumber)
	add("status", string(f.Status))

	query := `SELECT ` + billColumns + ` FROM bills`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return s.queryBills(ctx, query, args...)
}

func (s *PostgresPoolStorage) ListOverdueBills(ctx context.Context, now time.Time) ([]Bill, error) {
	return s.queryBills(ctx, `SELECT `+billColumns+` FROM bills WHERE status=$1 AND due_date < $2 ORDER BY due_date`,
		string(StatusUnpaid), now)
}

func (s *PostgresPoolStorage) DeleteBill(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bills WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresPoolStorage) RecordJobRun(ctx context.Context, run JobRun) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO job_runs (name, last_run_at, last_duration_ms, last_success, last_error)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (name) DO UPDATE SET
            last_run_at=EXCLUDED.last_run_at,
            last_duration_ms=EXCLUDED.last_duration_ms,
            last_success=EXCLUDED.last_success,
            last_error=EXCLUDED.last_error
    `, run.Name, run.LastRunAt, run.LastDurationMs, run.LastSuccess, run.LastError)
	return err
}

// LockHousehold takes a session-level advisory lock keyed by the household
// id on a dedicated pool connection, so bill creation is serialized across
// every replica sharing the database. The returned func releases the lock
// and the connection.
func (s *PostgresPoolStorage) LockHousehold(ctx context.Context, householdID string) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	key := advisoryKey("household", householdID)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	return func() {
		// The caller's ctx may already be done; unlock regardless.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		conn.Release()
	}, nil
}

// TryLockJob takes the named job's advisory lock without waiting. ok is
// false when another worker holds it; release is nil in that case.
func (s *PostgresPoolStorage) TryLockJob(ctx context.Context, name string) (release func(), ok bool, err error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	key := advisoryKey("job", name)
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("advisory try lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	return func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		conn.Release()
	}, true, nil
}

func advisoryKey(namespace, s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace + ":" + s))
	return int64(h.Sum64())
}
