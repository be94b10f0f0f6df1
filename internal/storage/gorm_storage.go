package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	switch driver {
	case "postgres":
		gormDialector = postgres.Open(dsn)
	case "sqlite":
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

// Migrate creates or updates the tables for every model.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&Household{},
		&Bill{},
		&JobRun{},
	)
}

// Households

func (s *GormStorage) CreateHousehold(ctx context.Context, h *Household) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	err := s.db.WithContext(ctx).Create(h).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return ErrDuplicateServiceNumber
	}
	return err
}

func (s *GormStorage) FindHouseholdByID(ctx context.Context, id string) (*Household, error) {
	return s.findHousehold(ctx, "id = ?", id)
}

func (s *GormStorage) FindHouseholdByServiceNumber(ctx context.Context, serviceNumber string) (*Household, error) {
	return s.findHousehold(ctx, "service_number = ?", serviceNumber)
}

func (s *GormStorage) findHousehold(ctx context.Context, query string, arg string) (*Household, error) {
	var h Household
	result := s.db.WithContext(ctx).First(&h, query, arg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &h, nil
}

func (s *GormStorage) ListHouseholds(ctx context.Context) ([]Household, error) {
	var households []Household
	result := s.db.WithContext(ctx).Order("service_number asc").Find(&households)
	return households, result.Error
}

// Bills

func (s *GormStorage) InsertBill(ctx context.Context, b *Bill) (string, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return "", err
	}
	return b.ID, nil
}

func (s *GormStorage) GetBill(ctx context.Context, id string) (*Bill, error) {
	var b Bill
	result := s.db.WithContext(ctx).First(&b, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &b, nil
}

func (s *GormStorage) FindUnpaidBills(ctx context.Context, householdID string) ([]Bill, error) {
	var bills []Bill
	result := s.db.WithContext(ctx).
		Where("household_id = ? AND status = ?", householdID, StatusUnpaid).
		Find(&bills)
	return bills, result.Error
}

func (s *GormStorage) UpdateBillStatus(ctx context.Context, id string, from, to BillStatus, paidAt *time.Time) (int64, error) {
	updates := map[string]interface{}{"status": to}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	result := s.db.WithContext(ctx).Model(&Bill{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (s *GormStorage) ListBills(ctx context.Context, f BillFilter) ([]Bill, error) {
	q := s.db.WithContext(ctx).Model(&Bill{})
	if f.HouseholdID != "" {
		q = q.Where("household_id = ?", f.HouseholdID)
	}
	if f.ServiceNumber != "" {
		q = q.Where("service_number = ?", f.ServiceNumber)
	}
	if f.HouseNumber != "" {
		q = q.Where("house_number = ?", f.HouseNumber)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var bills []Bill
	result := q.Order("created_at desc").Find(&bills)
	return bills, result.Error
}

func (s *GormStorage) ListOverdueBills(ctx context.Context, now time.Time) ([]Bill, error) {
	var bills []Bill
	result := s.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", StatusUnpaid, now).
		Order("due_date asc").
		Find(&bills)
	return bills, result.Error
}

func (s *GormStorage) DeleteBill(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&Bill{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}

// Scheduled jobs

func (s *GormStorage) RecordJobRun(ctx context.Context, run JobRun) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&run).Error
}

// Close & Ping

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// isUniqueViolation catches driver errors GORM does not translate unless
// TranslateError is enabled.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
