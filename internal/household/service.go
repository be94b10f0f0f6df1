// Package household registers consumers and assigns their service numbers.
package household

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bher20/ebillmanager/internal/billing"
	"github.com/bher20/ebillmanager/internal/storage"
	"go.uber.org/zap"
)

const serviceNumberLength = 8

var (
	nameRE          = regexp.MustCompile(`^[A-Za-z\s]+$`)
	phoneRE         = regexp.MustCompile(`^\d{10}$`)
	serviceNumberRE = regexp.MustCompile(`^\d+$`)
)

// Store is what registration needs from storage.
type Store interface {
	CreateHousehold(ctx context.Context, h *storage.Household) error
	FindHouseholdByServiceNumber(ctx context.Context, serviceNumber string) (*storage.Household, error)
	ListHouseholds(ctx context.Context) ([]storage.Household, error)
}

// RegisterRequest is raw consumer input. ServiceNumber may be empty, in which
// case one is generated.
type RegisterRequest struct {
	Name           string `json:"household_name"`
	Phone          string `json:"phone"`
	ServiceNumber  string `json:"service_number"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	HouseNumber    string `json:"house_number"`
	ConnectionType string `json:"connection_type"`
}

type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log, now: time.Now}
}

// Register validates the request and stores a new household.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*storage.Household, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.ServiceNumber = strings.TrimSpace(req.ServiceNumber)

	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := ValidatePhone(req.Phone); err != nil {
		return nil, err
	}

	number := req.ServiceNumber
	if number == "" {
		next, err := s.nextServiceNumber(ctx)
		if err != nil {
			return nil, err
		}
		number = next
	} else if err := ValidateServiceNumber(number); err != nil {
		return nil, err
	}

	existing, err := s.store.FindHouseholdByServiceNumber(ctx, number)
	if err != nil {
		return nil, &billing.PersistenceError{Op: "find household", Err: err}
	}
	if existing != nil {
		return nil, duplicateError()
	}

	connType := strings.TrimSpace(req.ConnectionType)
	if connType == "" {
		connType = "Household"
	}
	h := &storage.Household{
		Name:           req.Name,
		ServiceNumber:  number,
		Phone:          req.Phone,
		Email:          strings.TrimSpace(req.Email),
		Address:        strings.TrimSpace(req.Address),
		HouseNumber:    strings.TrimSpace(req.HouseNumber),
		ConnectionType: connType,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateHousehold(ctx, h); err != nil {
		// A concurrent registration can still win the unique index.
		if errors.Is(err, storage.ErrDuplicateServiceNumber) {
			return nil, duplicateError()
		}
		return nil, &billing.PersistenceError{Op: "create household", Err: err}
	}

	s.log.Info("household registered",
		zap.String("household_id", h.ID),
		zap.String("service_number", h.ServiceNumber),
	)
	return h, nil
}

// List returns every registered household.
func (s *Service) List(ctx context.Context) ([]storage.Household, error) {
	list, err := s.store.ListHouseholds(ctx)
	if err != nil {
		return nil, &billing.PersistenceError{Op: "list households", Err: err}
	}
	return list, nil
}

// nextServiceNumber returns the lowest free zero-padded number above the
// household count.
func (s *Service) nextServiceNumber(ctx context.Context) (string, error) {
	list, err := s.store.ListHouseholds(ctx)
	if err != nil {
		return "", &billing.PersistenceError{Op: "list households", Err: err}
	}
	taken := make(map[string]bool, len(list))
	for _, h := range list {
		taken[h.ServiceNumber] = true
	}
	for n := len(list) + 1; ; n++ {
		candidate := fmt.Sprintf("%0*d", serviceNumberLength, n)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &billing.ValidationError{Field: "household_name", Message: "Name cannot be empty"}
	}
	if !nameRE.MatchString(name) {
		return &billing.ValidationError{
			Field:   "household_name",
			Message: "Name must contain only alphabetic characters and spaces",
		}
	}
	return nil
}

func ValidatePhone(phone string) error {
	if phoneRE.MatchString(phone) {
		return nil
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return &billing.ValidationError{Field: "phone", Message: "Phone number must contain only digits"}
		}
	}
	return &billing.ValidationError{Field: "phone", Message: "Phone number must be exactly 10 digits"}
}

func ValidateServiceNumber(number string) error {
	if !serviceNumberRE.MatchString(number) {
		return &billing.ValidationError{
			Field:   "service_number",
			Message: "Invalid service number format (must be numeric)",
		}
	}
	return nil
}

func duplicateError() error {
	return &billing.ValidationError{
		Field:   "service_number",
		Message: "Service number already exists in the system",
	}
}
