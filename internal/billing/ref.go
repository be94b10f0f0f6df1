package billing

import (
	"context"
	"fmt"

	"github.com/bher20/ebillmanager/internal/storage"
)

// RefKind says which key a HouseholdRef carries.
type RefKind int

const (
	RefByID RefKind = iota + 1
	RefByServiceNumber
)

func (k RefKind) String() string {
	switch k {
	case RefByID:
		return "id"
	case RefByServiceNumber:
		return "service_number"
	default:
		return "unknown"
	}
}

// HouseholdRef identifies a household either by its internal id or by its
// service (consumer) number. Build one with ByID or ByServiceNumber.
type HouseholdRef struct {
	Kind RefKind
	Key  string
}

func ByID(id string) HouseholdRef { return HouseholdRef{Kind: RefByID, Key: id} }

func ByServiceNumber(number string) HouseholdRef {
	return HouseholdRef{Kind: RefByServiceNumber, Key: number}
}

func (r HouseholdRef) String() string { return fmt.Sprintf("%s:%s", r.Kind, r.Key) }

// HouseholdFinder is the lookup half of Store.
type HouseholdFinder interface {
	FindHouseholdByID(ctx context.Context, id string) (*storage.Household, error)
	FindHouseholdByServiceNumber(ctx context.Context, serviceNumber string) (*storage.Household, error)
}

// ResolveHousehold looks the reference up with the matching finder method.
func ResolveHousehold(ctx context.Context, f HouseholdFinder, ref HouseholdRef) (*storage.Household, error) {
	if ref.Key == "" {
		return nil, &ValidationError{Field: "household", Message: "household reference is required"}
	}

	var (
		h   *storage.Household
		err error
	)
	switch ref.Kind {
	case RefByID:
		h, err = f.FindHouseholdByID(ctx, ref.Key)
	case RefByServiceNumber:
		h, err = f.FindHouseholdByServiceNumber(ctx, ref.Key)
	default:
		return nil, &ValidationError{Field: "household", Message: "household reference kind is not set"}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find household", Err: err}
	}
	if h == nil {
		return nil, &NotFoundError{Kind: "household", Key: ref.Key}
	}
	return h, nil
}
