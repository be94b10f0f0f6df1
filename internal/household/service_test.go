package household

import (
	"context"
	"testing"

	"github.com/bher20/ebillmanager/internal/billing"
	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_GeneratesServiceNumbers(t *testing.T) {
	svc := NewService(storage.NewMemory(), nil)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterRequest{Name: "Asha Rao", Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "00000001", first.ServiceNumber)
	assert.Equal(t, "Household", first.ConnectionType)
	assert.NotEmpty(t, first.ID)

	second, err := svc.Register(ctx, RegisterRequest{Name: "Ravi Kumar", Phone: "9876543211", ConnectionType: "Commercial"})
	require.NoError(t, err)
	assert.Equal(t, "00000002", second.ServiceNumber)
	assert.Equal(t, "Commercial", second.ConnectionType)
}

func TestRegister_SkipsTakenNumbers(t *testing.T) {
	st := storage.NewMemoryWithHouseholds([]storage.Household{
		{ID: "a", Name: "A", ServiceNumber: "00000002"},
	})
	svc := NewService(st, nil)

	h, err := svc.Register(context.Background(), RegisterRequest{Name: "Meera", Phone: "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "00000003", h.ServiceNumber)
}

func TestRegister_ExplicitAndDuplicateNumber(t *testing.T) {
	svc := NewService(storage.NewMemory(), nil)
	ctx := context.Background()

	h, err := svc.Register(ctx, RegisterRequest{Name: "Asha Rao", Phone: "9876543210", ServiceNumber: " 4711 "})
	require.NoError(t, err)
	assert.Equal(t, "4711", h.ServiceNumber)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Someone Else", Phone: "9876543211", ServiceNumber: "4711"})
	var ve *billing.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "service_number", ve.Field)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		field   string
		message string
	}{
		{"empty name", RegisterRequest{Name: "  ", Phone: "9876543210"}, "household_name", "Name cannot be empty"},
		{"digits in name", RegisterRequest{Name: "John123", Phone: "9876543210"}, "household_name", ""},
		{"short phone", RegisterRequest{Name: "John Doe", Phone: "12345"}, "phone", "Phone number must be exactly 10 digits"},
		{"letters in phone", RegisterRequest{Name: "John Doe", Phone: "12345abcde"}, "phone", "Phone number must contain only digits"},
		{"empty phone", RegisterRequest{Name: "John Doe"}, "phone", "Phone number must be exactly 10 digits"},
		{"non numeric service number", RegisterRequest{Name: "John Doe", Phone: "9876543210", ServiceNumber: "SN-1"}, "service_number", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := storage.NewMemory()
			_, err := NewService(st, nil).Register(context.Background(), tc.req)

			var ve *billing.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			if tc.message != "" {
				assert.Equal(t, tc.message, ve.Message)
			}

			list, err := st.ListHouseholds(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}
