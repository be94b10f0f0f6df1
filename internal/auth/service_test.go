package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	svc, err := NewService("admin", string(hash))
	require.NoError(t, err)
	return svc
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t)

	sub, err := svc.Authenticate("admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)

	_, err = svc.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate("root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnforce(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		sub, obj, act string
		want          bool
	}{
		{"admin", ObjBills, ActWrite, true},
		{"admin", ObjHouseholds, ActWrite, true},
		{RoleGuest, ObjBills, ActRead, true},
		{RoleGuest, ObjTariff, ActRead, true},
		{RoleGuest, ObjBills, ActWrite, false},
		{RoleGuest, ObjHouseholds, ActWrite, false},
		{"stranger", ObjBills, ActRead, false},
	}
	for _, tc := range tests {
		got, err := svc.Enforce(tc.sub, tc.obj, tc.act)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %s %s", tc.sub, tc.obj, tc.act)
	}
}

func TestMiddleware(t *testing.T) {
	svc := newTestService(t)
	h := svc.Middleware(svc.RequirePermission(ObjBills, ActWrite, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	do := func(user, pass string, set bool) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bills", nil)
		if set {
			req.SetBasicAuth(user, pass)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("admin", "s3cret", true))
	assert.Equal(t, http.StatusUnauthorized, do("admin", "nope", true))
	assert.Equal(t, http.StatusUnauthorized, do("", "", false))
}

func TestMiddleware_GuestRead(t *testing.T) {
	svc := newTestService(t)
	h := svc.Middleware(svc.RequirePermission(ObjBills, ActRead, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RoleGuest, Subject(r.Context()))
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))

	_, err = HashPassword("")
	assert.Error(t, err)
}
