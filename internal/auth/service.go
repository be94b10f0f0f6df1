package auth

import (
	"errors"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

// Resources and actions used in policies.
const (
	ObjHouseholds = "households"
	ObjBills      = "bills"
	ObjTariff     = "tariff"

	ActRead  = "read"
	ActWrite = "write"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Service authenticates the single admin account and answers RBAC
// questions. Unauthenticated callers act as guest.
type Service struct {
	adminUser string
	adminHash []byte
	enforcer  *casbin.Enforcer
}

func NewService(adminUser, adminPasswordHash string) (*Service, error) {
	m, err := model.NewModelFromString(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	policies := [][]string{
		{RoleAdmin, "*", "*"},
		{RoleGuest, ObjHouseholds, ActRead},
		{RoleGuest, ObjBills, ActRead},
		{RoleGuest, ObjTariff, ActRead},
	}
	if _, err := e.AddPolicies(policies); err != nil {
		return nil, err
	}
	if adminUser != "" {
		if _, err := e.AddGroupingPolicy(adminUser, RoleAdmin); err != nil {
			return nil, err
		}
	}

	return &Service{adminUser: adminUser, adminHash: []byte(adminPasswordHash), enforcer: e}, nil
}

// Authenticate checks the admin credentials and returns the subject to
// enforce with.
func (s *Service) Authenticate(username, password string) (string, error) {
	if s.adminUser == "" || username != s.adminUser || len(s.adminHash) == 0 {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return username, nil
}

func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	return s.enforcer.Enforce(sub, obj, act)
}

// HashPassword produces the value to configure as the admin password hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
