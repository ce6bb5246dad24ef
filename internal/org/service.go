package org

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finrep.org/internal/audit"
	"finrep.org/internal/authz"
	"finrep.org/internal/ids"
)

// Service administers clusters, companies and users. All mutations pass the
// authorization facade (ManageCompanies / ManageUsers) and are audited.
type Service struct {
	store Store
	auth  *authz.Authorizer
	rec   *audit.Recorder
	now   func() time.Time
}

func NewService(store Store, auth *authz.Authorizer, rec *audit.Recorder) (*Service, error) {
	if store == nil {
		return nil, errors.New("org: store is required")
	}
	if auth == nil {
		return nil, errors.New("org: authorizer is required")
	}
	if rec == nil {
		return nil, errors.New("org: audit recorder is required")
	}
	return &Service{store: store, auth: auth, rec: rec, now: func() time.Time { return time.Now().UTC() }}, nil
}

// CreateCluster registers a new reporting cluster.
func (s *Service) CreateCluster(ctx context.Context, actor authz.Actor, name, code string) (authz.Cluster, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(strings.ToUpper(code))
	if name == "" || code == "" {
		return authz.Cluster{}, fmt.Errorf("%w: cluster name and code are required", ErrInvalidInput)
	}
	if err := s.authorize(ctx, actor, authz.ActionManageCompanies, "cluster", ""); err != nil {
		return authz.Cluster{}, err
	}
	now := s.now()
	c := authz.Cluster{ID: ids.New(), Name: name, Code: code, Active: true, CreatedAt: now, UpdatedAt: now}
	entry := audit.NewEntry(ctx, "cluster.create", "cluster", c.ID, actor, fmt.Sprintf("name=%s code=%s", name, code))
	if err := s.store.CreateCluster(ctx, &c, &entry); err != nil {
		return authz.Cluster{}, err
	}
	s.rec.Emit(entry)
	return c, nil
}

// ListClusters returns all clusters. Reference data, not company-scoped.
func (s *Service) ListClusters(ctx context.Context) ([]authz.Cluster, error) {
	return s.store.ListClusters(ctx)
}

// CreateCompany registers a company under an existing cluster.
func (s *Service) CreateCompany(ctx context.Context, actor authz.Actor, clusterID, name, code string) (authz.Company, error) {
	clusterID = strings.TrimSpace(clusterID)
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(strings.ToUpper(code))
	if clusterID == "" || name == "" || code == "" {
		return authz.Company{}, fmt.Errorf("%w: cluster_id, name and code are required", ErrInvalidInput)
	}
	if err := s.authorize(ctx, actor, authz.ActionManageCompanies, "company", ""); err != nil {
		return authz.Company{}, err
	}
	if _, err := s.store.FindCluster(ctx, clusterID); err != nil {
		return authz.Company{}, err
	}
	now := s.now()
	c := authz.Company{ID: ids.New(), ClusterID: clusterID, Name: name, Code: code, Active: true, CreatedAt: now, UpdatedAt: now}
	entry := audit.NewEntry(ctx, "company.create", "company", c.ID, actor, fmt.Sprintf("cluster=%s name=%s", clusterID, name))
	if err := s.store.CreateCompany(ctx, &c, &entry); err != nil {
		return authz.Company{}, err
	}
	s.rec.Emit(entry)
	return c, nil
}

// ListCompanies returns the companies inside the actor's scope, in store
// order. The intersection happens here, not client-side.
func (s *Service) ListCompanies(ctx context.Context, actor authz.Actor) ([]authz.Company, error) {
	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	return s.auth.Scope().FilterCompanies(ctx, actor, companies)
}

// SetCompanyActive toggles a company's active flag.
func (s *Service) SetCompanyActive(ctx context.Context, actor authz.Actor, companyID string, active bool) error {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return fmt.Errorf("%w: company_id is required", ErrInvalidInput)
	}
	if err := s.authorize(ctx, actor, authz.ActionManageCompanies, "company", companyID); err != nil {
		return err
	}
	entry := audit.NewEntry(ctx, "company.set_active", "company", companyID, actor, fmt.Sprintf("active=%t", active))
	if err := s.store.SetCompanyActive(ctx, companyID, active, &entry); err != nil {
		return err
	}
	s.rec.Emit(entry)
	return nil
}

// CreateUserInput carries the fields for a new account.
type CreateUserInput struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      authz.Role `json:"role"`
	CompanyID string     `json:"company_id,omitempty"`
	ClusterID string     `json:"cluster_id,omitempty"`
}

// CreateUser provisions an account. Email is unique; role must be one of the
// closed enumeration.
func (s *Service) CreateUser(ctx context.Context, actor authz.Actor, in CreateUserInput) (User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	password := strings.TrimSpace(in.Password)
	if password == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return User{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, in.Role)
	}
	if err := s.authorize(ctx, actor, authz.ActionManageUsers, "user", ""); err != nil {
		return User{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	now := s.now()
	u := User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		CompanyID:    strings.TrimSpace(in.CompanyID),
		ClusterID:    strings.TrimSpace(in.ClusterID),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	entry := audit.NewEntry(ctx, "user.create", "user", u.ID, actor, fmt.Sprintf("email=%s role=%s", email, in.Role))
	if err := s.store.CreateUser(ctx, &u, &entry); err != nil {
		return User{}, err
	}
	s.rec.Emit(entry)
	return u, nil
}

// SetUserRole changes a user's role. Role changes are the only path by which
// a user's capability set moves.
func (s *Service) SetUserRole(ctx context.Context, actor authz.Actor, userID string, role authz.Role) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, role)
	}
	if err := s.authorize(ctx, actor, authz.ActionManageUsers, "user", ""); err != nil {
		return User{}, err
	}
	entry := audit.NewEntry(ctx, "user.set_role", "user", userID, actor, fmt.Sprintf("role=%s", role))
	u, err := s.store.UpdateUser(ctx, userID, UserUpdate{Role: &role}, &entry)
	if err != nil {
		return User{}, err
	}
	s.rec.Emit(entry)
	return *u, nil
}

// SetUserActive enables or disables an account.
func (s *Service) SetUserActive(ctx context.Context, actor authz.Actor, userID string, active bool) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if err := s.authorize(ctx, actor, authz.ActionManageUsers, "user", ""); err != nil {
		return User{}, err
	}
	entry := audit.NewEntry(ctx, "user.set_active", "user", userID, actor, fmt.Sprintf("active=%t", active))
	u, err := s.store.UpdateUser(ctx, userID, UserUpdate{Active: &active}, &entry)
	if err != nil {
		return User{}, err
	}
	s.rec.Emit(entry)
	return *u, nil
}

// ListUsers returns every account. ManageUsers-gated.
func (s *Service) ListUsers(ctx context.Context, actor authz.Actor) ([]User, error) {
	if err := s.authorize(ctx, actor, authz.ActionManageUsers, "user", ""); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// FindUserByEmail resolves an account for authentication. Not facade-gated:
// it runs before an actor exists.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.store.FindUserByEmail(ctx, email)
}

// FindUser resolves an account by id.
func (s *Service) FindUser(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.FindUser(ctx, id)
}

func (s *Service) authorize(ctx context.Context, actor authz.Actor, action authz.Action, entityType, entityID string) error {
	dec, err := s.auth.Authorize(ctx, actor, action, authz.Resource{Type: entityType, ID: entityID})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !dec.Granted {
		if _, recErr := s.rec.RecordDenied(ctx, string(action), entityType, entityID, actor, dec.Deny); recErr != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, recErr)
		}
		return dec.Err()
	}
	return nil
}
