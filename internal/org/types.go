package org

import (
	"context"
	"errors"
	"time"

	"finrep.org/internal/audit"
	"finrep.org/internal/authz"
)

var (
	ErrNotFound     = errors.New("org: not found")
	ErrConflict     = errors.New("org: resource conflict")
	ErrInvalidInput = errors.New("org: invalid input")
	ErrUnavailable  = errors.New("org: store unavailable")
)

// User is an account able to act on the reporting workflow. CompanyID and
// ClusterID are the home scope feeding the scope resolver; either may be
// empty depending on role.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         authz.Role `json:"role"`
	CompanyID    string     `json:"company_id,omitempty"`
	ClusterID    string     `json:"cluster_id,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Actor converts a user row into the shape the authorization engine consumes.
func (u User) Actor() authz.Actor {
	return authz.Actor{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		ClusterID: u.ClusterID,
		Active:    u.Active,
	}
}

// Store describes persistence for the organizational reference data.
// Mutating methods take the action's audit entry and write it in the same
// transaction as the change: an unrecorded admin mutation must not commit.
type Store interface {
	CreateCluster(ctx context.Context, c *authz.Cluster, entry *audit.Entry) error
	FindCluster(ctx context.Context, id string) (*authz.Cluster, error)
	ListClusters(ctx context.Context) ([]authz.Cluster, error)

	CreateCompany(ctx context.Context, c *authz.Company, entry *audit.Entry) error
	FindCompany(ctx context.Context, id string) (*authz.Company, error)
	ListCompanies(ctx context.Context) ([]authz.Company, error)
	SetCompanyActive(ctx context.Context, id string, active bool, entry *audit.Entry) error

	CreateUser(ctx context.Context, u *User, entry *audit.Entry) error
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate, entry *audit.Entry) (*User, error)
}

// UserUpdate carries optional field changes; nil means leave as is.
type UserUpdate struct {
	Email        *string
	PasswordHash *string
	Role         *authz.Role
	CompanyID    *string
	ClusterID    *string
	Active       *bool
}
