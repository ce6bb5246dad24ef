package authz

import "time"

// Cluster groups companies sharing a fiscal reporting boundary.
type Cluster struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Company belongs to exactly one cluster. Ownership is by reference: a company
// row outlives any stale in-memory cluster view.
type Company struct {
	ID        string    `json:"id"`
	ClusterID string    `json:"cluster_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is an authenticated user as seen by the authorization engine.
// CompanyID and ClusterID are the user's home scope; empty means unset.
type Actor struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	ClusterID string `json:"cluster_id,omitempty"`
	Active    bool   `json:"active"`
}
