package authz

import "context"

// CompanyDirectory is the read side of the company/cluster reference data the
// scope resolver needs. Implemented by the pg store.
type CompanyDirectory interface {
	ActiveCompanyIDs(ctx context.Context) ([]string, error)
	ActiveCompanyIDsInCluster(ctx context.Context, clusterID string) ([]string, error)
}

// ScopeResolver computes the set of companies an actor may act upon. It holds
// no state beyond the directory handle and is safe for concurrent use.
type ScopeResolver struct {
	dir CompanyDirectory
}

func NewScopeResolver(dir CompanyDirectory) *ScopeResolver {
	return &ScopeResolver{dir: dir}
}

// AccessibleCompanyIDs returns every company id the actor may read or write.
// Admin and CEO reach all active companies. A director reaches the active
// companies of their home cluster. A data officer reaches only their home
// company. Missing home scope resolves to no access, never to all access.
func (s *ScopeResolver) AccessibleCompanyIDs(ctx context.Context, actor Actor) (map[string]struct{}, error) {
	switch actor.Role {
	case RoleAdmin, RoleCEO:
		ids, err := s.dir.ActiveCompanyIDs(ctx)
		if err != nil {
			return nil, err
		}
		return toSet(ids), nil
	case RoleDirector:
		if actor.ClusterID == "" {
			return map[string]struct{}{}, nil
		}
		ids, err := s.dir.ActiveCompanyIDsInCluster(ctx, actor.ClusterID)
		if err != nil {
			return nil, err
		}
		return toSet(ids), nil
	case RoleDataOfficer:
		if actor.CompanyID == "" {
			return map[string]struct{}{}, nil
		}
		return map[string]struct{}{actor.CompanyID: {}}, nil
	}
	return map[string]struct{}{}, nil
}

// CanAccessCompany is the authoritative row-level check: every read or write
// of company-scoped data must pass through it before touching the store.
func (s *ScopeResolver) CanAccessCompany(ctx context.Context, actor Actor, companyID string) (bool, error) {
	if companyID == "" {
		return false, nil
	}
	// Data officers need no directory round-trip.
	if actor.Role == RoleDataOfficer {
		return actor.CompanyID == companyID, nil
	}
	ids, err := s.AccessibleCompanyIDs(ctx, actor)
	if err != nil {
		return false, err
	}
	_, ok := ids[companyID]
	return ok, nil
}

// FilterCompanies intersects companies with the actor's accessible set,
// preserving input order. Used by listing endpoints.
func (s *ScopeResolver) FilterCompanies(ctx context.Context, actor Actor, companies []Company) ([]Company, error) {
	ids, err := s.AccessibleCompanyIDs(ctx, actor)
	if err != nil {
		return nil, err
	}
	out := make([]Company, 0, len(companies))
	for _, c := range companies {
		if _, ok := ids[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
