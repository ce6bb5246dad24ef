package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"finrep.org/internal/audit"
	"finrep.org/internal/authz"
	"finrep.org/internal/org"
)

var (
	_ org.Store              = (*Store)(nil)
	_ authz.CompanyDirectory = (*Store)(nil)
)

// --- directory (scope resolver reads) ---

// ActiveCompanyIDs returns ids of every active company.
func (s *Store) ActiveCompanyIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, `select id from companies where active order by id`)
}

// ActiveCompanyIDsInCluster returns ids of the cluster's active companies.
func (s *Store) ActiveCompanyIDsInCluster(ctx context.Context, clusterID string) ([]string, error) {
	return s.queryIDs(ctx, `select id from companies where active and cluster_id=$1 order by id`, clusterID)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- clusters ---

func (s *Store) CreateCluster(ctx context.Context, c *authz.Cluster, entry *audit.Entry) error {
	return s.inTx(ctx, entry, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into clusters(id, name, code, active, created_at, updated_at)
			values ($1,$2,$3,$4,$5,$6)
		`, c.ID, c.Name, c.Code, c.Active, c.CreatedAt, c.UpdatedAt)
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return org.ErrConflict
		}
		return err
	})
}

func (s *Store) FindCluster(ctx context.Context, id string) (*authz.Cluster, error) {
	var c authz.Cluster
	err := s.db.QueryRowContext(ctx, `
		select id, name, code, active, created_at, updated_at from clusters where id=$1
	`, id).Scan(&c.ID, &c.Name, &c.Code, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, org.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListClusters(ctx context.Context) ([]authz.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, code, active, created_at, updated_at from clusters order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters []authz.Cluster
	for rows.Next() {
		var c authz.Cluster
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// --- companies ---

func (s *Store) CreateCompany(ctx context.Context, c *authz.Company, entry *audit.Entry) error {
	return s.inTx(ctx, entry, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into companies(id, cluster_id, name, code, active, created_at, updated_at)
			values ($1,$2,$3,$4,$5,$6,$7)
		`, c.ID, c.ClusterID, c.Name, c.Code, c.Active, c.CreatedAt, c.UpdatedAt)
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return org.ErrConflict
			case pgErrForeignKeyViolation:
				return org.ErrNotFound
			}
		}
		return err
	})
}

func (s *Store) FindCompany(ctx context.Context, id string) (*authz.Company, error) {
	var c authz.Company
	err := s.db.QueryRowContext(ctx, `
		select id, cluster_id, name, code, active, created_at, updated_at from companies where id=$1
	`, id).Scan(&c.ID, &c.ClusterID, &c.Name, &c.Code, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, org.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]authz.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, cluster_id, name, code, active, created_at, updated_at from companies order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []authz.Company
	for rows.Next() {
		var c authz.Company
		if err := rows.Scan(&c.ID, &c.ClusterID, &c.Name, &c.Code, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *Store) SetCompanyActive(ctx context.Context, id string, active bool, entry *audit.Entry) error {
	return s.inTx(ctx, entry, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update companies set active=$2, updated_at=now() where id=$1
		`, id, active)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return org.ErrNotFound
		}
		return nil
	})
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u *org.User, entry *audit.Entry) error {
	return s.inTx(ctx, entry, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into users(id, email, password_hash, role, company_id, cluster_id, active, created_at, updated_at)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, u.ID, u.Email, u.PasswordHash, u.Role, nullIfEmpty(u.CompanyID), nullIfEmpty(u.ClusterID),
			u.Active, u.CreatedAt, u.UpdatedAt)
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return fmt.Errorf("%w: email already registered", org.ErrConflict)
			case pgErrForeignKeyViolation:
				return org.ErrNotFound
			}
		}
		return err
	})
}

const userColumns = `id, email, password_hash, role, company_id, cluster_id, active, created_at, updated_at`

func (s *Store) FindUser(ctx context.Context, id string) (*org.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*org.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where email=$1`, email))
}

func (s *Store) scanUser(row *sql.Row) (*org.User, error) {
	var (
		u         org.User
		companyID sql.NullString
		clusterID sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &companyID, &clusterID,
		&u.Active, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, org.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CompanyID = fromNull(companyID)
	u.ClusterID = fromNull(clusterID)
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]org.User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []org.User
	for rows.Next() {
		var (
			u         org.User
			companyID sql.NullString
			clusterID sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &companyID, &clusterID,
			&u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.CompanyID = fromNull(companyID)
		u.ClusterID = fromNull(clusterID)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd org.UserUpdate, entry *audit.Entry) (*org.User, error) {
	var updated *org.User
	err := s.inTx(ctx, entry, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1 for update`, id)
		var (
			u         org.User
			companyID sql.NullString
			clusterID sql.NullString
		)
		err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &companyID, &clusterID,
			&u.Active, &u.CreatedAt, &u.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return org.ErrNotFound
		}
		if err != nil {
			return err
		}
		u.CompanyID = fromNull(companyID)
		u.ClusterID = fromNull(clusterID)

		if upd.Email != nil {
			u.Email = *upd.Email
		}
		if upd.PasswordHash != nil {
			u.PasswordHash = *upd.PasswordHash
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		if upd.CompanyID != nil {
			u.CompanyID = *upd.CompanyID
		}
		if upd.ClusterID != nil {
			u.ClusterID = *upd.ClusterID
		}
		if upd.Active != nil {
			u.Active = *upd.Active
		}

		_, err = tx.ExecContext(ctx, `
			update users set email=$2, password_hash=$3, role=$4, company_id=$5, cluster_id=$6, active=$7, updated_at=now()
			where id=$1
		`, u.ID, u.Email, u.PasswordHash, u.Role, nullIfEmpty(u.CompanyID), nullIfEmpty(u.ClusterID), u.Active)
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: email already registered", org.ErrConflict)
		}
		if err != nil {
			return err
		}
		updated = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// inTx runs fn and the audit append in one transaction. Driver errors from
// either leave no partial state behind.
func (s *Store) inTx(ctx context.Context, entry *audit.Entry, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", org.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := appendAudit(ctx, tx, entry); err != nil {
		return fmt.Errorf("%w: audit append: %v", org.ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", org.ErrUnavailable, err)
	}
	return nil
}
