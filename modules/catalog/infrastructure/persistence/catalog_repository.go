package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/modules/catalog/infrastructure/persistence/models"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

const OrganizationConstraint = "data_configs_organization_key"

const (
	selectDataConfigs = `
		SELECT id, organization, module, sql_host, sql_port, sql_user, sql_password, sql_database,
		       blob_connection_string, blob_container_name, created_at, updated_at
		FROM data_configs`

	insertDataConfig = `
		INSERT INTO data_configs (
			id, organization, module, sql_host, sql_port, sql_user, sql_password, sql_database,
			blob_connection_string, blob_container_name, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	// The updated_at guard rejects writes based on a stale read.
	updateDataConfig = `
		UPDATE data_configs SET
			sql_host = $2, sql_port = $3, sql_user = $4, sql_password = $5, sql_database = $6,
			blob_connection_string = $7, blob_container_name = $8, updated_at = $9
		WHERE organization = $1 AND updated_at = $10`
)

// ErrStaleWrite is returned by Update when the row changed since it was read.
var ErrStaleWrite = fmt.Errorf("%w: data config was modified concurrently", serrors.ErrDescriptorConflict)

type DataConfigRepository struct{}

func NewDataConfigRepository() descriptor.Repository {
	return &DataConfigRepository{}
}

func (r *DataConfigRepository) GetByOrganization(ctx context.Context, organization string) (*descriptor.Descriptor, error) {
	return r.queryOne(ctx, selectDataConfigs+" WHERE organization = $1", organization)
}

func (r *DataConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*descriptor.Descriptor, error) {
	return r.queryOne(ctx, selectDataConfigs+" WHERE id = $1", id)
}

func (r *DataConfigRepository) List(ctx context.Context, params *descriptor.FindParams) ([]*descriptor.Descriptor, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := buildDataConfigFilters(params)
	query := selectDataConfigs + where + " ORDER BY created_at, organization"
	if params != nil {
		query += " " + repo.FormatLimitOffset(params.Limit, params.Offset)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list data configs")
	}
	defer rows.Close()

	var out []*descriptor.Descriptor
	for rows.Next() {
		d, err := scanDataConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate data configs")
}

func (r *DataConfigRepository) Count(ctx context.Context, params *descriptor.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := buildDataConfigFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM data_configs"+where, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count data configs")
	}
	return count, nil
}

func (r *DataConfigRepository) Create(ctx context.Context, d *descriptor.Descriptor) (*descriptor.Descriptor, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	m := toDBDataConfig(d)
	if _, err := tx.Exec(ctx, insertDataConfig,
		m.ID, m.Organization, m.Module, m.SQLHost, m.SQLPort, m.SQLUser, m.SQLPassword, m.SQLDatabase,
		m.BlobConnectionString, m.BlobContainerName, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		if repo.IsUniqueViolation(err, OrganizationConstraint) {
			return nil, fmt.Errorf("%w: %s", serrors.ErrDescriptorConflict, d.Organization)
		}
		return nil, errors.Wrap(err, "failed to insert data config")
	}
	return r.GetByOrganization(ctx, d.Organization)
}

func (r *DataConfigRepository) Update(ctx context.Context, d *descriptor.Descriptor, previousUpdatedAt time.Time) (*descriptor.Descriptor, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	m := toDBDataConfig(d)
	tag, err := tx.Exec(ctx, updateDataConfig,
		m.Organization, m.SQLHost, m.SQLPort, m.SQLUser, m.SQLPassword, m.SQLDatabase,
		m.BlobConnectionString, m.BlobContainerName, m.UpdatedAt, previousUpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update data config")
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByOrganization(ctx, d.Organization); err != nil {
			return nil, err
		}
		return nil, ErrStaleWrite
	}
	return r.GetByOrganization(ctx, d.Organization)
}

func (r *DataConfigRepository) queryOne(ctx context.Context, query string, args ...any) (*descriptor.Descriptor, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	d, err := scanDataConfig(tx.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, serrors.ErrDescriptorNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load data config")
	}
	return d, nil
}

func scanDataConfig(row pgx.Row) (*descriptor.Descriptor, error) {
	var m models.DataConfig
	var id uuid.UUID
	if err := row.Scan(
		&id,
		&m.Organization,
		&m.Module,
		&m.SQLHost,
		&m.SQLPort,
		&m.SQLUser,
		&m.SQLPassword,
		&m.SQLDatabase,
		&m.BlobConnectionString,
		&m.BlobContainerName,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.ID = id.String()
	return toDomainDataConfig(&m)
}

func buildDataConfigFilters(params *descriptor.FindParams) (string, []any) {
	if params == nil {
		return "", nil
	}
	if module := strings.TrimSpace(params.Module); module != "" {
		return " WHERE module = $1", []any{strings.ToLower(module)}
	}
	return "", nil
}
