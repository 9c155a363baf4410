package persistence

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/modules/catalog/infrastructure/persistence/models"
)

func toDBDataConfig(d *descriptor.Descriptor) *models.DataConfig {
	return &models.DataConfig{
		ID:                   d.ID.String(),
		Organization:         d.Organization,
		Module:               d.Module,
		SQLHost:              d.Host,
		SQLPort:              d.Port,
		SQLUser:              d.User,
		SQLPassword:          d.Password,
		SQLDatabase:          d.Database,
		BlobConnectionString: toNullString(d.BlobConnectionString),
		BlobContainerName:    toNullString(d.BlobContainerName),
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

func toDomainDataConfig(m *models.DataConfig) (*descriptor.Descriptor, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &descriptor.Descriptor{
		ID:                   id,
		Organization:         m.Organization,
		Module:               m.Module,
		Host:                 m.SQLHost,
		Port:                 m.SQLPort,
		User:                 m.SQLUser,
		Password:             m.SQLPassword,
		Database:             m.SQLDatabase,
		BlobConnectionString: fromNullString(m.BlobConnectionString),
		BlobContainerName:    fromNullString(m.BlobContainerName),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}, nil
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
