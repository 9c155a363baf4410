package descriptor

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gemelli/tenantcore/pkg/constants"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

type CreateDTO struct {
	Organization         string  `json:"organization" validate:"required,max=150"`
	Module               string  `json:"module" validate:"omitempty,max=50"`
	Host                 string  `json:"host" validate:"required,max=150,hostname_rfc1123|ip"`
	Port                 int     `json:"port" validate:"required,min=1,max=65535"`
	User                 string  `json:"user" validate:"required,max=100"`
	Password             string  `json:"password" validate:"required,max=100"`
	Database             string  `json:"database" validate:"required,max=100"`
	BlobConnectionString *string `json:"blob_connection_string" validate:"omitempty,max=500"`
	BlobContainerName    *string `json:"blob_container_name" validate:"omitempty,max=100"`
}

func (d *CreateDTO) Normalize() {
	d.Organization = strings.TrimSpace(d.Organization)
	d.Module = strings.ToLower(strings.TrimSpace(d.Module))
	d.Host = strings.ToLower(strings.TrimSpace(d.Host))
	d.User = strings.TrimSpace(d.User)
	d.Database = strings.TrimSpace(d.Database)
	d.BlobConnectionString = trimmedOrNil(d.BlobConnectionString)
	d.BlobContainerName = trimmedOrNil(d.BlobContainerName)
}

// Ok normalizes the DTO and returns a *serrors.ValidationError when it is invalid.
func (d *CreateDTO) Ok() error {
	d.Normalize()
	return serrors.FromValidator(constants.Validate.Struct(d), constants.Translator)
}

func (d *CreateDTO) ToEntity() *Descriptor {
	module := d.Module
	if module == "" {
		module = constants.DefaultModule
	}
	now := time.Now().UTC()
	return &Descriptor{
		ID:                   uuid.New(),
		Organization:         d.Organization,
		Module:               module,
		Host:                 d.Host,
		Port:                 d.Port,
		User:                 d.User,
		Password:             d.Password,
		Database:             d.Database,
		BlobConnectionString: d.BlobConnectionString,
		BlobContainerName:    d.BlobContainerName,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// UpdateDTO is a partial edit; nil fields keep their current value.
type UpdateDTO struct {
	Host                 *string `json:"host" validate:"omitempty,max=150,hostname_rfc1123|ip"`
	Port                 *int    `json:"port" validate:"omitempty,min=1,max=65535"`
	User                 *string `json:"user" validate:"omitempty,min=1,max=100"`
	Password             *string `json:"password" validate:"omitempty,min=1,max=100"`
	Database             *string `json:"database" validate:"omitempty,min=1,max=100"`
	BlobConnectionString *string `json:"blob_connection_string" validate:"omitempty,max=500"`
	BlobContainerName    *string `json:"blob_container_name" validate:"omitempty,max=100"`
}

func (d *UpdateDTO) Normalize() {
	if d.Host != nil {
		h := strings.ToLower(strings.TrimSpace(*d.Host))
		d.Host = &h
	}
	if d.User != nil {
		u := strings.TrimSpace(*d.User)
		d.User = &u
	}
	if d.Database != nil {
		db := strings.TrimSpace(*d.Database)
		d.Database = &db
	}
	d.BlobConnectionString = trimmedOrNil(d.BlobConnectionString)
	d.BlobContainerName = trimmedOrNil(d.BlobContainerName)
}

func (d *UpdateDTO) Ok() error {
	d.Normalize()
	return serrors.FromValidator(constants.Validate.Struct(d), constants.Translator)
}

func (d *UpdateDTO) IsEmpty() bool {
	return d.Host == nil && d.Port == nil && d.User == nil && d.Password == nil &&
		d.Database == nil && d.BlobConnectionString == nil && d.BlobContainerName == nil
}

// Apply returns a copy of current with the DTO's non-nil fields merged in.
func (d *UpdateDTO) Apply(current *Descriptor) *Descriptor {
	out := current.Clone()
	if d.Host != nil {
		out.Host = *d.Host
	}
	if d.Port != nil {
		out.Port = *d.Port
	}
	if d.User != nil {
		out.User = *d.User
	}
	if d.Password != nil {
		out.Password = *d.Password
	}
	if d.Database != nil {
		out.Database = *d.Database
	}
	if d.BlobConnectionString != nil {
		v := *d.BlobConnectionString
		out.BlobConnectionString = &v
	}
	if d.BlobContainerName != nil {
		v := *d.BlobContainerName
		out.BlobContainerName = &v
	}
	out.UpdatedAt = time.Now().UTC()
	return out
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
