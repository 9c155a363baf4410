package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func validCreate() *descriptor.CreateDTO {
	return &descriptor.CreateDTO{
		Organization: " acme ",
		Host:         "DB1",
		Port:         5432,
		User:         "acme_app",
		Password:     "s3cret",
		Database:     "acme_db",
	}
}

func TestCreateDTO_OkAndToEntity(t *testing.T) {
	dto := validCreate()
	require.NoError(t, dto.Ok())

	d := dto.ToEntity()
	require.Equal(t, "acme", d.Organization)
	require.Equal(t, "db1", d.Host)
	require.Equal(t, "people", d.Module)
	require.Nil(t, d.BlobConnectionString)
	require.Nil(t, d.BlobContainerName)
	require.False(t, d.CreatedAt.IsZero())
}

func TestCreateDTO_Invalid(t *testing.T) {
	dto := validCreate()
	dto.Port = 70000
	dto.Password = ""

	err := dto.Ok()
	require.ErrorIs(t, err, serrors.ErrValidation)

	var verr *serrors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "port")
	require.Contains(t, verr.Fields, "password")
	require.Equal(t, "password is a required field", verr.Messages["password"])
}

func TestCreateDTO_BlankBlobFieldsBecomeNil(t *testing.T) {
	dto := validCreate()
	dto.BlobConnectionString = strPtr("   ")
	dto.BlobContainerName = strPtr(" files ")
	require.NoError(t, dto.Ok())
	require.Nil(t, dto.BlobConnectionString)
	require.Equal(t, "files", *dto.BlobContainerName)
}

func TestUpdateDTO_ApplyKeepsOmittedFields(t *testing.T) {
	base := validCreate()
	require.NoError(t, base.Ok())
	current := base.ToEntity()

	patch := &descriptor.UpdateDTO{Host: strPtr("db2"), Port: intPtr(6432)}
	require.NoError(t, patch.Ok())
	next := patch.Apply(current)

	require.Equal(t, "db2", next.Host)
	require.Equal(t, 6432, next.Port)
	require.Equal(t, current.User, next.User)
	require.Equal(t, current.Password, next.Password)
	require.Equal(t, current.ID, next.ID)
	require.Equal(t, "db1", current.Host, "apply must not mutate the current descriptor")
	require.NotEqual(t, current.Fingerprint(), next.Fingerprint())
}

func TestUpdateDTO_IsEmpty(t *testing.T) {
	require.True(t, (&descriptor.UpdateDTO{}).IsEmpty())
	require.False(t, (&descriptor.UpdateDTO{Password: strPtr("x")}).IsEmpty())
}

func TestDescriptor_FingerprintIgnoresBlobFields(t *testing.T) {
	d := validCreate().ToEntity()
	before := d.Fingerprint()
	d.BlobContainerName = strPtr("other")
	require.Equal(t, before, d.Fingerprint())
	d.Password = "rotated"
	require.NotEqual(t, before, d.Fingerprint())
}

func TestDescriptor_Redacted(t *testing.T) {
	d := validCreate().ToEntity()
	d.BlobConnectionString = strPtr("DefaultEndpointsProtocol=https;AccountKey=abc")

	r := d.Redacted()
	require.Equal(t, "********", r.Password)
	require.Equal(t, "********", *r.BlobConnectionString)
	require.Equal(t, "s3cret", d.Password)
	require.Equal(t, "DefaultEndpointsProtocol=https;AccountKey=abc", *d.BlobConnectionString)
}

func TestDescriptor_DSNQuotesSpecialValues(t *testing.T) {
	d := &descriptor.Descriptor{Host: "db1", Port: 5432, Database: "acme_db", User: "app", Password: "it's a pass"}
	require.Equal(t,
		`host=db1 port=5432 dbname=acme_db user=app password='it\'s a pass' sslmode=disable`,
		d.DSN(""),
	)
}

func TestUpdatedEvent_ConnectionChanged(t *testing.T) {
	d := validCreate().ToEntity()
	same := (&descriptor.UpdateDTO{BlobContainerName: strPtr("c")}).Apply(d)
	require.False(t, descriptor.NewUpdatedEvent(d, same).ConnectionChanged())

	moved := (&descriptor.UpdateDTO{Host: strPtr("db2")}).Apply(d)
	require.True(t, descriptor.NewUpdatedEvent(d, moved).ConnectionChanged())
}
