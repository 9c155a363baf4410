package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedSteps(t *testing.T) {
	master, err := fs.Glob(Master(), "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_data_configs.sql"}, master)

	tenant, err := fs.Glob(Tenant(), "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{
		"00001_employees.sql",
		"00002_audit_logs.sql",
		"00003_audit_logs_lookup.sql",
	}, tenant)
}
