// Package migrations embeds the SQL steps for the master catalog and for every
// tenant database. Files are named NNNNN_name.sql and applied in version order.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed master/*.sql
var masterFS embed.FS

//go:embed tenant/*.sql
var tenantFS embed.FS

func Master() fs.FS {
	return mustSub(masterFS, "master")
}

func Tenant() fs.FS {
	return mustSub(tenantFS, "tenant")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
