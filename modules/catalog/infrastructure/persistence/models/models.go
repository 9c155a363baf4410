package models

import (
	"database/sql"
	"time"
)

type DataConfig struct {
	ID                   string
	Organization         string
	Module               string
	SQLHost              string
	SQLPort              int
	SQLUser              string
	SQLPassword          string
	SQLDatabase          string
	BlobConnectionString sql.NullString
	BlobContainerName    sql.NullString
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
