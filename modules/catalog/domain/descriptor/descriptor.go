package descriptor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const redactedValue = "********"

// Descriptor tells the process how to reach one organization's physical database.
type Descriptor struct {
	ID                   uuid.UUID `json:"id"`
	Organization         string    `json:"organization"`
	Module               string    `json:"module"`
	Host                 string    `json:"host"`
	Port                 int       `json:"port"`
	User                 string    `json:"user"`
	Password             string    `json:"password"`
	Database             string    `json:"database"`
	BlobConnectionString *string   `json:"blob_connection_string,omitempty"`
	BlobContainerName    *string   `json:"blob_container_name,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DSN renders the descriptor as a libpq keyword/value connection string.
func (d *Descriptor) DSN(sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	parts := []string{
		"host=" + quoteDSNValue(d.Host),
		"port=" + strconv.Itoa(d.Port),
		"dbname=" + quoteDSNValue(d.Database),
		"user=" + quoteDSNValue(d.User),
		"password=" + quoteDSNValue(d.Password),
		"sslmode=" + quoteDSNValue(sslMode),
	}
	return strings.Join(parts, " ")
}

// Fingerprint changes whenever a connection-relevant field changes.
func (d *Descriptor) Fingerprint() string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s\x00%s\x00%s", d.Organization, d.Host, d.Port, d.User, d.Password, d.Database)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Redacted returns a copy safe to surface outside the core.
func (d *Descriptor) Redacted() *Descriptor {
	out := d.Clone()
	if out.Password != "" {
		out.Password = redactedValue
	}
	if out.BlobConnectionString != nil && *out.BlobConnectionString != "" {
		masked := redactedValue
		out.BlobConnectionString = &masked
	}
	return out
}

func (d *Descriptor) Clone() *Descriptor {
	out := *d
	if d.BlobConnectionString != nil {
		v := *d.BlobConnectionString
		out.BlobConnectionString = &v
	}
	if d.BlobContainerName != nil {
		v := *d.BlobContainerName
		out.BlobContainerName = &v
	}
	return &out
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", d.Organization, d.Host, d.Port, d.Database)
}

func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
