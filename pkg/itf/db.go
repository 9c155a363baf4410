// Package itf provides integration test fixtures backed by a real PostgreSQL
// server. Tests using it are skipped unless TENANTCORE_TEST_DB_HOST is set.
package itf

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
)

const maxDBNameLength = 63

type Server struct {
	Host     string
	Port     int
	User     string
	Password string
}

// RequireServer returns the configured test server or skips the test.
func RequireServer(tb testing.TB) Server {
	tb.Helper()
	host := os.Getenv("TENANTCORE_TEST_DB_HOST")
	if host == "" {
		tb.Skip("TENANTCORE_TEST_DB_HOST not set, skipping integration test")
	}
	port, err := strconv.Atoi(envOr("TENANTCORE_TEST_DB_PORT", "5432"))
	if err != nil {
		tb.Fatalf("invalid TENANTCORE_TEST_DB_PORT: %v", err)
	}
	return Server{
		Host:     host,
		Port:     port,
		User:     envOr("TENANTCORE_TEST_DB_USER", "postgres"),
		Password: envOr("TENANTCORE_TEST_DB_PASSWORD", "postgres"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Descriptor points at database name on this server.
func (s Server) Descriptor(organization, database string) *descriptor.Descriptor {
	now := time.Now().UTC()
	return &descriptor.Descriptor{
		ID:           uuid.New(),
		Organization: organization,
		Module:       "people",
		Host:         s.Host,
		Port:         s.Port,
		User:         s.User,
		Password:     s.Password,
		Database:     database,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateDatabase creates an empty database named after the test and drops it on cleanup.
func (s Server) CreateDatabase(tb testing.TB, name string) *descriptor.Descriptor {
	tb.Helper()
	dbName := SanitizeDBName(tb.Name() + "_" + name)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := pgx.Connect(ctx, s.Descriptor("postgres", "postgres").DSN("disable"))
	if err != nil {
		tb.Fatalf("connect admin database: %v", err)
	}
	defer func() { _ = admin.Close(context.Background()) }()

	ident := pgx.Identifier{dbName}.Sanitize()
	if _, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
		tb.Fatalf("drop database: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		tb.Fatalf("create database: %v", err)
	}

	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		conn, err := pgx.Connect(ctx, s.Descriptor("postgres", "postgres").DSN("disable"))
		if err != nil {
			tb.Logf("[WARNING] cleanup connect: %v", err)
			return
		}
		defer func() { _ = conn.Close(context.Background()) }()
		if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
			tb.Logf("[WARNING] cleanup drop %s: %v", dbName, err)
		}
	})

	return s.Descriptor(name, dbName)
}

// NewPool opens a small pool against d and closes it on cleanup.
func NewPool(tb testing.TB, d *descriptor.Descriptor) *pgxpool.Pool {
	tb.Helper()
	config, err := pgxpool.ParseConfig(d.DSN("disable"))
	if err != nil {
		tb.Fatal(err)
	}
	config.MaxConns = 4
	config.MaxConnIdleTime = 30 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		tb.Fatalf("failed to create database pool: %v", err)
	}
	tb.Cleanup(pool.Close)
	return pool
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// SanitizeDBName lowercases name, replaces anything outside [a-z0-9_] and
// keeps the result within PostgreSQL's identifier limit.
func SanitizeDBName(name string) string {
	sanitized := nonIdent.ReplaceAllString(strings.ToLower(name), "_")
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "test_db"
	}
	if len(sanitized) <= maxDBNameLength {
		return sanitized
	}
	sum := sha256.Sum256([]byte(name))
	return fmt.Sprintf("%s_%x", sanitized[:maxDBNameLength-9], sum[:4])
}
