// Package db holds the DuckDB connection used for read-only dataset
// inspection. The catalog GeoJSON files are registered as views so the
// /api/v1/query endpoint can run SQL over their features.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/Liando18/development-geotax/internal/overlay"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Get returns the singleton DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create duckdb directory: %w", err)
			return
		}

		dbPath := filepath.Join(duckdbDir, cfg.DBName+".duckdb")
		instance, initErr = sql.Open("duckdb", dbPath)
		if initErr != nil {
			return
		}

		// Load extensions
		extensions := []string{"spatial", "json"}
		for _, ext := range extensions {
			if _, err := instance.Exec(fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
				// Extensions might already be installed, continue
			}
		}
	})
	return instance, initErr
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// RegisterCatalog creates one view per catalog dataset over its GeoJSON
// file. Missing files are skipped; the viewer works without them and the
// view shows up once the file exists and the server restarts.
func RegisterCatalog(conn *sql.DB, dataDir string) error {
	for _, e := range overlay.Catalog() {
		path := filepath.Join(dataDir, "geojson", e.File)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		stmt := fmt.Sprintf(
			"CREATE OR REPLACE VIEW %s AS SELECT * FROM ST_Read('%s')",
			ViewName(e.Dataset), strings.ReplaceAll(path, "'", "''"),
		)
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("register view for %s: %w", e.Dataset, err)
		}
	}
	return nil
}

// ViewName converts a dataset key into a SQL-safe view name.
func ViewName(d overlay.Dataset) string {
	name := strings.ToLower(string(d))
	name = strings.ReplaceAll(name, "-", "_")
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
